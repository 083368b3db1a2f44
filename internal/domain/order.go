package domain

type OrderType string

const (
	Limit  OrderType = "limit"
	Market OrderType = "market"
)

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

type OrderStatus string

const (
	StatusOpen     OrderStatus = "open"
	StatusClosed   OrderStatus = "closed"
	StatusCanceled OrderStatus = "canceled"
)

// OrderResult is returned by createOrder and fetchOrder. Operations never
// propagate errors to the caller; a failure is a result with Success false
// and Err set.
type OrderResult struct {
	Success     bool        `json:"success"`
	OrderID     string      `json:"orderId,omitempty"`
	Status      OrderStatus `json:"status,omitempty"`
	AmtFilled   *float64    `json:"amtFilled"`
	AmtOriginal *float64    `json:"amtOriginal"`
	Symbol      string      `json:"symbol"`
	Exchange    string      `json:"exchange"`
	Info        string      `json:"info,omitempty"`
	Err         *OpError    `json:"error,omitempty"`
}

// CancelResult is returned by cancelOrder.
type CancelResult struct {
	Success  bool     `json:"success"`
	Info     string   `json:"info,omitempty"`
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange"`
	Err      *OpError `json:"error,omitempty"`
}

// WithdrawResult is returned by withdraw.
type WithdrawResult struct {
	Success  bool     `json:"success"`
	ID       string   `json:"id,omitempty"`
	Coin     string   `json:"coin"`
	Exchange string   `json:"exchange"`
	Err      *OpError `json:"error,omitempty"`
}
