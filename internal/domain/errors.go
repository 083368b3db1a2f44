package domain

import "fmt"

// ErrorKind classifies every failure an order operation can surface. The
// coordinator's outer handler is an exhaustive switch over these kinds;
// KindUnexpected is the residual bucket for anything unclassified.
type ErrorKind string

const (
	KindUnknownExchange    ErrorKind = "unknown_exchange"
	KindUnsupportedPair    ErrorKind = "unsupported_pair"
	KindUnsupportedCoin    ErrorKind = "unsupported_coin"
	KindInvalidOrderParams ErrorKind = "invalid_order_params"
	KindGateway            ErrorKind = "gateway"
	KindStore              ErrorKind = "store"
	KindUnexpected         ErrorKind = "unexpected"
)

type OpError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *OpError) Error() string {
	return string(e.Kind) + ": " + e.Detail
}

func NewOpError(kind ErrorKind, format string, args ...any) *OpError {
	return &OpError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// AsOpError converts any error into an *OpError, classifying unknown errors
// as unexpected.
func AsOpError(err error) *OpError {
	if err == nil {
		return nil
	}
	if opErr, ok := err.(*OpError); ok {
		return opErr
	}
	return &OpError{Kind: KindUnexpected, Detail: err.Error()}
}

// RegistryLoadError means the catalog store was unreachable while building an
// exchange's canonical registry. The exchange is uninitializable; operations
// against it fail translation lookups instead of crashing the process.
type RegistryLoadError struct {
	Exchange string
	Err      error
}

func (e *RegistryLoadError) Error() string {
	return fmt.Sprintf("failed to load canonical registry for %s: %v", e.Exchange, e.Err)
}

func (e *RegistryLoadError) Unwrap() error {
	return e.Err
}
