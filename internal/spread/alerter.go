package spread

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/webhook"

	"cross-exchange-crypto-arbitrage/internal/domain"
)

func AlertDiscord(webhookURL string, record domain.SpreadRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := webhook.NewWithURL(webhookURL)
	if err != nil {
		Logger.Error("Failed to create discord session: " + err.Error())
		return
	}
	defer client.Close(ctx)

	_, err = client.CreateEmbeds([]discord.Embed{
		discord.NewEmbedBuilder().
			SetTitle("Arbitrage spread found").
			SetColor(0x00ff00).
			AddField("Buy On", record.BuyExchange, true).
			AddField("Sell On", record.SellExchange, true).
			AddField("Pair", record.Pair, true).
			AddField("​", "​", false).
			AddField("Ask", fmt.Sprintf("%f", record.Ask), true).
			AddField("Bid", fmt.Sprintf("%f", record.Bid), true).
			AddField("Spread", fmt.Sprintf("%.4f%%", record.PercentSpread*100), true).
			AddField("​", "​", false).
			AddField("Lowest Volume", fmt.Sprintf("%f", record.LowestVolume), true).
			AddField("Delta Time", record.DeltaTime.String(), true).
			Build()})
	if err != nil {
		Logger.Error("Failed to send message to discord: " + err.Error())
	}
}
