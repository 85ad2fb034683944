package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"channelpoints/domain/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const redemptionColor = 0x9146FF

// webhookExecutor is the part of *discordgo.Session the notifier uses
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts store alerts to a Discord channel webhook
type DiscordNotifier struct {
	executor  webhookExecutor
	webhookID string
	token     string
}

// NewDiscordNotifier creates a notifier for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Channel webhooks authenticate with their token, no bot login is needed
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Client = &http.Client{Timeout: 5 * time.Second}

	return &DiscordNotifier{executor: session, webhookID: id, token: token}, nil
}

// HandleRedemptionCreated posts an alert for a new redemption. Other events are ignored.
func (n *DiscordNotifier) HandleRedemptionCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(events.RedemptionCreatedEvent)
	if !ok {
		return nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       "New redemption",
		Description: fmt.Sprintf("**%s** x%d", created.ItemName, created.Quantity),
		Color:       redemptionColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: created.UserID, Inline: true},
			{Name: "Cost", Value: fmt.Sprintf("%d %s points", created.PointsSpent, created.Currency), Inline: true},
			{Name: "Redemption", Value: fmt.Sprintf("#%d", created.RedemptionID), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_, err := n.executor.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post redemption alert: %w", err)
	}

	log.WithFields(log.Fields{
		"redemptionID": created.RedemptionID,
		"itemID":       created.ItemID,
	}).Debug("Posted redemption alert to Discord")
	return nil
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid discord webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid discord webhook URL: expected /api/webhooks/{id}/{token}")
}
