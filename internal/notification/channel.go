// Package notification delivers auction-won messages to winners over several channels.
package notification

import (
	"auctionhouse/backend/internal/models"
	"context"

	"github.com/shopspring/decimal"
)

// Channel names
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelSMS      = "sms"
)

// Catalogue keys used by the channels.
const (
	keyEmailSubject  = "winner_email_subject"
	keyEmailText     = "winner_email_text"
	keyEmailHTML     = "winner_email_html"
	keyChat          = "winner_chat"
	keySMS           = "winner_sms"
	keyFallbackTitle = "auction_fallback_title"
)

// Channel is one outbound transport.
type Channel interface {
	// Name identifies the channel in results and metrics.
	Name() string
	// Contact returns the user's address on this channel, or "" if there is none.
	Contact(user *models.User) string
	// Send delivers the notice and returns the provider reference (message id / sid).
	Send(ctx context.Context, n Notice) (string, error)
}

// Renderer renders a catalogue entry in a language. *localization.Localizer implements it.
type Renderer interface {
	Render(lang, key string, vars map[string]string) string
}

// Notice is the content of one winner notification.
type Notice struct {
	AuctionID string
	Title     string
	Amount    decimal.Decimal
	Winner    *models.User
}

func (n Notice) lang() string {
	if n.Winner == nil || n.Winner.Language == "" {
		return "en"
	}
	return n.Winner.Language
}

// vars builds the template variables. The amount is printed exactly as stored.
func (n Notice) vars(r Renderer) map[string]string {
	title := n.Title
	if title == "" {
		title = r.Render(n.lang(), keyFallbackTitle, nil)
	}
	name := ""
	if n.Winner != nil {
		name = n.Winner.DisplayName()
	}
	return map[string]string{
		"name":       name,
		"title":      title,
		"amount":     n.Amount.String(),
		"auction_id": n.AuctionID,
	}
}

// ChannelResult is the outcome of one channel attempt.
type ChannelResult struct {
	Channel   string `json:"channel"`
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AdditionalChannels holds the best-effort channel outcomes.
// Fallback is only attempted when Secondary is absent or failed.
type AdditionalChannels struct {
	Secondary *ChannelResult `json:"secondary,omitempty"`
	Fallback  *ChannelResult `json:"fallback,omitempty"`
}

// Result is the outcome of NotifyWinner. Success mirrors the primary channel.
type Result struct {
	Success            bool               `json:"success"`
	Method             string             `json:"method,omitempty"`
	Primary            ChannelResult      `json:"primary"`
	AdditionalChannels AdditionalChannels `json:"additionalChannels"`
}

// Delivered lists the channels that succeeded, primary first.
func (r *Result) Delivered() []string {
	var out []string
	for _, cr := range []*ChannelResult{&r.Primary, r.AdditionalChannels.Secondary, r.AdditionalChannels.Fallback} {
		if cr != nil && cr.Success {
			out = append(out, cr.Channel)
		}
	}
	return out
}

// runWithContext runs a blocking provider call and gives up when ctx is done.
// Provider SDKs used here take no context, so the call itself keeps running in the background.
func runWithContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := call()
		done <- outcome{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.val, o.err
	}
}
