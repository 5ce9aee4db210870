package notification

import (
	"auctionhouse/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is satisfied by the Twilio REST client's Api service.
type MessageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMSChannel sends a text message through Twilio.
type SMSChannel struct {
	Client   MessageCreator
	From     string
	Renderer Renderer
}

// NewSMSChannel builds a Twilio-backed SMS channel.
func NewSMSChannel(accountSID, authToken, from string, r Renderer) *SMSChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSChannel{Client: client.Api, From: from, Renderer: r}
}

func (c *SMSChannel) Name() string { return ChannelSMS }

func (c *SMSChannel) Contact(user *models.User) string {
	if user == nil {
		return ""
	}
	return strings.TrimSpace(user.Phone)
}

// Send returns the Twilio message SID as the reference.
func (c *SMSChannel) Send(ctx context.Context, n Notice) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(c.Contact(n.Winner))
	params.SetFrom(c.From)
	params.SetBody(c.Renderer.Render(n.lang(), keySMS, n.vars(c.Renderer)))

	resp, err := runWithContext(ctx, func() (*openapi.ApiV2010Message, error) {
		return c.Client.CreateMessage(params)
	})
	if err != nil {
		return "", fmt.Errorf("send sms: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return "", errors.New("send sms: provider returned no message sid")
	}
	return *resp.Sid, nil
}
