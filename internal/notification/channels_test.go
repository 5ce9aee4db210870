package notification_test

import (
	"auctionhouse/backend/internal/localization"
	"auctionhouse/backend/internal/notification"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

type fakeMailer struct {
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	time.Sleep(f.delay)
	f.sent = append(f.sent, m...)
	return f.err
}

type fakeBot struct {
	got tgbotapi.Chattable
	err error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.got = c
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	return tgbotapi.Message{MessageID: 321}, nil
}

type fakeTwilio struct {
	params *openapi.CreateMessageParams
	sid    *string
}

func (f *fakeTwilio) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = params
	return &openapi.ApiV2010Message{Sid: f.sid}, nil
}

func notice() notification.Notice {
	return notification.Notice{
		AuctionID: "room-1",
		Title:     "Vintage camera",
		Amount:    decimal.RequireFromString("1500"),
		Winner:    winner(),
	}
}

func TestEmailChannel_Send(t *testing.T) {
	mailer := &fakeMailer{}
	ch := &notification.EmailChannel{Sender: mailer, From: "auctions@example.com", Renderer: staticRenderer{}}

	ref, err := ch.Send(context.Background(), notice())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "<"))
	assert.True(t, strings.HasSuffix(ref, "@example.com>"))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"bohdan@example.com"}, mailer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{ref}, mailer.sent[0].GetHeader("Message-ID"))
	assert.Equal(t, []string{"en:winner_email_subject:Bohdan|Vintage camera|1500"}, mailer.sent[0].GetHeader("Subject"))
}

func TestEmailChannel_ProviderError(t *testing.T) {
	ch := &notification.EmailChannel{Sender: &fakeMailer{err: errors.New("535 auth failed")}, From: "a@b.c", Renderer: staticRenderer{}}
	_, err := ch.Send(context.Background(), notice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

func TestEmailChannel_ContextDeadline(t *testing.T) {
	ch := &notification.EmailChannel{Sender: &fakeMailer{delay: 200 * time.Millisecond}, From: "a@b.c", Renderer: staticRenderer{}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ch.Send(ctx, notice())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestTelegramChannel_Send(t *testing.T) {
	bot := &fakeBot{}
	ch := &notification.TelegramChannel{Bot: bot, Renderer: staticRenderer{}}

	assert.Equal(t, "42", ch.Contact(winner()))

	ref, err := ch.Send(context.Background(), notice())
	require.NoError(t, err)
	assert.Equal(t, "321", ref)

	msg, ok := bot.got.(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "en:winner_chat:Bohdan|Vintage camera|1500", msg.Text)
	assert.Empty(t, msg.ParseMode)
}

func TestSMSChannel_Send(t *testing.T) {
	sid := "SM0123"
	client := &fakeTwilio{sid: &sid}
	ch := &notification.SMSChannel{Client: client, From: "+15550001111", Renderer: staticRenderer{}}

	ref, err := ch.Send(context.Background(), notice())
	require.NoError(t, err)
	assert.Equal(t, "SM0123", ref)
	require.NotNil(t, client.params.To)
	assert.Equal(t, "+380501112233", *client.params.To)
	assert.Equal(t, "+15550001111", *client.params.From)
}

func TestSMSChannel_MissingSid(t *testing.T) {
	ch := &notification.SMSChannel{Client: &fakeTwilio{}, From: "+1", Renderer: staticRenderer{}}
	_, err := ch.Send(context.Background(), notice())
	assert.Error(t, err)
}

func TestChannels_RenderWithCatalogue(t *testing.T) {
	l, err := localization.NewLocalizer("../localization")
	require.NoError(t, err)

	sid := "SM1"
	client := &fakeTwilio{sid: &sid}
	ch := &notification.SMSChannel{Client: client, From: "+1", Renderer: l}

	_, err = ch.Send(context.Background(), notice())
	require.NoError(t, err)
	assert.Equal(t, `Bohdan, you won "Vintage camera" with a bid of 1500. Check your email for details.`, *client.params.Body)
}

func TestChannels_FallbackTitle(t *testing.T) {
	l, err := localization.NewLocalizer("../localization")
	require.NoError(t, err)

	sid := "SM1"
	client := &fakeTwilio{sid: &sid}
	ch := &notification.SMSChannel{Client: client, From: "+1", Renderer: l}

	n := notice()
	n.Title = ""
	_, err = ch.Send(context.Background(), n)
	require.NoError(t, err)
	assert.Contains(t, *client.params.Body, `"your auction item"`)
}
