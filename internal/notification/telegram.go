package notification

import (
	"auctionhouse/backend/internal/models"
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotSender is satisfied by *tgbotapi.BotAPI.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel messages the winner's Telegram chat.
type TelegramChannel struct {
	Bot      BotSender
	Renderer Renderer
}

// NewTelegramChannel connects to the Bot API with the given token.
func NewTelegramChannel(token string, r Renderer) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	bot.Debug = false
	return &TelegramChannel{Bot: bot, Renderer: r}, nil
}

func (c *TelegramChannel) Name() string { return ChannelTelegram }

func (c *TelegramChannel) Contact(user *models.User) string {
	if user == nil || user.TelegramID == 0 {
		return ""
	}
	return strconv.FormatInt(user.TelegramID, 10)
}

// Send returns the Telegram message id as the reference.
func (c *TelegramChannel) Send(ctx context.Context, n Notice) (string, error) {
	chatID := n.Winner.TelegramID
	// Plain text: titles and names are user supplied and would break Markdown parsing.
	msg := tgbotapi.NewMessage(chatID, c.Renderer.Render(n.lang(), keyChat, n.vars(c.Renderer)))

	sent, err := runWithContext(ctx, func() (tgbotapi.Message, error) {
		return c.Bot.Send(msg)
	})
	if err != nil {
		return "", fmt.Errorf("send telegram message: %w", err)
	}
	return fmt.Sprint(sent.MessageID), nil
}
