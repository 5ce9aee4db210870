package notification

import (
	"auctionhouse/backend/internal/models"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailChannel sends a multipart (plain + HTML) message over SMTP.
type EmailChannel struct {
	Sender   MailSender
	From     string
	Renderer Renderer
}

// NewEmailChannel builds an SMTP-backed email channel.
func NewEmailChannel(host string, port int, username, password, from string, r Renderer) *EmailChannel {
	return &EmailChannel{
		Sender:   gomail.NewDialer(host, port, username, password),
		From:     from,
		Renderer: r,
	}
}

func (c *EmailChannel) Name() string { return ChannelEmail }

func (c *EmailChannel) Contact(user *models.User) string {
	if user == nil {
		return ""
	}
	return strings.TrimSpace(user.Email)
}

// Send returns the generated Message-ID as the reference.
func (c *EmailChannel) Send(ctx context.Context, n Notice) (string, error) {
	lang := n.lang()
	vars := n.vars(c.Renderer)

	htmlVars := make(map[string]string, len(vars))
	for k, v := range vars {
		htmlVars[k] = html.EscapeString(v)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), mailDomain(c.From))

	m := gomail.NewMessage()
	m.SetHeader("From", c.From)
	m.SetHeader("To", c.Contact(n.Winner))
	m.SetHeader("Subject", c.Renderer.Render(lang, keyEmailSubject, vars))
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", c.Renderer.Render(lang, keyEmailText, vars))
	m.AddAlternative("text/html", c.Renderer.Render(lang, keyEmailHTML, htmlVars))

	_, err := runWithContext(ctx, func() (struct{}, error) {
		return struct{}{}, c.Sender.DialAndSend(m)
	})
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return messageID, nil
}

func mailDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return strings.Trim(from[i+1:], "> ")
	}
	return "localhost"
}
