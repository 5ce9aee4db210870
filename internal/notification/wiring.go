package notification

import (
	"auctionhouse/backend/internal/config"

	log "github.com/sirupsen/logrus"
)

// FromConfig builds the orchestrator from the configured channels: email is the primary,
// Telegram the secondary and SMS the fallback. Channels without credentials are left out.
func FromConfig(cfg *config.Config, users UserDirectory, audit AuditLog, r Renderer) (*Orchestrator, error) {
	var primary, secondary, fallback Channel

	if cfg.EmailEnabled() {
		primary = NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, r)
	} else {
		log.Warn("SMTP is not configured; winner notifications will fail until it is")
	}

	if cfg.TelegramEnabled() {
		tg, err := NewTelegramChannel(cfg.TelegramBotToken, r)
		if err != nil {
			return nil, err
		}
		secondary = tg
	}

	if cfg.SMSEnabled() {
		fallback = NewSMSChannel(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, r)
	}

	log.WithFields(log.Fields{
		"email":    primary != nil,
		"telegram": secondary != nil,
		"sms":      fallback != nil,
	}).Info("notification channels configured")

	return NewOrchestrator(users, audit, primary, secondary, fallback, cfg.CallTimeout), nil
}
