package notification

import (
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/metrics"
	"auctionhouse/backend/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// UserDirectory resolves winners to their contact records.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// AuditLog stores one row per notification attempt.
type AuditLog interface {
	SaveWinnerNotification(ctx context.Context, n *models.WinnerNotification) error
}

// Orchestrator sends the mandatory primary notification and the best-effort secondaries.
type Orchestrator struct {
	Users     UserDirectory
	Audit     AuditLog
	Primary   Channel
	Secondary Channel
	Fallback  Channel
	// CallTimeout bounds each lookup and each channel send. Zero means no bound.
	CallTimeout time.Duration
	Now         func() time.Time
}

// NewOrchestrator wires an orchestrator. secondary and fallback may be nil.
func NewOrchestrator(users UserDirectory, audit AuditLog, primary, secondary, fallback Channel, callTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		Users:       users,
		Audit:       audit,
		Primary:     primary,
		Secondary:   secondary,
		Fallback:    fallback,
		CallTimeout: callTimeout,
		Now:         time.Now,
	}
}

// NotifyWinner tells the winner of auctionID that they won.
//
// It fails fast, before any send, when the winner cannot be loaded or has no primary contact.
// Otherwise it always returns a Result: Success reflects the primary channel, and the
// secondary (then fallback) outcomes are recorded without affecting it.
func (o *Orchestrator) NotifyWinner(ctx context.Context, auctionID, winnerID, auctionTitle string, winningBid decimal.Decimal) (*Result, error) {
	if o.Primary == nil {
		return nil, auctionerrors.ErrNoPrimaryChannel
	}

	lookupCtx, cancel := o.callContext(ctx)
	winner, err := o.Users.GetUserByID(lookupCtx, winnerID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("notify winner %s: %w", winnerID, err)
	}
	if o.Primary.Contact(winner) == "" {
		return nil, fmt.Errorf("notify winner %s: %s: %w", winnerID, o.Primary.Name(), auctionerrors.ErrMissingContact)
	}

	notice := Notice{
		AuctionID: auctionID,
		Title:     auctionTitle,
		Amount:    winningBid,
		Winner:    winner,
	}

	res := &Result{}
	res.Primary = o.attempt(ctx, o.Primary, notice)
	res.Success = res.Primary.Success
	if res.Success {
		res.Method = o.Primary.Name()
	}

	// Secondaries still run when the primary failed so the winner is reached somehow.
	if o.Secondary != nil {
		secondary := o.attempt(ctx, o.Secondary, notice)
		res.AdditionalChannels.Secondary = &secondary
		if !secondary.Success && o.Fallback != nil {
			fallback := o.attempt(ctx, o.Fallback, notice)
			res.AdditionalChannels.Fallback = &fallback
		}
	} else if o.Fallback != nil {
		fallback := o.attempt(ctx, o.Fallback, notice)
		res.AdditionalChannels.Fallback = &fallback
	}

	o.audit(ctx, auctionID, winnerID, res)
	return res, nil
}

func (o *Orchestrator) attempt(ctx context.Context, ch Channel, n Notice) ChannelResult {
	cr := ChannelResult{Channel: ch.Name()}
	entry := log.WithFields(log.Fields{
		"room_id":   n.AuctionID,
		"winner_id": n.Winner.ID,
		"channel":   ch.Name(),
	})

	if ch.Contact(n.Winner) == "" {
		cr.Error = auctionerrors.ErrMissingContact.Error()
		entry.Info("winner has no contact on channel, skipping")
		metrics.ObserveNotification(ch.Name(), false)
		return cr
	}

	sendCtx, cancel := o.callContext(ctx)
	defer cancel()

	ref, err := ch.Send(sendCtx, n)
	if err != nil {
		cr.Error = err.Error()
		entry.WithError(err).Warn("winner notification failed")
		metrics.ObserveNotification(ch.Name(), false)
		return cr
	}

	cr.Success = true
	cr.Reference = ref
	entry.WithField("reference", ref).Info("winner notification sent")
	metrics.ObserveNotification(ch.Name(), true)
	return cr
}

func (o *Orchestrator) audit(ctx context.Context, auctionID, winnerID string, res *Result) {
	if o.Audit == nil {
		return
	}
	detail, err := json.Marshal(res)
	if err != nil {
		log.WithField("room_id", auctionID).WithError(err).Error("failed to encode notification detail")
		detail = []byte("{}")
	}

	row := &models.WinnerNotification{
		RoomID:      auctionID,
		WinnerID:    winnerID,
		Success:     res.Success,
		Method:      res.Method,
		Channels:    res.Delivered(),
		Detail:      datatypes.JSON(detail),
		AttemptedAt: o.now(),
	}

	auditCtx, cancel := o.callContext(ctx)
	defer cancel()
	// The audit row is informational; a failed write never changes the outcome.
	_ = o.Audit.SaveWinnerNotification(auditCtx, row)
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.CallTimeout)
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
