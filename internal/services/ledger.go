package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/metrics"
	"github.com/diewo77/faktura/internal/models"
)

// ErrInsufficientPoints is returned when a debit finds no point to consume.
var ErrInsufficientPoints = apperr.DomainRule("insufficient points")

// Ledger owns the invoice points balance of every user.
type Ledger struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

func NewLedger(db *gorm.DB, log zerolog.Logger) *Ledger {
	return &Ledger{db: db, log: log.With().Str("component", "ledger").Logger(), now: time.Now}
}

// Balance returns the user's points. A user without a profile has zero.
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var p models.Profile
	err := l.db.WithContext(ctx).Select("invoice_points").Where("id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Dependency("read points balance", err)
	}
	return p.InvoicePoints, nil
}

// DebitTx consumes one point inside tx. It never lets the balance go
// negative: the decrement only matches a row holding at least one point.
func (l *Ledger) DebitTx(tx *gorm.DB, userID uuid.UUID) error {
	res := tx.Model(&models.Profile{}).
		Where("id = ? AND invoice_points >= ?", userID, 1).
		Updates(map[string]any{
			"invoice_points": gorm.Expr("invoice_points - ?", 1),
			"updated_at":     l.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientPoints
	}
	metrics.LedgerDebits.Inc()
	return nil
}

// CreditResult reports what a webhook credit did.
type CreditResult struct {
	Duplicate bool
	Balance   int
}

// CreditOnce adds one point for the payment event eventID. Redelivery of the
// same event is recorded once and credits nothing.
func (l *Ledger) CreditOnce(ctx context.Context, eventID, eventType string, userID uuid.UUID, payload []byte) (CreditResult, error) {
	var out CreditResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := l.now()
		ev := models.WebhookEvent{
			ID:          eventID,
			Type:        eventType,
			UserID:      &userID,
			Outcome:     models.WebhookOutcomeCredited,
			Payload:     datatypes.JSON(payload),
			ProcessedAt: now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ev)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out.Duplicate = true
			return nil
		}

		profile := models.Profile{ID: userID, InvoicePoints: 1, CreatedAt: now, UpdatedAt: now}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"invoice_points": gorm.Expr("profiles.invoice_points + ?", 1),
				"updated_at":     now,
			}),
		}).Create(&profile).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).Select("invoice_points").
			Where("id = ?", userID).Scan(&out.Balance).Error
	})
	if err != nil {
		l.Failed("credit", userID, err)
		return CreditResult{}, apperr.Dependency("credit invoice point", err)
	}
	if out.Duplicate {
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		l.log.Info().Str("event_id", eventID).Msg("duplicate payment event ignored")
		return out, nil
	}
	metrics.LedgerCredits.Inc()
	l.log.Info().Str("event_id", eventID).Stringer("user_id", userID).Int("balance", out.Balance).Msg("invoice point credited")
	return out, nil
}

// RecordSkipped stores a verified event that credited nothing so a later
// redelivery is recognised. Failures are logged and otherwise ignored.
func (l *Ledger) RecordSkipped(ctx context.Context, eventID, eventType string, payload []byte) {
	ev := models.WebhookEvent{
		ID:          eventID,
		Type:        eventType,
		Outcome:     models.WebhookOutcomeSkipped,
		Payload:     datatypes.JSON(payload),
		ProcessedAt: l.now(),
	}
	if err := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ev).Error; err != nil {
		l.log.Warn().Err(err).Str("event_id", eventID).Msg("could not record skipped event")
	}
}

// Failed logs and counts a ledger transaction that did not commit.
func (l *Ledger) Failed(op string, userID uuid.UUID, err error) {
	metrics.LedgerFailures.WithLabelValues(op).Inc()
	l.log.Error().Err(err).Str("op", op).Stringer("user_id", userID).Msg("ledger transaction failed")
}
