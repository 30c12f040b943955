package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
)

// EventRepository handles the persisted momentum event ledger.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db.DB}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{db: tx}
}

// Create records a processed event.
func (r *EventRepository) Create(event *models.MomentumEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to record momentum event: %w", err)
	}
	return nil
}

// GetByEventID retrieves an event by its public identifier, or nil when the
// identifier is unknown.
func (r *EventRepository) GetByEventID(eventID string) (*models.MomentumEvent, error) {
	var event models.MomentumEvent
	err := r.db.Where("event_id = ?", eventID).First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get momentum event %s: %w", eventID, err)
	}
	return &event, nil
}

// MarkReverted flags an event so it cannot be reverted twice.
func (r *EventRepository) MarkReverted(event *models.MomentumEvent) error {
	event.Reverted = true
	if err := r.db.Save(event).Error; err != nil {
		return fmt.Errorf("failed to mark event reverted: %w", err)
	}
	return nil
}

// ExistsInWindow reports whether the user already has a non-reverted event of
// the given type inside [start, end). Used to guard time-boxed bonuses like
// the perfect week.
func (r *EventRepository) ExistsInWindow(userID uint, eventType string, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.MomentumEvent{}).
		Where("user_id = ? AND event_type = ? AND reverted = ? AND occurred_at >= ? AND occurred_at < ?",
			userID, eventType, false, start, end).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check events in window: %w", err)
	}
	return count > 0, nil
}

// GetByUser retrieves the user's most recent events.
func (r *EventRepository) GetByUser(userID uint, limit int) ([]models.MomentumEvent, error) {
	var events []models.MomentumEvent
	err := r.db.
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list momentum events: %w", err)
	}
	return events, nil
}
