// internal/services/event_service.go
package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/utils"
)

// EventService appends to and reads from the market event log. The log is
// insert-only; nothing in the codebase updates or deletes event rows.
type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// Record inserts an event using the caller's transaction handle so the event
// commits or rolls back together with the state change it describes.
func (s *EventService) Record(tx *gorm.DB, event *models.MarketEvent) error {
	return tx.Create(event).Error
}

type EventSearchParams struct {
	utils.PaginationParams
	EventType      string
	CollectionSlug string
	AssetID        uint64
	ActorID        *uuid.UUID
}

func (s *EventService) ListEvents(params *EventSearchParams) ([]models.MarketEvent, int64, error) {
	query := s.db.Model(&models.MarketEvent{})

	if params.EventType != "" {
		query = query.Where("event_type = ?", params.EventType)
	}
	if params.CollectionSlug != "" {
		query = query.Where("collection_slug = ?", params.CollectionSlug)
	}
	if params.AssetID > 0 {
		query = query.Where("asset_id = ?", params.AssetID)
	}
	if params.ActorID != nil {
		query = query.Where("actor_id = ?", *params.ActorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.MarketEvent
	query = utils.ApplyPagination(query, params.PaginationParams)
	if err := query.Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// AssetHistory returns every event touching one asset, oldest first.
func (s *EventService) AssetHistory(collectionSlug string, assetID uint64) ([]models.MarketEvent, error) {
	var events []models.MarketEvent
	err := s.db.
		Where("collection_slug = ? AND asset_id = ?", collectionSlug, assetID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
