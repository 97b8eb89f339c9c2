// internal/models/event.go
package models

import (
	"github.com/google/uuid"
)

// MarketEvent is the append-only notification log. Rows are only ever
// inserted; current state lives in the other tables.
type MarketEvent struct {
	BaseModel
	EventType      EventType  `json:"event_type" gorm:"type:varchar(40);not null;index"`
	CollectionSlug string     `json:"collection_slug,omitempty" gorm:"size:100;index"`
	AssetID        uint64     `json:"asset_id,omitempty" gorm:"index"`
	ActorID        uuid.UUID  `json:"actor_id" gorm:"type:uuid;index"`
	CounterpartyID *uuid.UUID `json:"counterparty_id,omitempty" gorm:"type:uuid"`
	Amount         int64      `json:"amount,omitempty"`
	Payload        JSONB      `json:"payload,omitempty" gorm:"type:jsonb"`
}
