// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeDesigner  UserType = "designer"
	UserTypeCollector UserType = "collector"
	UserTypeAdmin     UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type ClothingCategory string

const (
	CategoryTop       ClothingCategory = "top"
	CategoryBottom    ClothingCategory = "bottom"
	CategoryOuter     ClothingCategory = "outer"
	CategoryHeadwear  ClothingCategory = "headwear"
	CategoryShoes     ClothingCategory = "shoes"
	CategoryAccessory ClothingCategory = "accessory"
)

func (c ClothingCategory) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryOuter, CategoryHeadwear, CategoryShoes, CategoryAccessory:
		return true
	}
	return false
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusFailed    DepositStatus = "failed"
)

type EventType string

const (
	EventAssetMinted           EventType = "asset_minted"
	EventAttributesUpdated     EventType = "attributes_updated"
	EventListingCreated        EventType = "listing_created"
	EventListingCancelled      EventType = "listing_cancelled"
	EventSaleCompleted         EventType = "sale_completed"
	EventFeeUpdated            EventType = "fee_updated"
	EventCollectionSupported   EventType = "collection_supported"
	EventCollectionUnsupported EventType = "collection_unsupported"
)
