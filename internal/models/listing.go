// internal/models/listing.go
package models

import (
	"github.com/google/uuid"
)

// Listing is a standing sale offer. There is exactly one row per
// (collection_slug, asset_id); relisting overwrites the inactive slot
// instead of inserting a second row, so at most one active offer can exist
// for any asset.
type Listing struct {
	BaseModel
	CollectionSlug string    `json:"collection_slug" gorm:"size:100;not null;uniqueIndex:idx_listings_key,priority:1"`
	AssetID        uint64    `json:"asset_id" gorm:"not null;uniqueIndex:idx_listings_key,priority:2"`
	SellerID       uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`
	// Price is in the smallest currency unit.
	Price  int64 `json:"price" gorm:"not null"`
	Active bool  `json:"active" gorm:"not null;default:true;index"`

	// Relationships
	Seller User `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}

// SupportedCollection is the allow-list of collections the market trades.
type SupportedCollection struct {
	BaseModel
	CollectionSlug string    `json:"collection_slug" gorm:"uniqueIndex;size:100;not null"`
	AddedBy        uuid.UUID `json:"added_by" gorm:"type:uuid;not null"`
}

// MarketSettings is the single fee-configuration row. It is seeded when the
// engine starts and only ever updated, never deleted.
type MarketSettings struct {
	BaseModel
	FeeBasisPoints int       `json:"fee_basis_points" gorm:"not null"`
	FeeRecipientID uuid.UUID `json:"fee_recipient_id" gorm:"type:uuid;not null"`
	UpdatedBy      uuid.UUID `json:"updated_by" gorm:"type:uuid"`

	// Relationships
	FeeRecipient User `json:"fee_recipient,omitempty" gorm:"foreignKey:FeeRecipientID"`
}
