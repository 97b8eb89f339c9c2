// internal/models/trade.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Trade records a completed settlement: who bought what from whom, and how
// the payment was split between the seller and the fee recipient.
type Trade struct {
	BaseModel
	CollectionSlug string    `json:"collection_slug" gorm:"size:100;not null;index"`
	AssetID        uint64    `json:"asset_id" gorm:"not null;index"`
	BuyerID        uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID       uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`
	Price          int64     `json:"price" gorm:"not null"`
	Fee            int64     `json:"fee" gorm:"not null"`
	SellerProceeds int64     `json:"seller_proceeds" gorm:"not null"`
	FeeBasisPoints int       `json:"fee_basis_points" gorm:"not null"`

	// Relationships
	Buyer  User `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller User `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}

// Deposit tracks a Stripe-funded balance top-up.
type Deposit struct {
	BaseModel
	UserID           uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	Amount           int64         `json:"amount" gorm:"not null"`
	PaymentReference string        `json:"payment_reference" gorm:"size:255;index"`
	Status           DepositStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ProcessedAt      *time.Time    `json:"processed_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
