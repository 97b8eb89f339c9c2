// internal/models/asset.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Collection is an asset registry namespace. The account that created it is
// its administrator and the only one allowed to mint into it. LastAssetID is
// the sequential asset counter; ids start at 1 and are never reused.
type Collection struct {
	BaseModel
	Slug        string    `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Symbol      string    `json:"symbol" gorm:"size:20;not null"`
	Description string    `json:"description" gorm:"type:text"`
	AdminID     uuid.UUID `json:"admin_id" gorm:"type:uuid;not null;index"`
	LastAssetID uint64    `json:"last_asset_id" gorm:"not null;default:0"`

	// Relationships
	Admin  User    `json:"admin,omitempty" gorm:"foreignKey:AdminID"`
	Assets []Asset `json:"assets,omitempty" gorm:"foreignKey:CollectionSlug;references:Slug"`
}

// Asset is a clothing item. Category, rarity and level are fixed at mint;
// only the metadata pointer has an update path.
type Asset struct {
	BaseModel
	CollectionSlug  string           `json:"collection_slug" gorm:"size:100;not null;uniqueIndex:idx_assets_key,priority:1"`
	AssetID         uint64           `json:"asset_id" gorm:"not null;uniqueIndex:idx_assets_key,priority:2"`
	OwnerID         uuid.UUID        `json:"owner_id" gorm:"type:uuid;not null;index"`
	Category        ClothingCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	Rarity          Rarity           `json:"rarity" gorm:"type:varchar(20);not null;index"`
	Level           int              `json:"level" gorm:"not null;default:1"`
	Wearable        bool             `json:"wearable" gorm:"not null;default:true"`
	MetadataPointer string           `json:"metadata_pointer" gorm:"size:512;not null"`
	ImageURLs       pq.StringArray   `json:"image_urls" gorm:"type:text[]"`
	Extension       JSONB            `json:"extension" gorm:"type:jsonb"`

	// Relationships
	Owner User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

// Attributes is the read view returned by the registry.
type Attributes struct {
	Category        ClothingCategory `json:"category"`
	Rarity          Rarity           `json:"rarity"`
	Level           int              `json:"level"`
	Wearable        bool             `json:"wearable"`
	MetadataPointer string           `json:"metadata_pointer"`
}

func (a *Asset) Attributes() Attributes {
	return Attributes{
		Category:        a.Category,
		Rarity:          a.Rarity,
		Level:           a.Level,
		Wearable:        a.Wearable,
		MetadataPointer: a.MetadataPointer,
	}
}
