package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account with an internal wallet balance
type User struct {
	ID           int64           `db:"id" json:"id"`
	Username     string          `db:"username" json:"username"`
	FullName     string          `db:"full_name" json:"fullName"`
	PasswordHash string          `db:"password_hash" json:"-"` // 16-hex truncated digest, not returned in JSON
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	PhotoKey     sql.NullString  `db:"photo_key" json:"-"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Acquisition types for an artwork's current owner
const (
	AcquisitionUploaded  = "uploaded"
	AcquisitionPurchased = "purchased"
)

// Artwork represents a sellable image listing. The original owner never
// changes; the current owner, acquisition type and availability flip exactly
// once, on the first successful purchase.
type Artwork struct {
	ID              int64           `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	OriginalOwnerID int64           `db:"original_owner_id" json:"originalOwnerId"`
	CurrentOwnerID  int64           `db:"current_owner_id" json:"currentOwnerId"`
	AcquisitionType string          `db:"acquisition_type" json:"acquisitionType"`
	ImageKey        string          `db:"image_key" json:"imageKey"`
	Price           decimal.Decimal `db:"price" json:"price"`
	IsAvailable     bool            `db:"is_available" json:"isAvailable"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// ArtworkListing is an artwork row joined with owner names for the
// marketplace and gallery views.
type ArtworkListing struct {
	Artwork
	OriginalOwnerName string `db:"original_owner_name" json:"originalOwnerName"`
	CurrentOwnerName  string `db:"current_owner_name" json:"currentOwnerName"`
}

// Notification types
const (
	NotificationSystem   = "system"
	NotificationPurchase = "purchase"
	NotificationSale     = "sale"
)

// Notification is an append-only message for a user; only the read flag is
// ever mutated.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PurchaseReceipt is the successful outcome of the purchase transaction.
type PurchaseReceipt struct {
	ArtworkID   int64
	ArtworkName string
	BuyerID     int64
	SellerID    int64
	Price       decimal.Decimal
}
