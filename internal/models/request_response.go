package models

import "github.com/shopspring/decimal"

// Request models
type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required,min=3,max=50"`
	FullName string `json:"full_name" form:"full_name" binding:"required,max=255"`
	Password string `json:"password" form:"password" binding:"required,min=4"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type PurchaseRequest struct {
	BuyerID   int64 `json:"buyerId" binding:"required,gt=0"`
	ArtworkID int64 `json:"artworkId" binding:"required,gt=0"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    int64  `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	Balance   string `json:"balance,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

type ProfileResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Balance  string `json:"balance"`
	PhotoKey string `json:"photoKey,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

type BalanceResponse struct {
	OK      bool   `json:"ok"`
	Balance string `json:"balance"`
}

type ArtworkResponse struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	ImageKey          string `json:"imageKey"`
	PublicURL         string `json:"publicUrl"`
	Price             string `json:"price"`
	IsAvailable       bool   `json:"isAvailable"`
	AcquisitionType   string `json:"acquisitionType,omitempty"`
	OriginalOwnerID   int64  `json:"originalOwnerId,omitempty"`
	OriginalOwnerName string `json:"originalOwnerName,omitempty"`
	CurrentOwnerID    int64  `json:"currentOwnerId,omitempty"`
	CurrentOwnerName  string `json:"currentOwnerName,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
}

type PurchaseResponse struct {
	OK        bool   `json:"ok"`
	ArtworkID int64  `json:"artworkId"`
	BuyerID   int64  `json:"buyerId"`
	SellerID  int64  `json:"sellerId"`
	Price     string `json:"price"`
}

type NotificationListResponse struct {
	Status        string         `json:"status"`
	Notifications []Notification `json:"notifications"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
