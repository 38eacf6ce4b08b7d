package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/artgallerycloud/server/internal/models"
	"github.com/artgallerycloud/server/internal/repository"
	"github.com/artgallerycloud/server/internal/storage"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest, image *UploadedImage) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Profile
	GetProfile(ctx context.Context, userID int64) (*models.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) error
	TopUpBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)

	// Artworks
	PublishArtwork(ctx context.Context, userID int64, name string, price decimal.Decimal, image *UploadedImage) (*models.ArtworkResponse, error)
	ListMarketplace(ctx context.Context, limit, offset int) ([]models.ArtworkResponse, error)
	ListCreated(ctx context.Context, userID int64, limit, offset int) ([]models.ArtworkResponse, error)
	ListInventory(ctx context.Context, userID int64) ([]models.ArtworkResponse, error)

	// Purchase
	Purchase(ctx context.Context, buyerID, artworkID int64) (*models.PurchaseReceipt, error)

	// Notifications
	GetNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID int64) error
}

// UploadedImage carries a request image through to the image store.
type UploadedImage struct {
	Data        []byte
	ContentType string
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	store         storage.Store
	log           *logrus.Logger
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, store storage.Store, log *logrus.Logger, jwtSecret string) Service {
	return &DefaultService{
		repo:          repo,
		store:         store,
		log:           log,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}
}

// hashPassword produces the 16-hex-character truncated digest stored in
// users.password_hash. The row format is fixed; do not change it without a
// data migration.
func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])[:16]
}

// Authentication methods
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest, image *UploadedImage) (*models.AuthResponse, error) {
	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hashPassword(req.Password),
		Balance:      decimal.Zero,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	resp := &models.AuthResponse{
		Status:   "success",
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Balance:  user.Balance.StringFixed(2),
	}

	// The profile photo is optional and must not fail registration.
	if image != nil {
		key, err := s.store.Upload(ctx, image.Data, image.ContentType,
			storage.FolderProfilePhotos, fmt.Sprintf("u_%d", user.ID))
		if err == nil {
			err = s.repo.SetUserPhoto(ctx, user.ID, key)
		}
		if err != nil {
			s.log.WithError(err).WithField("userId", user.ID).Warn("Failed to store profile photo")
			resp.Warning = "profile photo could not be saved; the account was created without it"
		} else {
			resp.PhotoURL = s.store.PublicURL(key)
		}
	}

	s.notify(user.ID, models.NotificationSystem,
		"Welcome to ArtGalleryCloud!",
		fmt.Sprintf("Hi %s, your account was created successfully.", user.FullName))

	return resp, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user.PasswordHash != hashPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	resp := &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Balance:   user.Balance.StringFixed(2),
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}
	if user.PhotoKey.Valid {
		resp.PhotoURL = s.store.PublicURL(user.PhotoKey.String)
	}

	return resp, nil
}

// Profile methods
func (s *DefaultService) GetProfile(ctx context.Context, userID int64) (*models.ProfileResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &models.ProfileResponse{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Balance:  user.Balance.StringFixed(2),
	}
	if user.PhotoKey.Valid {
		resp.PhotoKey = user.PhotoKey.String
		resp.PhotoURL = s.store.PublicURL(user.PhotoKey.String)
	}

	return resp, nil
}

func (s *DefaultService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash != hashPassword(req.CurrentPassword) {
		return ErrInvalidCredentials
	}

	// Only non-empty fields are applied.
	var username, fullName, passwordHash *string
	if v := strings.TrimSpace(req.Username); v != "" {
		username = &v
	}
	if v := strings.TrimSpace(req.FullName); v != "" {
		fullName = &v
	}
	if strings.TrimSpace(req.NewPassword) != "" {
		h := hashPassword(req.NewPassword)
		passwordHash = &h
	}

	return s.repo.UpdateUserProfile(ctx, userID, username, fullName, passwordHash)
}

func (s *DefaultService) TopUpBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	balance, err := s.repo.AddBalance(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}

	s.notify(userID, models.NotificationSystem,
		"Balance topped up",
		fmt.Sprintf("Q%s was credited to your account.", amount.StringFixed(2)))

	return balance, nil
}

// Artwork methods
func (s *DefaultService) PublishArtwork(ctx context.Context, userID int64, name string, price decimal.Decimal, image *UploadedImage) (*models.ArtworkResponse, error) {
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	// Existence check first so a bad user id does not leave an orphan image
	// in the store.
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	key, err := s.store.Upload(ctx, image.Data, image.ContentType,
		storage.FolderArtworks, fmt.Sprintf("art_%d", userID))
	if err != nil {
		return nil, fmt.Errorf("error storing artwork image: %w", err)
	}

	artwork := &models.Artwork{
		Name:            name,
		OriginalOwnerID: userID,
		ImageKey:        key,
		Price:           price,
	}
	if err := s.repo.CreateArtwork(ctx, artwork); err != nil {
		return nil, err
	}

	s.notify(userID, models.NotificationSystem,
		"Artwork published",
		fmt.Sprintf("You published %q for Q%s.", name, price.StringFixed(2)))

	return &models.ArtworkResponse{
		ID:          artwork.ID,
		Name:        artwork.Name,
		ImageKey:    artwork.ImageKey,
		PublicURL:   s.store.PublicURL(artwork.ImageKey),
		Price:       artwork.Price.StringFixed(2),
		IsAvailable: artwork.IsAvailable,
	}, nil
}

func (s *DefaultService) ListMarketplace(ctx context.Context, limit, offset int) ([]models.ArtworkResponse, error) {
	listings, err := s.repo.ListMarketplace(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing marketplace: %w", err)
	}
	return s.toArtworkResponses(listings), nil
}

func (s *DefaultService) ListCreated(ctx context.Context, userID int64, limit, offset int) ([]models.ArtworkResponse, error) {
	listings, err := s.repo.ListArtworksByCreator(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing created artworks: %w", err)
	}
	return s.toArtworkResponses(listings), nil
}

func (s *DefaultService) ListInventory(ctx context.Context, userID int64) ([]models.ArtworkResponse, error) {
	listings, err := s.repo.ListArtworksByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing inventory: %w", err)
	}
	return s.toArtworkResponses(listings), nil
}

func (s *DefaultService) toArtworkResponses(listings []models.ArtworkListing) []models.ArtworkResponse {
	responses := make([]models.ArtworkResponse, 0, len(listings))
	for _, l := range listings {
		responses = append(responses, models.ArtworkResponse{
			ID:                l.ID,
			Name:              l.Name,
			ImageKey:          l.ImageKey,
			PublicURL:         s.store.PublicURL(l.ImageKey),
			Price:             l.Price.StringFixed(2),
			IsAvailable:       l.IsAvailable,
			AcquisitionType:   l.AcquisitionType,
			OriginalOwnerID:   l.OriginalOwnerID,
			OriginalOwnerName: l.OriginalOwnerName,
			CurrentOwnerID:    l.CurrentOwnerID,
			CurrentOwnerName:  l.CurrentOwnerName,
			CreatedAt:         l.CreatedAt.Format(time.RFC3339),
		})
	}
	return responses
}

// Purchase runs the purchase transaction and appends the buyer and seller
// notifications after a successful commit. Notifications are best-effort: a
// failure there never unwinds a committed purchase.
func (s *DefaultService) Purchase(ctx context.Context, buyerID, artworkID int64) (*models.PurchaseReceipt, error) {
	receipt, err := s.repo.PurchaseArtwork(ctx, buyerID, artworkID)
	if err != nil {
		return nil, err
	}

	price := receipt.Price.StringFixed(2)
	s.notify(receipt.BuyerID, models.NotificationPurchase,
		"Purchase completed",
		fmt.Sprintf("You bought %q for Q%s.", receipt.ArtworkName, price))
	s.notify(receipt.SellerID, models.NotificationSale,
		"Artwork sold",
		fmt.Sprintf("Your artwork %q was sold for Q%s.", receipt.ArtworkName, price))

	return receipt, nil
}

// Notification methods
func (s *DefaultService) GetNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetUserNotifications(ctx, userID)
}

func (s *DefaultService) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	return s.repo.MarkNotificationRead(ctx, userID, notificationID)
}

// notify appends a notification, logging and swallowing any failure. Uses a
// background context so a dropped client connection cannot cancel the write
// after the main operation already committed.
func (s *DefaultService) notify(userID int64, typ, title, body string) {
	n := &models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
	}
	if err := s.repo.CreateNotification(context.Background(), n); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"userId": userID,
			"type":   typ,
		}).Warn("Failed to append notification")
	}
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", user.ID), // subject
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
