package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/artgallerycloud/server/internal/models"
	"github.com/artgallerycloud/server/internal/repository"
	"github.com/artgallerycloud/server/internal/service"
)

const maxImageSize = 10 << 20 // 10 MiB

// Handler holds the HTTP handlers for the API
type Handler struct {
	svc service.Service
	log *logrus.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// SetupRoutes registers all routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	users := router.Group("/users")
	{
		users.GET("/:id", h.GetProfile)
		users.GET("/:id/notifications", h.GetNotifications)
		users.PUT("/:id", AuthMiddleware(), h.UpdateProfile)
		users.POST("/:id/balance", AuthMiddleware(), h.TopUpBalance)
		users.PUT("/:id/notifications/:notifId/read", AuthMiddleware(), h.MarkNotificationRead)
	}

	artworks := router.Group("/artworks")
	{
		artworks.GET("", h.ListMarketplace)
		artworks.GET("/created", h.ListCreated)
		artworks.GET("/mine", h.ListInventory)
		artworks.POST("/upload", AuthMiddleware(), h.UploadArtwork)
	}

	router.POST("/purchase", AuthMiddleware(), h.Purchase)
}

// Register handles POST /auth/register (JSON, or multipart with 'image')
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "username, full_name and password are required")
		return
	}

	image, err := h.readImageFile(c, "image")
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req, image)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetProfile handles GET /users/:id
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.svc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateProfile handles PUT /users/:id
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "current_password is required")
		return
	}

	if err := h.svc.UpdateProfile(c.Request.Context(), userID, req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TopUpBalance handles POST /users/:id/balance
func (h *Handler) TopUpBalance(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "amount must be a number > 0")
		return
	}

	balance, err := h.svc.TopUpBalance(c.Request.Context(), userID, req.Amount)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{OK: true, Balance: balance.StringFixed(2)})
}

// UploadArtwork handles POST /artworks/upload (multipart: image, userId, name, price)
func (h *Handler) UploadArtwork(c *gin.Context) {
	userID, err := strconv.ParseInt(c.PostForm("userId"), 10, 64)
	if err != nil || userID <= 0 {
		badRequest(c, "userId is required")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = strings.TrimSpace(c.PostForm("title"))
	}
	if name == "" {
		badRequest(c, "name is required")
		return
	}
	if len(name) > 255 {
		badRequest(c, "name must not exceed 255 characters")
		return
	}

	priceStr := c.PostForm("price")
	if priceStr == "" {
		priceStr = "0"
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.IsNegative() {
		badRequest(c, "price must be a number >= 0")
		return
	}

	image, err := h.readImageFile(c, "image")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if image == nil {
		badRequest(c, "image file is required")
		return
	}

	resp, err := h.svc.PublishArtwork(c.Request.Context(), userID, name, price, image)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListMarketplace handles GET /artworks
func (h *Handler) ListMarketplace(c *gin.Context) {
	limit, offset := pagination(c)

	resp, err := h.svc.ListMarketplace(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListCreated handles GET /artworks/created?userId=
func (h *Handler) ListCreated(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	resp, err := h.svc.ListCreated(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListInventory handles GET /artworks/mine?userId=
func (h *Handler) ListInventory(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.ListInventory(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Purchase handles POST /purchase
func (h *Handler) Purchase(c *gin.Context) {
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "buyerId and artworkId are required")
		return
	}

	receipt, err := h.svc.Purchase(c.Request.Context(), req.BuyerID, req.ArtworkID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PurchaseResponse{
		OK:        true,
		ArtworkID: receipt.ArtworkID,
		BuyerID:   receipt.BuyerID,
		SellerID:  receipt.SellerID,
		Price:     receipt.Price.StringFixed(2),
	})
}

// GetNotifications handles GET /users/:id/notifications
func (h *Handler) GetNotifications(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	notifications, err := h.svc.GetNotifications(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NotificationListResponse{
		Status:        "success",
		Notifications: notifications,
	})
}

// MarkNotificationRead handles PUT /users/:id/notifications/:notifId/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	notifID, ok := pathID(c, "notifId")
	if !ok {
		return
	}

	if err := h.svc.MarkNotificationRead(c.Request.Context(), userID, notifID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// readImageFile reads an optional multipart file field, enforcing the size
// limit. Returns nil when the request carries no file.
func (h *Handler) readImageFile(c *gin.Context, field string) (*service.UploadedImage, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		// JSON bodies and multipart bodies without the field both land here.
		return nil, nil
	}
	if fileHeader.Size > maxImageSize {
		return nil, errors.New("image exceeds the 10MB limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("could not read image file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, errors.New("could not read image file")
	}
	if int64(len(data)) > maxImageSize {
		return nil, errors.New("image exceeds the 10MB limit")
	}

	return &service.UploadedImage{
		Data:        data,
		ContentType: contentTypeOf(fileHeader),
	}, nil
}

func contentTypeOf(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// handleServiceError maps domain errors to HTTP responses with stable codes.
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrArtworkNotFound):
		respondError(c, http.StatusNotFound, "ARTWORK_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrBuyerNotFound):
		respondError(c, http.StatusNotFound, "BUYER_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrSellerNotFound):
		respondError(c, http.StatusNotFound, "SELLER_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrNotificationNotFound):
		respondError(c, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", err.Error())
	case errors.Is(err, repository.ErrArtworkUnavailable):
		respondError(c, http.StatusConflict, "ARTWORK_UNAVAILABLE", err.Error())
	case errors.Is(err, repository.ErrSelfPurchase):
		respondError(c, http.StatusConflict, "SELF_PURCHASE", err.Error())
	case errors.Is(err, repository.ErrInsufficientFunds):
		respondError(c, http.StatusConflict, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, repository.ErrConcurrencyConflict):
		respondError(c, http.StatusConflict, "CONCURRENCY_CONFLICT", err.Error())
	case errors.Is(err, repository.ErrDuplicateUsername):
		respondError(c, http.StatusConflict, "USERNAME_TAKEN", err.Error())
	case errors.Is(err, repository.ErrDuplicateImage):
		respondError(c, http.StatusConflict, "IMAGE_ALREADY_PUBLISHED", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidPrice):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		h.log.WithError(err).Error("Unhandled service error")
		respondError(c, http.StatusInternalServerError, "INTERNAL", "an unexpected error occurred")
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", message)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "userId is required")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > 200 {
		limit = 200
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
