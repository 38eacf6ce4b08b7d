package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artgallerycloud/server/internal/api"
	"github.com/artgallerycloud/server/internal/config"
	"github.com/artgallerycloud/server/internal/models"
	"github.com/artgallerycloud/server/internal/repository"
	"github.com/artgallerycloud/server/internal/service"
	"github.com/artgallerycloud/server/internal/storage"
	"github.com/artgallerycloud/server/internal/utils"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Service    service.Service
	JWTSecret  []byte
	DB         *sqlx.DB
	StorageDir string
}

// SetupTestContext creates a new test context with initialized dependencies.
// Skips the calling test when the test database is unreachable.
func SetupTestContext(t *testing.T) *TestContext {
	// Load configuration from environment
	cfg := config.LoadConfig()

	// Override with test-specific config
	if cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	} else {
		cfg.Database.DBName = "artgallery_test"
	}

	// Use a test JWT secret
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	// Short lock timeout so lock-contention tests fail fast instead of
	// hanging the suite.
	cfg.Purchase.LockTimeout = 2 * time.Second

	// Set up database
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		t.Skipf("Test database unavailable: %v", err)
	}

	// Image store writes under a throwaway directory
	storageDir, err := os.MkdirTemp("", "artgallery-test-*")
	require.NoError(t, err, "Failed to create storage temp dir")
	store, err := storage.NewLocalStore(storageDir)
	require.NoError(t, err, "Failed to set up local store")

	log := utils.NewLogger("error", "development")

	// Create repository
	repo := repository.NewPostgresRepository(db, cfg.Purchase.LockTimeout, cfg.Purchase.MaxRetries)

	// Create service
	svc := service.NewDefaultService(repo, store, log, cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc, log)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	ctx := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		JWTSecret:  []byte(cfg.Auth.JWTSecret),
		DB:         db,
		StorageDir: storageDir,
	}
	cleanupTestDatabase(t, ctx)

	return ctx
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *testing.T, ctx *TestContext) {
	if ctx.DB != nil {
		cleanupTestDatabase(t, ctx)
		ctx.DB.Close()
	}
	if ctx.StorageDir != "" {
		os.RemoveAll(ctx.StorageDir)
	}
}

// cleanupTestDatabase removes all rows, respecting foreign keys
func cleanupTestDatabase(t *testing.T, ctx *TestContext) {
	for _, table := range []string{"notifications", "artworks", "users"} {
		if _, err := ctx.DB.Exec("DELETE FROM " + table); err != nil && t != nil {
			t.Logf("Warning: Failed to clean %s: %v", table, err)
		}
	}
}

// CreateTestUser inserts a user with the given balance and returns the row
// and a valid bearer token for it.
func CreateTestUser(t *testing.T, ctx *TestContext, username string, balance decimal.Decimal) (*models.User, string) {
	user := &models.User{
		Username:     username,
		FullName:     "Test " + username,
		PasswordHash: "0123456789abcdef",
		Balance:      decimal.Zero,
	}
	err := ctx.Repository.CreateUser(context.Background(), user)
	require.NoError(t, err, "Failed to create test user")

	if balance.IsPositive() {
		_, err = ctx.Repository.AddBalance(context.Background(), user.ID, balance)
		require.NoError(t, err, "Failed to fund test user")
		user.Balance = balance
	}

	return user, TokenFor(t, ctx, user.ID)
}

// CreateTestArtwork inserts an available artwork owned by ownerID.
func CreateTestArtwork(t *testing.T, ctx *TestContext, ownerID int64, name string, price decimal.Decimal) *models.Artwork {
	artwork := &models.Artwork{
		Name:            name,
		OriginalOwnerID: ownerID,
		ImageKey:        fmt.Sprintf("Fotos_Publicadas/%s-%d.png", name, time.Now().UnixNano()),
		Price:           price,
	}
	err := ctx.Repository.CreateArtwork(context.Background(), artwork)
	require.NoError(t, err, "Failed to create test artwork")
	return artwork
}

// TokenFor generates a signed JWT for a user id.
func TokenFor(t *testing.T, ctx *TestContext, userID int64) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": fmt.Sprintf("%d", userID),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString(ctx.JWTSecret)
	assert.NoError(t, err, "Failed to generate JWT token")
	return tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// PerformMultipartRequest executes a multipart/form-data request with an
// optional file part.
func PerformMultipartRequest(r http.Handler, method, path string, fields map[string]string,
	fileField, fileName, fileContentType string, fileContent []byte, headers map[string]string) *httptest.ResponseRecorder {

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	if fileField != "" {
		partHeader := textproto.MIMEHeader{}
		partHeader.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, fileName))
		partHeader.Set("Content-Type", fileContentType)
		part, _ := writer.CreatePart(partHeader)
		_, _ = part.Write(fileContent)
	}

	writer.Close()

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
