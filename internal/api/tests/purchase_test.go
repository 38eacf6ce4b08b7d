package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artgallerycloud/server/internal/api/testutils"
	"github.com/artgallerycloud/server/internal/models"
)

func TestPurchaseSuccess(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	seller, _ := testutils.CreateTestUser(t, testCtx, "seller", decimal.NewFromInt(20))
	buyer, buyerToken := testutils.CreateTestUser(t, testCtx, "buyer", decimal.NewFromInt(150))
	artwork := testutils.CreateTestArtwork(t, testCtx, seller.ID, "Sunset", decimal.NewFromInt(100))

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: buyer.ID, ArtworkID: artwork.ID},
		testutils.AuthHeaders(buyerToken),
	)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.PurchaseResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, artwork.ID, resp.ArtworkID)
	assert.Equal(t, buyer.ID, resp.BuyerID)
	assert.Equal(t, seller.ID, resp.SellerID)
	assert.Equal(t, "100.00", resp.Price)

	// All four mutations are observable after the call
	buyerRow, err := testCtx.Repository.GetUserByID(context.Background(), buyer.ID)
	require.NoError(t, err)
	sellerRow, err := testCtx.Repository.GetUserByID(context.Background(), seller.ID)
	require.NoError(t, err)
	artRow, err := testCtx.Repository.GetArtwork(context.Background(), artwork.ID)
	require.NoError(t, err)

	assert.True(t, buyerRow.Balance.Equal(decimal.NewFromInt(50)),
		"buyer balance should be 50.00, got %s", buyerRow.Balance)
	assert.True(t, sellerRow.Balance.Equal(decimal.NewFromInt(120)),
		"seller balance should be 120.00, got %s", sellerRow.Balance)
	assert.Equal(t, buyer.ID, artRow.CurrentOwnerID)
	assert.Equal(t, seller.ID, artRow.OriginalOwnerID)
	assert.Equal(t, models.AcquisitionPurchased, artRow.AcquisitionType)
	assert.False(t, artRow.IsAvailable)

	// Buyer and seller each received a notification
	buyerNotifs, err := testCtx.Repository.GetUserNotifications(context.Background(), buyer.ID)
	require.NoError(t, err)
	require.NotEmpty(t, buyerNotifs)
	assert.Equal(t, models.NotificationPurchase, buyerNotifs[0].Type)

	sellerNotifs, err := testCtx.Repository.GetUserNotifications(context.Background(), seller.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sellerNotifs)
	assert.Equal(t, models.NotificationSale, sellerNotifs[0].Type)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	seller, _ := testutils.CreateTestUser(t, testCtx, "seller", decimal.NewFromInt(20))
	buyer, buyerToken := testutils.CreateTestUser(t, testCtx, "buyer", decimal.NewFromInt(50))
	artwork := testutils.CreateTestArtwork(t, testCtx, seller.ID, "Dawn", decimal.NewFromInt(100))

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: buyer.ID, ArtworkID: artwork.ID},
		testutils.AuthHeaders(buyerToken),
	)

	assert.Equal(t, http.StatusConflict, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "INSUFFICIENT_FUNDS")

	// No row changed
	buyerRow, err := testCtx.Repository.GetUserByID(context.Background(), buyer.ID)
	require.NoError(t, err)
	sellerRow, err := testCtx.Repository.GetUserByID(context.Background(), seller.ID)
	require.NoError(t, err)
	artRow, err := testCtx.Repository.GetArtwork(context.Background(), artwork.ID)
	require.NoError(t, err)

	assert.True(t, buyerRow.Balance.Equal(decimal.NewFromInt(50)))
	assert.True(t, sellerRow.Balance.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, seller.ID, artRow.CurrentOwnerID)
	assert.Equal(t, models.AcquisitionUploaded, artRow.AcquisitionType)
	assert.True(t, artRow.IsAvailable)
}

func TestPurchaseSelfPurchase(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	owner, ownerToken := testutils.CreateTestUser(t, testCtx, "owner", decimal.NewFromInt(500))
	artwork := testutils.CreateTestArtwork(t, testCtx, owner.ID, "Mirror", decimal.NewFromInt(100))

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: owner.ID, ArtworkID: artwork.ID},
		testutils.AuthHeaders(ownerToken),
	)

	assert.Equal(t, http.StatusConflict, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "SELF_PURCHASE")

	// Artwork state unchanged
	artRow, err := testCtx.Repository.GetArtwork(context.Background(), artwork.ID)
	require.NoError(t, err)
	assert.True(t, artRow.IsAvailable)
	assert.Equal(t, owner.ID, artRow.CurrentOwnerID)

	ownerRow, err := testCtx.Repository.GetUserByID(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.True(t, ownerRow.Balance.Equal(decimal.NewFromInt(500)))
}

func TestPurchaseUnavailableArtwork(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	seller, _ := testutils.CreateTestUser(t, testCtx, "seller", decimal.Zero)
	first, firstToken := testutils.CreateTestUser(t, testCtx, "first", decimal.NewFromInt(100))
	second, secondToken := testutils.CreateTestUser(t, testCtx, "second", decimal.NewFromInt(100))
	artwork := testutils.CreateTestArtwork(t, testCtx, seller.ID, "Unique", decimal.NewFromInt(60))

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: first.ID, ArtworkID: artwork.ID},
		testutils.AuthHeaders(firstToken),
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The piece is sold; everyone else fails on availability regardless of
	// balance
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: second.ID, ArtworkID: artwork.ID},
		testutils.AuthHeaders(secondToken),
	)
	assert.Equal(t, http.StatusConflict, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "ARTWORK_UNAVAILABLE")

	// A repeat of the original call is not idempotent: it fails on
	// availability too (the availability check precedes the ownership check)
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: first.ID, ArtworkID: artwork.ID},
		testutils.AuthHeaders(firstToken),
	)
	assert.Equal(t, http.StatusConflict, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "ARTWORK_UNAVAILABLE")
}

func TestPurchaseNotFoundAndInvalid(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	buyer, buyerToken := testutils.CreateTestUser(t, testCtx, "buyer", decimal.NewFromInt(100))

	// Unknown artwork
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: buyer.ID, ArtworkID: 999999},
		testutils.AuthHeaders(buyerToken),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "ARTWORK_NOT_FOUND")

	// Malformed identifiers never open a transaction
	for _, body := range []map[string]interface{}{
		{"buyerId": 0, "artworkId": 1},
		{"buyerId": -3, "artworkId": 1},
		{"buyerId": buyer.ID},
		{},
	} {
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/purchase",
			body,
			testutils.AuthHeaders(buyerToken),
		)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %v", body)
	}

	// No token
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: buyer.ID, ArtworkID: 1},
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPurchaseUnknownBuyer(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	seller, sellerToken := testutils.CreateTestUser(t, testCtx, "seller", decimal.Zero)
	artwork := testutils.CreateTestArtwork(t, testCtx, seller.ID, "Orphan", decimal.NewFromInt(10))

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/purchase",
		models.PurchaseRequest{BuyerID: 999999, ArtworkID: artwork.ID},
		testutils.AuthHeaders(sellerToken),
	)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "BUYER_NOT_FOUND")
}

func assertErrorCode(t *testing.T, body []byte, expected string) {
	t.Helper()
	var resp models.ErrorResponse
	err := json.Unmarshal(body, &resp)
	assert.NoError(t, err)
	assert.Equal(t, expected, resp.Code)
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.Message)
}
