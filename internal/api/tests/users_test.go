package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artgallerycloud/server/internal/api/testutils"
	"github.com/artgallerycloud/server/internal/models"
)

func TestGetProfile(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	user, _ := testutils.CreateTestUser(t, testCtx, "viewer", decimal.NewFromInt(42))

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/users/%d", user.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ProfileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "viewer", resp.Username)
	assert.Equal(t, "42.00", resp.Balance)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/users/999999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "USER_NOT_FOUND")

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/users/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	// Register through the API so the current password is known
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/auth/register", models.RegisterRequest{
		Username: "renamer",
		FullName: "Old Name",
		Password: "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var reg models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	token := testutils.TokenFor(t, testCtx, reg.UserID)

	// Wrong current password is rejected
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut,
		fmt.Sprintf("/users/%d", reg.UserID),
		models.UpdateProfileRequest{FullName: "New Name", CurrentPassword: "wrong"},
		testutils.AuthHeaders(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "INVALID_CREDENTIALS")

	// Valid update changes the name and the password
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut,
		fmt.Sprintf("/users/%d", reg.UserID),
		models.UpdateProfileRequest{
			FullName:        "New Name",
			NewPassword:     "secret2",
			CurrentPassword: "secret1",
		},
		testutils.AuthHeaders(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/auth/login", models.LoginRequest{
		Username: "renamer",
		Password: "secret2",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "New Name", login.FullName)

	// The old password no longer works
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/auth/login", models.LoginRequest{
		Username: "renamer",
		Password: "secret1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTopUpBalance(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(t, testCtx)

	user, token := testutils.CreateTestUser(t, testCtx, "saver", decimal.NewFromInt(10))

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
		fmt.Sprintf("/users/%d/balance", user.ID),
		models.TopUpRequest{Amount: decimal.RequireFromString("25.50")},
		testutils.AuthHeaders(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.BalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "35.50", resp.Balance)

	// Zero and negative amounts are rejected
	for _, amount := range []string{"0", "-5"} {
		w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
			fmt.Sprintf("/users/%d/balance", user.ID),
			models.TopUpRequest{Amount: decimal.RequireFromString(amount)},
			testutils.AuthHeaders(token))
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %s", amount)
	}

	// Unknown user
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
		"/users/999999/balance",
		models.TopUpRequest{Amount: decimal.NewFromInt(5)},
		testutils.AuthHeaders(token))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assertErrorCode(t, w.Body.Bytes(), "USER_NOT_FOUND")

	// No token
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
		fmt.Sprintf("/users/%d/balance", user.ID),
		models.TopUpRequest{Amount: decimal.NewFromInt(5)}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
