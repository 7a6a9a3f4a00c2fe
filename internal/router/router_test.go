package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vtarasenko/addrbook/internal/apperrors"
	"github.com/vtarasenko/addrbook/internal/hasher"
	"github.com/vtarasenko/addrbook/internal/logger"
	"github.com/vtarasenko/addrbook/internal/mockstorage"
	"github.com/vtarasenko/addrbook/internal/models"
	"github.com/vtarasenko/addrbook/internal/service"
	"github.com/vtarasenko/addrbook/internal/validation"
)

func newTestServer(t *testing.T) (*httptest.Server, *mockstorage.StorageMock) {
	t.Helper()

	require.NoError(t, logger.Init("error"))

	db := &mockstorage.StorageMock{}

	validator, err := validation.New()
	require.NoError(t, err)

	server := httptest.NewServer(New(service.New(db, hasher.New(1), validator)))
	t.Cleanup(server.Close)

	return server, db
}

func newClient(server *httptest.Server) *resty.Client {
	return resty.New().SetBaseURL(server.URL)
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(body, &result))
	return result
}

func TestPostUserValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"Al","email":"a@b.com","password":"abc123!"}`).
		Post("/users")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	fieldErrors, ok := body["errors"].(map[string]any)
	require.True(t, ok, "expected structured errors field, got %v", body)
	assert.Contains(t, fieldErrors, "name")
}

func TestPostUserCreated(t *testing.T) {
	server, db := newTestServer(t)

	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db.On("InsertUser", mock.Anything, mock.Anything).Return(&models.User{
		ID:        1,
		Name:      "Alice",
		Email:     "a@b.com",
		Password:  "$2a$10$hash",
		CreatedAt: createdAt,
	}, nil)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"Alice","email":"a@b.com","password":"abc123!"}`).
		Post("/users")

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "Alice", body["name"])
	assert.Equal(t, "a@b.com", body["email"])
	assert.Contains(t, body, "createdAt")
	assert.NotContains(t, body, "password", "the password hash must never be serialized")
}

func TestPostUserDuplicateEmail(t *testing.T) {
	server, db := newTestServer(t)

	db.On("InsertUser", mock.Anything, mock.Anything).Return(nil, apperrors.ErrEmailExists)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"Alice","email":"a@b.com","password":"abc123!"}`).
		Post("/users")

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "Duplicate entry: This email already exists.", body["error"])
}

func TestPostUserMalformedJSON(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":`).
		Post("/users")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestGetUserInvalidID(t *testing.T) {
	server, _ := newTestServer(t)

	for _, raw := range []string{"abc", "0", "-5"} {
		resp, err := newClient(server).R().Get("/users/" + raw)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode(), "id %q", raw)
	}
}

func TestGetUserNotFound(t *testing.T) {
	server, db := newTestServer(t)

	db.On("FindUserByID", mock.Anything, int64(7)).Return(nil, apperrors.ErrUserNotFound)

	resp, err := newClient(server).R().Get("/users/7")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "User not found", body["error"])
}

func TestGetUserIdempotentReads(t *testing.T) {
	server, db := newTestServer(t)

	db.On("FindUserByID", mock.Anything, int64(1)).Return(&models.User{
		ID:        1,
		Name:      "Alice",
		Email:     "a@b.com",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}, nil)

	client := newClient(server)

	first, err := client.R().Get("/users/1")
	require.NoError(t, err)
	second, err := client.R().Get("/users/1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, first.StatusCode())
	assert.Equal(t, first.Body(), second.Body())
}

func TestGetUsers(t *testing.T) {
	server, db := newTestServer(t)

	db.On("FindUsers", mock.Anything).Return([]models.User{
		{ID: 1, Name: "Alice", Email: "a@b.com"},
		{ID: 2, Name: "Bob", Email: "b@b.com"},
	}, nil)

	resp, err := newClient(server).R().Get("/users")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var users []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0]["name"])
}

func TestGetUsersStoreFailure(t *testing.T) {
	server, db := newTestServer(t)

	db.On("FindUsers", mock.Anything).Return(nil, errors.New("connection refused"))

	resp, err := newClient(server).R().Get("/users")

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "Internal Server Error", body["error"], "raw store errors must not leak")
}

func TestPutUser(t *testing.T) {
	server, db := newTestServer(t)

	db.On("UpdateUser", mock.Anything, int64(1), "Alice", "new@b.com").Return(&models.User{
		ID:    1,
		Name:  "Alice",
		Email: "new@b.com",
	}, nil)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"Alice","email":"new@b.com"}`).
		Put("/users/1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "new@b.com", body["email"])
}

func TestDeleteUser(t *testing.T) {
	server, db := newTestServer(t)

	db.On("DeleteUser", mock.Anything, int64(1)).Return(nil)

	resp, err := newClient(server).R().Delete("/users/1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "User deleted successfully", body["message"])
}

func TestPostUserWithAddresses(t *testing.T) {
	server, db := newTestServer(t)

	db.On("InsertUserWithAddresses", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.UserWithAddresses{
			User: models.User{ID: 1, Name: "Alice", Email: "a@b.com"},
			Addresses: []models.Address{
				{ID: 10, UserID: 1, AddressLine: "1 Main Street", City: "Pune", State: "Maharashtra", PostalCode: "411001", Country: "India"},
			},
		}, nil)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{
			"user": {"name":"Alice","email":"a@b.com","password":"abc123!"},
			"addresses": [{"addressLine":"1 Main Street","city":"Pune","state":"Maharashtra","postalCode":"411001","country":"India"}]
		}`).
		Post("/users/with-addresses")

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	addresses, ok := body["addresses"].([]any)
	require.True(t, ok)
	assert.Len(t, addresses, 1)
	assert.NotContains(t, body, "password")
}

func TestPostUserWithAddressesRequiresAddress(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"user": {"name":"Alice","email":"a@b.com","password":"abc123!"}, "addresses": []}`).
		Post("/users/with-addresses")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestGetUsersWithoutAddress(t *testing.T) {
	server, db := newTestServer(t)

	db.On("FindUsersWithoutAddresses", mock.Anything).Return([]models.User{
		{ID: 5, Name: "Carol", Email: "c@d.com"},
	}, nil)

	resp, err := newClient(server).R().Get("/users/no-address")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestGetAddressCounts(t *testing.T) {
	server, db := newTestServer(t)

	db.On("FindAddressCounts", mock.Anything).Return([]models.UserAddressCount{
		{ID: 1, Name: "Alice", AddressCount: 2},
		{ID: 2, Name: "Bob", AddressCount: 0},
	}, nil)

	resp, err := newClient(server).R().Get("/users/address-count")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var counts []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body(), &counts))
	require.Len(t, counts, 2)
	assert.Equal(t, float64(2), counts[0]["addressCount"])
}

func TestPostAddressPostalCodeScenarios(t *testing.T) {
	server, db := newTestServer(t)

	db.On("IsUserExists", mock.Anything, int64(1)).Return(true, nil)
	db.On("InsertAddress", mock.Anything, mock.Anything).Return(&models.Address{
		ID:          10,
		UserID:      1,
		AddressLine: "1 Main Street",
		City:        "Pune",
		State:       "Maharashtra",
		PostalCode:  "123456",
		Country:     "India",
	}, nil)

	client := newClient(server)

	fiveDigits, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"addressLine":"1 Main Street","city":"Pune","state":"Maharashtra","postalCode":"12345","country":"India"}`).
		Post("/users/1/addresses")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, fiveDigits.StatusCode())

	sixDigits, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"addressLine":"1 Main Street","city":"Pune","state":"Maharashtra","postalCode":"123456","country":"India"}`).
		Post("/users/1/addresses")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, sixDigits.StatusCode())
}

func TestPostAddressUserNotFound(t *testing.T) {
	server, db := newTestServer(t)

	db.On("IsUserExists", mock.Anything, int64(99)).Return(false, nil)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"addressLine":"1 Main Street","city":"Pune","state":"Maharashtra","postalCode":"411001","country":"India"}`).
		Post("/users/99/addresses")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "User not found", body["error"])
}

func TestGetAddresses(t *testing.T) {
	server, db := newTestServer(t)

	db.On("IsUserExists", mock.Anything, int64(1)).Return(true, nil)
	db.On("FindAddressesByUserID", mock.Anything, int64(1)).Return([]models.Address{
		{ID: 1, UserID: 1, AddressLine: "1 Main Street"},
	}, nil)

	resp, err := newClient(server).R().Get("/users/1/addresses")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestPatchAddressEmptyBody(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{}`).
		Patch("/users/1/addresses/3")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	fieldErrors, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	messages, ok := fieldErrors["body"].([]any)
	require.True(t, ok)
	assert.Contains(t, messages, "No fields to update")
}

func TestPatchAddress(t *testing.T) {
	server, db := newTestServer(t)

	db.On("IsUserExists", mock.Anything, int64(1)).Return(true, nil)
	db.On("UpdateAddress", mock.Anything, int64(1), int64(3), mock.Anything).
		Return(&models.Address{ID: 3, UserID: 1, City: "Mumbai"}, nil)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"city":"Mumbai"}`).
		Patch("/users/1/addresses/3")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "Mumbai", body["city"])
}

func TestDeleteAddressOwnershipIsolation(t *testing.T) {
	server, db := newTestServer(t)

	db.On("IsUserExists", mock.Anything, int64(2)).Return(true, nil)
	db.On("DeleteAddress", mock.Anything, int64(2), int64(3)).
		Return(nil, apperrors.ErrAddressNotFound)

	resp, err := newClient(server).R().Delete("/users/2/addresses/3")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "Address not found for this user", body["error"])
}

func TestDeleteAddressEchoesDeletedRow(t *testing.T) {
	server, db := newTestServer(t)

	db.On("IsUserExists", mock.Anything, int64(1)).Return(true, nil)
	db.On("DeleteAddress", mock.Anything, int64(1), int64(3)).
		Return(&models.Address{ID: 3, UserID: 1, City: "Pune"}, nil)

	resp, err := newClient(server).R().Delete("/users/1/addresses/3")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	body := decodeBody(t, resp.Body())
	assert.Equal(t, "Address deleted successfully", body["message"])
	deleted, ok := body["deletedAddress"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), deleted["id"])
}

func TestDeleteAddressInvalidIDs(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := newClient(server).R().Delete("/users/abc/addresses/3")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp, err = newClient(server).R().Delete("/users/1/addresses/xyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestRequestIDHeader(t *testing.T) {
	server, db := newTestServer(t)

	db.On("FindUsers", mock.Anything).Return([]models.User{}, nil)

	resp, err := newClient(server).R().Get("/users")

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header().Get(logger.RequestIDHeader))
}
