// Package mockstorage provides a testify-based mock implementation of the
// storage interface, used to unit test the service and router layers without
// a database.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vtarasenko/addrbook/internal/models"
)

// StorageMock is a testify mock implementing the persistence gateway
// contract.
type StorageMock struct {
	mock.Mock
}

// InsertUser mocks persisting a user row.
func (m *StorageMock) InsertUser(ctx context.Context, usr *models.User) (*models.User, error) {
	args := m.Called(ctx, usr)
	created, _ := args.Get(0).(*models.User)
	return created, args.Error(1)
}

// InsertUserWithAddresses mocks the transactional composite write.
func (m *StorageMock) InsertUserWithAddresses(
	ctx context.Context,
	usr *models.User,
	addresses []models.Address,
) (*models.UserWithAddresses, error) {
	args := m.Called(ctx, usr, addresses)
	created, _ := args.Get(0).(*models.UserWithAddresses)
	return created, args.Error(1)
}

// FindUsers mocks listing all users.
func (m *StorageMock) FindUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

// FindUserByID mocks the primary-key lookup.
func (m *StorageMock) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// IsUserExists mocks the user existence check.
func (m *StorageMock) IsUserExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// UpdateUser mocks replacing the mutable user fields.
func (m *StorageMock) UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error) {
	args := m.Called(ctx, id, name, email)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// DeleteUser mocks deleting a user row.
func (m *StorageMock) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// FindUsersWithoutAddresses mocks the zero-address aggregate.
func (m *StorageMock) FindUsersWithoutAddresses(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

// FindAddressCounts mocks the address-count aggregate.
func (m *StorageMock) FindAddressCounts(ctx context.Context) ([]models.UserAddressCount, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).([]models.UserAddressCount)
	return counts, args.Error(1)
}

// InsertAddress mocks persisting an address row.
func (m *StorageMock) InsertAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	args := m.Called(ctx, address)
	created, _ := args.Get(0).(*models.Address)
	return created, args.Error(1)
}

// FindAddressesByUserID mocks the scoped address lookup.
func (m *StorageMock) FindAddressesByUserID(ctx context.Context, userID int64) ([]models.Address, error) {
	args := m.Called(ctx, userID)
	addresses, _ := args.Get(0).([]models.Address)
	return addresses, args.Error(1)
}

// UpdateAddress mocks the scoped partial update.
func (m *StorageMock) UpdateAddress(
	ctx context.Context,
	userID,
	addressID int64,
	patch *models.UpdateAddressRequest,
) (*models.Address, error) {
	args := m.Called(ctx, userID, addressID, patch)
	updated, _ := args.Get(0).(*models.Address)
	return updated, args.Error(1)
}

// DeleteAddress mocks the scoped delete.
func (m *StorageMock) DeleteAddress(ctx context.Context, userID, addressID int64) (*models.Address, error) {
	args := m.Called(ctx, userID, addressID)
	deleted, _ := args.Get(0).(*models.Address)
	return deleted, args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
