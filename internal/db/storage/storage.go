// Package storage declares the contract of the persistence gateway.
package storage

import (
	"context"

	"github.com/vtarasenko/addrbook/internal/models"
)

// Storage is the persistence gateway over the relational store. Every
// user-supplied value is parameter-bound by implementations; identifiers are
// never interpolated into query text.
type Storage interface {
	InsertUser(ctx context.Context, usr *models.User) (*models.User, error)

	InsertUserWithAddresses(
		ctx context.Context,
		usr *models.User,
		addresses []models.Address,
	) (*models.UserWithAddresses, error)

	FindUsers(ctx context.Context) ([]models.User, error)

	FindUserByID(ctx context.Context, id int64) (*models.User, error)

	IsUserExists(ctx context.Context, id int64) (bool, error)

	UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error)

	DeleteUser(ctx context.Context, id int64) error

	FindUsersWithoutAddresses(ctx context.Context) ([]models.User, error)

	FindAddressCounts(ctx context.Context) ([]models.UserAddressCount, error)

	InsertAddress(ctx context.Context, address *models.Address) (*models.Address, error)

	FindAddressesByUserID(ctx context.Context, userID int64) ([]models.Address, error)

	UpdateAddress(
		ctx context.Context,
		userID,
		addressID int64,
		patch *models.UpdateAddressRequest,
	) (*models.Address, error)

	DeleteAddress(ctx context.Context, userID, addressID int64) (*models.Address, error)

	Ping(ctx context.Context) error

	Close() error
}
