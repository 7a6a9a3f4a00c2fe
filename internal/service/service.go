// Package service composes validation, password hashing and the persistence
// gateway into the business operations exposed over HTTP.
package service

import (
	"context"

	"github.com/vtarasenko/addrbook/internal/apperrors"
	"github.com/vtarasenko/addrbook/internal/models"
	"github.com/vtarasenko/addrbook/internal/validation"
)

type userKeeper interface {
	InsertUser(ctx context.Context, usr *models.User) (*models.User, error)

	FindUsers(ctx context.Context) ([]models.User, error)

	FindUserByID(ctx context.Context, id int64) (*models.User, error)

	IsUserExists(ctx context.Context, id int64) (bool, error)

	UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error)

	DeleteUser(ctx context.Context, id int64) error
}

type addressKeeper interface {
	InsertAddress(ctx context.Context, address *models.Address) (*models.Address, error)

	FindAddressesByUserID(ctx context.Context, userID int64) ([]models.Address, error)

	UpdateAddress(
		ctx context.Context,
		userID,
		addressID int64,
		patch *models.UpdateAddressRequest,
	) (*models.Address, error)

	DeleteAddress(ctx context.Context, userID, addressID int64) (*models.Address, error)
}

type compositeWriter interface {
	InsertUserWithAddresses(
		ctx context.Context,
		usr *models.User,
		addresses []models.Address,
	) (*models.UserWithAddresses, error)
}

type aggregator interface {
	FindUsersWithoutAddresses(ctx context.Context) ([]models.User, error)

	FindAddressCounts(ctx context.Context) ([]models.UserAddressCount, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	addressKeeper
	compositeWriter
	aggregator
	pinger
}

type passwordHasher interface {
	GenerateHash(password string) (string, error)
}

// Service implements the business operations over users and addresses.
type Service struct {
	db        storage
	hasher    passwordHasher
	validator *validation.Validator
}

// New wires the service with its collaborators.
func New(db storage, hasher passwordHasher, validator *validation.Validator) *Service {
	return &Service{
		db:        db,
		hasher:    hasher,
		validator: validator,
	}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.db.FindUsers(ctx)
}

// CreateUser validates the request, hashes the password and persists the user.
// The plaintext password never reaches the store.
func (s *Service) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.ValidateCreateUser(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.GenerateHash(req.Password)
	if err != nil {
		return nil, err
	}

	return s.db.InsertUser(ctx, &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
	})
}

// CreateUserWithAddresses validates the composite request and persists the
// user together with all its addresses in a single transaction.
func (s *Service) CreateUserWithAddresses(
	ctx context.Context,
	req *models.CreateUserWithAddressesRequest,
) (*models.UserWithAddresses, error) {
	if err := s.validator.ValidateCreateUserWithAddresses(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.GenerateHash(req.User.Password)
	if err != nil {
		return nil, err
	}

	addresses := make([]models.Address, 0, len(req.Addresses))
	for _, address := range req.Addresses {
		addresses = append(addresses, models.Address{
			AddressLine: address.AddressLine,
			City:        address.City,
			State:       address.State,
			PostalCode:  address.PostalCode,
			Country:     address.Country,
		})
	}

	return s.db.InsertUserWithAddresses(
		ctx,
		&models.User{
			Name:     req.User.Name,
			Email:    req.User.Email,
			Password: hash,
		},
		addresses,
	)
}

// GetUser returns a single user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.db.FindUserByID(ctx, id)
}

// UpdateUser validates the request and replaces the user's mutable fields.
func (s *Service) UpdateUser(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.ValidateUpdateUser(req); err != nil {
		return nil, err
	}

	return s.db.UpdateUser(ctx, id, req.Name, req.Email)
}

// DeleteUser removes the user and, through the store's cascade, its addresses.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.db.DeleteUser(ctx, id)
}

// UsersWithoutAddresses returns users owning zero addresses.
func (s *Service) UsersWithoutAddresses(ctx context.Context) ([]models.User, error) {
	return s.db.FindUsersWithoutAddresses(ctx)
}

// AddressCounts returns the per-user address count aggregate.
func (s *Service) AddressCounts(ctx context.Context) ([]models.UserAddressCount, error) {
	return s.db.FindAddressCounts(ctx)
}

// CreateAddress validates the request and persists an address owned by the
// given user. A missing owner fails with the user-not-found error before the
// insert is attempted.
func (s *Service) CreateAddress(
	ctx context.Context,
	userID int64,
	req *models.CreateAddressRequest,
) (*models.Address, error) {
	if err := s.validator.ValidateCreateAddress(req); err != nil {
		return nil, err
	}

	if err := s.checkUserExists(ctx, userID); err != nil {
		return nil, err
	}

	return s.db.InsertAddress(ctx, &models.Address{
		UserID:      userID,
		AddressLine: req.AddressLine,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
	})
}

// ListAddresses returns the user's addresses ordered by id.
func (s *Service) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	if err := s.checkUserExists(ctx, userID); err != nil {
		return nil, err
	}

	return s.db.FindAddressesByUserID(ctx, userID)
}

// UpdateAddress validates the patch and applies it to the address scoped to
// the owning user. The address-not-found error is only returned when the user
// itself exists.
func (s *Service) UpdateAddress(
	ctx context.Context,
	userID,
	addressID int64,
	req *models.UpdateAddressRequest,
) (*models.Address, error) {
	if err := s.validator.ValidateUpdateAddress(req); err != nil {
		return nil, err
	}

	if err := s.checkUserExists(ctx, userID); err != nil {
		return nil, err
	}

	return s.db.UpdateAddress(ctx, userID, addressID, req)
}

// DeleteAddress removes the address scoped to the owning user and returns the
// deleted row.
func (s *Service) DeleteAddress(ctx context.Context, userID, addressID int64) (*models.Address, error) {
	if err := s.checkUserExists(ctx, userID); err != nil {
		return nil, err
	}

	return s.db.DeleteAddress(ctx, userID, addressID)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) checkUserExists(ctx context.Context, userID int64) error {
	exists, err := s.db.IsUserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrUserNotFound
	}
	return nil
}
