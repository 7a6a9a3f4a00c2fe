// Package models contains the persisted entities and the request/response
// shapes of the HTTP API, with validation tags consumed by the
// validation package.
package models

import "time"

// User is a persisted user row. The password hash is never serialized.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Address is a persisted address row owned by a single user.
type Address struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	AddressLine string    `json:"addressLine"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	PostalCode  string    `json:"postalCode"`
	Country     string    `json:"country"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserWithAddresses is the shape returned by the composite create.
type UserWithAddresses struct {
	User
	Addresses []Address `json:"addresses"`
}

// UserAddressCount is one row of the per-user address count aggregate.
type UserAddressCount struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	AddressCount int64  `json:"addressCount"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,passwordchars"`
}

// UpdateUserRequest is the body of PUT /users/{id}. The password is
// immutable after creation and is deliberately absent here.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required,min=3,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// CreateAddressRequest is the body of POST /users/{userId}/addresses.
type CreateAddressRequest struct {
	AddressLine string `json:"addressLine" validate:"required,min=3,max=255"`
	City        string `json:"city" validate:"required,min=2,max=100"`
	State       string `json:"state" validate:"required,min=2,max=100"`
	PostalCode  string `json:"postalCode" validate:"required,pincode"`
	Country     string `json:"country" validate:"required,min=2,max=100"`
}

// UpdateAddressRequest is the body of PATCH /users/{userId}/addresses/{addressId}.
// Absent fields are left unchanged; a body with no recognized fields is a
// validation error.
type UpdateAddressRequest struct {
	AddressLine *string `json:"addressLine" validate:"omitempty,min=3,max=255"`
	City        *string `json:"city" validate:"omitempty,min=2,max=100"`
	State       *string `json:"state" validate:"omitempty,min=2,max=100"`
	PostalCode  *string `json:"postalCode" validate:"omitempty,pincode"`
	Country     *string `json:"country" validate:"omitempty,min=2,max=100"`
}

// IsEmpty reports whether no recognized field is present in the patch.
func (r *UpdateAddressRequest) IsEmpty() bool {
	return r.AddressLine == nil &&
		r.City == nil &&
		r.State == nil &&
		r.PostalCode == nil &&
		r.Country == nil
}

// CreateUserWithAddressesRequest is the body of POST /users/with-addresses.
type CreateUserWithAddressesRequest struct {
	User      CreateUserRequest      `json:"user"`
	Addresses []CreateAddressRequest `json:"addresses" validate:"min=1,dive"`
}
