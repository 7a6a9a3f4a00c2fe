// Package validation turns untyped request bodies and path parameters into
// normalized, typed records or an ordered list of field-level violations.
// Violations are data, not control flow: malformed input never panics.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	validator "github.com/go-playground/validator/v10"

	"github.com/vtarasenko/addrbook/internal/apperrors"
	"github.com/vtarasenko/addrbook/internal/models"
)

const pinCodeLength = 6

// Validator validates the request shapes declared in the models package.
type Validator struct {
	validate *validator.Validate
}

func validatePasswordChars(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	hasLetter := strings.ContainsFunc(value, unicode.IsLetter)
	hasDigit := strings.ContainsFunc(value, unicode.IsDigit)
	hasSpecial := strings.ContainsAny(value, "@$!%*?&")

	return hasLetter && hasDigit && hasSpecial
}

func validatePINCode(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()
	if len(value) != pinCodeLength {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func jsonTagName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// New builds a Validator with the custom rules registered.
func New() (*Validator, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonTagName)

	err := validate.RegisterValidation("passwordchars", validatePasswordChars)
	if err != nil {
		return nil, err
	}

	err = validate.RegisterValidation("pincode", validatePINCode)
	if err != nil {
		return nil, err
	}

	return &Validator{validate: validate}, nil
}

// ValidateCreateUser trims the request in place and validates it.
func (v *Validator) ValidateCreateUser(req *models.CreateUserRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	return v.check(req)
}

// ValidateUpdateUser trims the request in place and validates it.
func (v *Validator) ValidateUpdateUser(req *models.UpdateUserRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	return v.check(req)
}

// ValidateCreateAddress trims the request in place and validates it.
func (v *Validator) ValidateCreateAddress(req *models.CreateAddressRequest) error {
	trimAddress(req)
	return v.check(req)
}

// ValidateUpdateAddress trims the present fields in place and validates them.
// A patch with no recognized fields is itself a violation.
func (v *Validator) ValidateUpdateAddress(req *models.UpdateAddressRequest) error {
	if req.IsEmpty() {
		return apperrors.NewValidationError(apperrors.Violation{
			Field:   "body",
			Message: "No fields to update",
		})
	}

	trimIfPresent(req.AddressLine)
	trimIfPresent(req.City)
	trimIfPresent(req.State)
	trimIfPresent(req.PostalCode)
	trimIfPresent(req.Country)

	return v.check(req)
}

// ValidateCreateUserWithAddresses trims and validates the composite request.
func (v *Validator) ValidateCreateUserWithAddresses(req *models.CreateUserWithAddressesRequest) error {
	req.User.Name = strings.TrimSpace(req.User.Name)
	req.User.Email = strings.TrimSpace(req.User.Email)
	for i := range req.Addresses {
		trimAddress(&req.Addresses[i])
	}
	return v.check(req)
}

func trimAddress(req *models.CreateAddressRequest) {
	req.AddressLine = strings.TrimSpace(req.AddressLine)
	req.City = strings.TrimSpace(req.City)
	req.State = strings.TrimSpace(req.State)
	req.PostalCode = strings.TrimSpace(req.PostalCode)
	req.Country = strings.TrimSpace(req.Country)
}

func trimIfPresent(field *string) {
	if field != nil {
		*field = strings.TrimSpace(*field)
	}
}

func (v *Validator) check(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	violations := make([]apperrors.Violation, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		field := fieldPath(fe.Namespace())
		violations = append(violations, apperrors.Violation{
			Field:   field,
			Message: messageFor(fe, field),
		})
	}

	return apperrors.NewValidationError(violations...)
}

// fieldPath strips the root struct segment from a validator namespace, turning
// "CreateUserWithAddressesRequest.addresses[0].city" into "addresses[0].city".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func messageFor(fe validator.FieldError, field string) string {
	label := labelFor(field)

	switch fe.Tag() {
	case "required":
		return label + " is required"

	case "min":
		if fe.Kind() == reflect.Slice {
			return "At least one address is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())

	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())

	case "email":
		return "Invalid email format"

	case "passwordchars":
		return "Password must contain at least one letter, one digit and one special character (@$!%*?&)"

	case "pincode":
		return "Postal code must be a valid 6-digit PIN code"
	}

	return label + " is invalid"
}

// ParseID coerces a path parameter into a positive integer identifier.
// Coercion failure and non-positive values are validation errors, never
// a not-found.
func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(apperrors.Violation{
			Field:   field,
			Message: labelFor(field) + " must be a positive integer",
		})
	}
	return id, nil
}

// labelFor renders a human label for a JSON field path: the last path segment
// is split on camelCase boundaries, "id" is spelled "ID", and the first word
// is capitalized ("addresses[0].postalCode" → "Postal code").
func labelFor(field string) string {
	segment := field
	if idx := strings.LastIndex(segment, "."); idx >= 0 {
		segment = segment[idx+1:]
	}
	if idx := strings.Index(segment, "["); idx >= 0 {
		segment = segment[:idx]
	}

	words := splitCamelCase(segment)
	for i, word := range words {
		if word == "id" {
			words[i] = "ID"
		}
	}

	label := strings.Join(words, " ")
	if label == "" {
		return field
	}

	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func splitCamelCase(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, strings.ToLower(s[start:i]))
			start = i
		}
	}
	if start < len(s) {
		words = append(words, strings.ToLower(s[start:]))
	}
	return words
}
