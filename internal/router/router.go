// Package router maps HTTP requests to the business operations and operation
// outcomes to status codes and JSON bodies.
package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vtarasenko/addrbook/internal/apperrors"
	"github.com/vtarasenko/addrbook/internal/gzippedhttp"
	"github.com/vtarasenko/addrbook/internal/logger"
	"github.com/vtarasenko/addrbook/internal/models"
	"github.com/vtarasenko/addrbook/internal/service"
	"github.com/vtarasenko/addrbook/internal/validation"
)

// Handler carries the HTTP handlers for all entity operations.
type Handler struct {
	svc *service.Service
}

// New builds the chi router with all routes and middleware attached.
func New(svc *service.Service) *chi.Mux {
	h := &Handler{svc: svc}

	router := chi.NewRouter()
	router.Use(logger.WithRequestIDMiddleware)
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(gzippedhttp.GzipResponse)
	router.Use(gzippedhttp.UngzipRequest)

	router.Route("/users", func(router chi.Router) {
		router.Get("/", h.GetUsers)
		router.Post("/", h.PostUser)
		router.Post("/with-addresses", h.PostUserWithAddresses)
		router.Get("/no-address", h.GetUsersWithoutAddress)
		router.Get("/address-count", h.GetAddressCounts)

		router.Route("/{id}", func(router chi.Router) {
			router.Get("/", h.GetUser)
			router.Put("/", h.PutUser)
			router.Delete("/", h.DeleteUser)

			router.Route("/addresses", func(router chi.Router) {
				router.Post("/", h.PostAddress)
				router.Get("/", h.GetAddresses)
				router.Patch("/{addressId}", h.PatchAddress)
				router.Delete("/{addressId}", h.DeleteAddress)
			})
		})
	})

	router.Get("/ping", h.GetPing)

	return router
}

// GetUsers handles GET /users.
func (h *Handler) GetUsers(res http.ResponseWriter, req *http.Request) {
	users, err := h.svc.ListUsers(req.Context())
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, users)
}

// PostUser handles POST /users.
func (h *Handler) PostUser(res http.ResponseWriter, req *http.Request) {
	var body models.CreateUserRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(req, res, err)
		return
	}

	created, err := h.svc.CreateUser(req.Context(), &body)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusCreated, created)
}

// PostUserWithAddresses handles POST /users/with-addresses.
func (h *Handler) PostUserWithAddresses(res http.ResponseWriter, req *http.Request) {
	var body models.CreateUserWithAddressesRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(req, res, err)
		return
	}

	created, err := h.svc.CreateUserWithAddresses(req.Context(), &body)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusCreated, created)
}

// GetUsersWithoutAddress handles GET /users/no-address.
func (h *Handler) GetUsersWithoutAddress(res http.ResponseWriter, req *http.Request) {
	users, err := h.svc.UsersWithoutAddresses(req.Context())
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, users)
}

// GetAddressCounts handles GET /users/address-count.
func (h *Handler) GetAddressCounts(res http.ResponseWriter, req *http.Request) {
	counts, err := h.svc.AddressCounts(req.Context())
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, counts)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(res http.ResponseWriter, req *http.Request) {
	id, err := validation.ParseID("id", chi.URLParam(req, "id"))
	if err != nil {
		writeError(req, res, err)
		return
	}

	usr, err := h.svc.GetUser(req.Context(), id)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, usr)
}

// PutUser handles PUT /users/{id}.
func (h *Handler) PutUser(res http.ResponseWriter, req *http.Request) {
	id, err := validation.ParseID("id", chi.URLParam(req, "id"))
	if err != nil {
		writeError(req, res, err)
		return
	}

	var body models.UpdateUserRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(req, res, err)
		return
	}

	updated, err := h.svc.UpdateUser(req.Context(), id, &body)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, updated)
}

// DeleteUser handles DELETE /users/{id}.
func (h *Handler) DeleteUser(res http.ResponseWriter, req *http.Request) {
	id, err := validation.ParseID("id", chi.URLParam(req, "id"))
	if err != nil {
		writeError(req, res, err)
		return
	}

	if err := h.svc.DeleteUser(req.Context(), id); err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, map[string]string{
		"message": "User deleted successfully",
	})
}

// PostAddress handles POST /users/{id}/addresses.
func (h *Handler) PostAddress(res http.ResponseWriter, req *http.Request) {
	userID, err := validation.ParseID("userId", chi.URLParam(req, "id"))
	if err != nil {
		writeError(req, res, err)
		return
	}

	var body models.CreateAddressRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(req, res, err)
		return
	}

	created, err := h.svc.CreateAddress(req.Context(), userID, &body)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusCreated, created)
}

// GetAddresses handles GET /users/{id}/addresses.
func (h *Handler) GetAddresses(res http.ResponseWriter, req *http.Request) {
	userID, err := validation.ParseID("userId", chi.URLParam(req, "id"))
	if err != nil {
		writeError(req, res, err)
		return
	}

	addresses, err := h.svc.ListAddresses(req.Context(), userID)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, addresses)
}

// PatchAddress handles PATCH /users/{id}/addresses/{addressId}.
func (h *Handler) PatchAddress(res http.ResponseWriter, req *http.Request) {
	userID, addressID, err := parseAddressScope(req)
	if err != nil {
		writeError(req, res, err)
		return
	}

	var body models.UpdateAddressRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(req, res, err)
		return
	}

	updated, err := h.svc.UpdateAddress(req.Context(), userID, addressID, &body)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, updated)
}

// DeleteAddress handles DELETE /users/{id}/addresses/{addressId}.
func (h *Handler) DeleteAddress(res http.ResponseWriter, req *http.Request) {
	userID, addressID, err := parseAddressScope(req)
	if err != nil {
		writeError(req, res, err)
		return
	}

	deleted, err := h.svc.DeleteAddress(req.Context(), userID, addressID)
	if err != nil {
		writeError(req, res, err)
		return
	}

	writeJSON(req, res, http.StatusOK, map[string]any{
		"message":        "Address deleted successfully",
		"deletedAddress": deleted,
	})
}

// GetPing handles GET /ping.
func (h *Handler) GetPing(res http.ResponseWriter, req *http.Request) {
	if err := h.svc.Ping(req.Context()); err != nil {
		writeError(req, res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

func parseAddressScope(req *http.Request) (userID, addressID int64, err error) {
	userID, err = validation.ParseID("userId", chi.URLParam(req, "id"))
	if err != nil {
		return 0, 0, err
	}

	addressID, err = validation.ParseID("addressId", chi.URLParam(req, "addressId"))
	if err != nil {
		return 0, 0, err
	}

	return userID, addressID, nil
}

func decodeJSON(req *http.Request, target any) error {
	if err := json.NewDecoder(req.Body).Decode(target); err != nil {
		return apperrors.NewValidationError(apperrors.Violation{
			Field:   "body",
			Message: "Invalid JSON body",
		})
	}
	return nil
}

func writeJSON(req *http.Request, res http.ResponseWriter, status int, payload any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)

	if err := json.NewEncoder(res).Encode(payload); err != nil {
		logger.Log.Errorln(
			"failed to encode response",
			"error", err,
			"requestID", logger.RequestID(req.Context()),
		)
	}
}

// writeError maps operation failures to status codes and sanitized JSON
// bodies. Internal detail is logged, never returned to the client.
func writeError(req *http.Request, res http.ResponseWriter, err error) {
	var validationErr *apperrors.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(req, res, http.StatusBadRequest, map[string]any{
			"errors": validationErr.Fields(),
		})

	case errors.Is(err, apperrors.ErrUserNotFound):
		writeJSON(req, res, http.StatusNotFound, map[string]string{
			"error": "User not found",
		})

	case errors.Is(err, apperrors.ErrAddressNotFound):
		writeJSON(req, res, http.StatusNotFound, map[string]string{
			"error": "Address not found for this user",
		})

	case errors.Is(err, apperrors.ErrEmailExists):
		writeJSON(req, res, http.StatusConflict, map[string]string{
			"error": "Duplicate entry: This email already exists.",
		})

	case errors.Is(err, apperrors.ErrInvalidReference):
		writeJSON(req, res, http.StatusBadRequest, map[string]string{
			"error": "Foreign key violation: Invalid reference.",
		})

	default:
		logger.Log.Errorln(
			"internal error",
			"error", err,
			"uri", req.RequestURI,
			"requestID", logger.RequestID(req.Context()),
		)
		writeJSON(req, res, http.StatusInternalServerError, map[string]string{
			"error": "Internal Server Error",
		})
	}
}
