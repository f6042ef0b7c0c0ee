/**
 * @description
 * HTTP handlers for the WishChain API. Handlers decode requests, call the app
 * service and map its errors onto status codes:
 * validation -> 400, not found -> 404, conflict -> 409, wrong role -> 403,
 * rate limited -> 429, anything else -> 500 with a generic message.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/app"
	"github.com/wishchain/wishchain-backend/internal/domain"
	"github.com/wishchain/wishchain-backend/internal/store"
)

const maxRequestBodyBytes = 1 << 20

// Service is the application surface used by the handlers.
type Service interface {
	Register(ctx context.Context, req app.RegistrationRequest) (*app.RegistrationResult, error)
	Login(ctx context.Context, email, password string, remember bool) (*app.LoginResult, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	ListCountries(ctx context.Context) ([]domain.Country, error)
	ListCities(ctx context.Context, query string) ([]app.CityOption, error)

	CreateWish(ctx context.Context, ownerID uuid.UUID, req app.CreateWishRequest) (*domain.Wish, error)
	GetWish(ctx context.Context, wishID uuid.UUID) (*domain.Wish, error)
	GetWisherDashboard(ctx context.Context, wisherID uuid.UUID) (*app.WisherDashboard, error)
	GetDonatePage(ctx context.Context) (*app.DonatePage, error)
	GetDonorDashboard(ctx context.Context, donorID uuid.UUID) (*app.DonorDashboard, error)
	GrantWish(ctx context.Context, wishID, donorID uuid.UUID, notes string) (*app.GrantResult, error)
}

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe *bool  `json:"remember_me"`
}

type grantRequest struct {
	Notes string `json:"notes"`
}

type grantResponse struct {
	Success bool `json:"success"`
	*app.GrantResult
}

func (h *Handler) handleRegisterWisher(w http.ResponseWriter, r *http.Request) {
	var req app.WisherRegistration
	if !decodeJSON(w, r, &req) {
		return
	}
	h.register(w, r, req)
}

func (h *Handler) handleRegisterDonor(w http.ResponseWriter, r *http.Request) {
	var req app.DonorRegistration
	if !decodeJSON(w, r, &req) {
		return
	}
	h.register(w, r, req)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, req app.RegistrationRequest) {
	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "register")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	remember := req.RememberMe == nil || *req.RememberMe

	result, err := h.service.Login(r.Context(), req.Email, req.Password, remember)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		h.writeServiceError(w, r, err, "login")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Account no longer exists")
			return
		}
		h.writeServiceError(w, r, err, "me")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.ListCountries(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "list_countries")
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (h *Handler) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.service.ListCities(r.Context(), r.URL.Query().Get("country_code"))
	if err != nil {
		if errors.Is(err, app.ErrCountryRequired) {
			writeError(w, http.StatusBadRequest, "Country code is required")
			return
		}
		h.writeServiceError(w, r, err, "list_cities")
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

func (h *Handler) handleCreateWish(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	var req app.CreateWishRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wish, err := h.service.CreateWish(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, r, err, "create_wish")
		return
	}
	writeJSON(w, http.StatusCreated, wish)
}

func (h *Handler) handleGetWish(w http.ResponseWriter, r *http.Request) {
	wishID, err := uuid.Parse(chi.URLParam(r, "wishID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid wish ID format")
		return
	}
	wish, err := h.service.GetWish(r.Context(), wishID)
	if err != nil {
		h.writeServiceError(w, r, err, "get_wish")
		return
	}
	writeJSON(w, http.StatusOK, wish)
}

func (h *Handler) handleWisherDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	dashboard, err := h.service.GetWisherDashboard(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err, "wisher_dashboard")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleDonatePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetDonatePage(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "donate_page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleDonorDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	dashboard, err := h.service.GetDonorDashboard(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err, "donor_dashboard")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleGrantWish(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	wishID, err := uuid.Parse(chi.URLParam(r, "wishID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid wish ID format")
		return
	}

	// The body is optional; it only carries notes.
	var req grantRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.service.GrantWish(r.Context(), wishID, userID, req.Notes)
	if err != nil {
		h.writeServiceError(w, r, err, "grant_wish")
		return
	}
	writeJSON(w, http.StatusOK, grantResponse{Success: true, GrantResult: result})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, endpoint string) {
	var verrs app.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": verrs})
		return
	}

	if msg, ok := app.ConflictMessage(err); ok {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "message": msg})
		return
	}

	var rlErr *app.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		w.Header().Set("Retry-After", strconv.Itoa(rlErr.RetryAfterSeconds))
		writeError(w, http.StatusTooManyRequests, "Too many attempts. Please try again shortly.")
	case errors.Is(err, store.ErrWishNotFound):
		writeError(w, http.StatusNotFound, "Wish not found.")
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, app.ErrForbiddenRole):
		writeError(w, http.StatusForbidden, "This action is not available for your account type.")
	default:
		h.logger.Error("request failed",
			"component", "api",
			"endpoint", endpoint,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
