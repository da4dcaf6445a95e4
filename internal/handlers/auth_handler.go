package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/shoplist/server/internal/models"
	"github.com/shoplist/server/internal/services"
)

// AuthHandler handles PIN setup, verification, and session teardown
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Setup configures the initial PIN and returns a session token
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req models.PINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.authService.SetupPin(r.Context(), req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPINInvalid):
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Error: "Invalid PIN", Message: "PIN must be 4-6 digits",
			})
		case errors.Is(err, models.ErrPINAlreadySet):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{
				Error: "PIN already set", Message: "PIN has already been configured",
			})
		default:
			log.Printf("Auth setup error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthSetupResponse{Success: true, Token: token})
}

// Verify checks the PIN and returns a session token on match
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.PINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "Missing PIN")
		return
	}

	token, err := h.authService.VerifyPin(r.Context(), req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPINNotSet):
			writeJSON(w, http.StatusNotFound, models.AuthCheckResponse{RequireSetup: true})
		case errors.Is(err, models.ErrPINMismatch):
			writeJSON(w, http.StatusUnauthorized, models.AuthVerifyResponse{
				Valid: false, Error: "Invalid PIN",
			})
		default:
			log.Printf("Auth verify error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, models.AuthVerifyResponse{Valid: true, Token: token})
}

// Check reports whether a PIN has been configured
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	configured, err := h.authService.IsPinConfigured(r.Context())
	if err != nil {
		log.Printf("Auth check error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, models.AuthCheckResponse{PinConfigured: configured})
}

// Logout invalidates the presented session token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token == authHeader {
		writeError(w, http.StatusBadRequest, "Missing bearer token")
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		log.Printf("Logout error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, models.DeleteResponse{Success: true})
}
