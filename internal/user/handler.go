package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/exxpenses/exxpenses/internal/auth"
	"github.com/exxpenses/exxpenses/internal/httputil"
	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/validate"
)

// Handler contains HTTP handlers for account endpoints
type Handler struct {
	service        *Service
	tokens         auth.TokenService
	isProduction   bool
	accessDuration time.Duration
}

func NewHandler(service *Service, tokens auth.TokenService, isProduction bool, accessDuration time.Duration) *Handler {
	return &Handler{
		service:        service,
		tokens:         tokens,
		isProduction:   isProduction,
		accessDuration: accessDuration,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on register and login.
type SessionResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type PreferredCurrencyRequest struct {
	Currency string `json:"currency"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// OkResponse reports whether a boolean operation affected exactly one row.
type OkResponse struct {
	Ok bool `json:"ok"`
}

// Register handles user registration
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /users/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Firstname, req.Lastname, req.Email, req.Password)
	if err != nil {
		var ferr *validate.FieldError
		if errors.As(err, &ferr) {
			httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
			return
		}
		logger.Error("registration failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)
	h.respondSession(w, r, newUser, http.StatusCreated)
}

// Login handles user login
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} SessionResponse
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Router       /users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	existing, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httputil.RespondErrorWithCode(w, "incorrect email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	h.respondSession(w, r, existing, http.StatusOK)
}

// Logout clears the session cookie.
// @Summary      Log out
// @Tags         auth
// @Success      200 {object} OkResponse
// @Router       /users/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.RespondJSON(w, OkResponse{Ok: true}, http.StatusOK)
}

// Me returns the current account.
// @Summary      Current user
// @Tags         user
// @Security     BearerAuth
// @Success      200 {object} User
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	current, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Account deleted from another session
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("failed to load user", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, current, http.StatusOK)
}

// SendVerificationEmail issues a new verification token for the signed-in user.
func (h *Handler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	sent, err := h.service.SendVerificationEmail(r.Context(), userID)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to send verification email", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: sent}, http.StatusOK)
}

// VerifyEmail redeems an email verification token.
// @Summary      Verify email
// @Tags         auth
// @Param        request body TokenRequest true "Verification token"
// @Success      200 {object} OkResponse
// @Router       /users/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	verified, err := h.service.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("email verification failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: verified}, http.StatusOK)
}

// ForgotPassword starts password recovery. Responds ok regardless of whether
// the email belongs to an account.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.RequestPasswordRecovery(r.Context(), req.Email); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("password recovery failed", "error", err.Error())
	}

	httputil.RespondJSON(w, OkResponse{Ok: true}, http.StatusOK)
}

// ValidateRecoveryToken checks a recovery token without consuming it.
func (h *Handler) ValidateRecoveryToken(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	httputil.RespondJSON(w, OkResponse{Ok: h.service.IsRecoveryTokenValid(r.Context(), tok)}, http.StatusOK)
}

// ResetPassword redeems a recovery token and sets a new password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	ok, err := h.service.SetNewPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		var ferr *validate.FieldError
		if errors.As(err, &ferr) {
			httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("password reset failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: ok}, http.StatusOK)
}

// ChangePassword replaces the password after verifying the old one.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	changed, err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		var ferr *validate.FieldError
		if errors.As(err, &ferr) {
			httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("password change failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: changed}, http.StatusOK)
}

// SetPreferredCurrency updates the user's display currency.
func (h *Handler) SetPreferredCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req PreferredCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.SetPreferredCurrency(r.Context(), userID, req.Currency)
	if err != nil {
		var ferr *validate.FieldError
		if errors.As(err, &ferr) {
			httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("currency update failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: updated}, http.StatusOK)
}

// DeleteAccount removes the account after confirming the password.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	deleted, err := h.service.DeleteAccount(r.Context(), userID, req.Password)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("account deletion failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if deleted {
		h.Logout(w, r)
		return
	}
	httputil.RespondJSON(w, OkResponse{Ok: false}, http.StatusOK)
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, u *User, status int) {
	logger := logging.GetLoggerFromContext(r.Context())

	accessToken, err := h.tokens.CreateToken(u.ID, u.Email, h.accessDuration)
	if err != nil {
		logger.Error("failed to create access token", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.accessDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	httputil.RespondJSON(w, SessionResponse{User: u, AccessToken: accessToken}, status)
}
