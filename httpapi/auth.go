package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"poker-lab/auth"
	"poker-lab/domain"
	"poker-lab/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type contextKey string

const claimsKey contextKey = "claims"

type registerRequest struct {
	UserName string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	UserName string `json:"username"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, fmt.Errorf("%w: %s", errors.ErrMalformed, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		a.writeError(w, fmt.Errorf("%w: %s", errors.ErrMalformed, err))
		return
	}
	if err := auth.ValidateUserName(req.UserName); err != nil {
		a.writeError(w, err)
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		a.writeError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         req.UserName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.CreateUser(user); err != nil {
		a.writeError(w, err)
		return
	}

	a.log.Info("User registered", "user", user.Name)
	writeJSON(w, http.StatusCreated, registerResponse{UserID: user.ID, UserName: user.Name})
}

type loginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, fmt.Errorf("%w: %s", errors.ErrMalformed, err))
		return
	}

	user, err := a.users.GetUserByName(req.UserName)
	if err != nil {
		// Same answer whether the name or the password was wrong.
		a.writeError(w, errors.ErrInvalidCredentials)
		return
	}
	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		a.writeError(w, errors.ErrInvalidCredentials)
		return
	}

	token, err := a.issuer.Generate(user.ID, user.Name, time.Now())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, UserID: user.ID})
}

// requireAuth rejects requests without a valid bearer token and stores the
// verified claims on the request context.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.writeError(w, errors.ErrInvalidCredentials)
			return
		}
		claims, err := a.issuer.Validate(token)
		if err != nil {
			a.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func callerClaims(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.Claims)
	return claims, ok
}
