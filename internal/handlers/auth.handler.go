package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/internal/services"
	xhttp "github.com/studyon/course-market/pkg/http"
)

const (
	msgEmailTaken         = "Email уже используется."
	msgInvalidCredentials = "Invalid credentials."
)

type AuthService interface {
	Register(ctx context.Context, req model.UserCreateRequest) (*model.User, *services.TokenPair, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, *services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type AuthHandler struct {
	svc AuthService
}

func RegisterAuthRoutes(e *router.Group, h *AuthHandler) {
	e.POST("/register", h.Register)
	e.POST("/auth", h.Authenticate)
	e.POST("/token/refresh", h.RefreshToken)
}

func NewAuthHandler(userService AuthService) *AuthHandler {
	return &AuthHandler{
		svc: userService,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	Roles        []string `json:"roles,omitempty"`
}

func (h *AuthHandler) Register(ctx *xhttp.RequestCtx) {
	var req model.UserCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	user, pair, err := h.svc.Register(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(ctx, xhttp.StatusForbidden, msgEmailTaken)
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}

	writeJSON(ctx, xhttp.StatusCreated, tokenResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Roles:        user.Roles,
	})
}

func (h *AuthHandler) Authenticate(ctx *xhttp.RequestCtx) {
	var req credentialsRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	_, pair, err := h.svc.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(ctx, xhttp.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}

	writeJSON(ctx, xhttp.StatusOK, tokenResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) RefreshToken(ctx *xhttp.RequestCtx) {
	var req refreshRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(ctx, xhttp.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			writeError(ctx, xhttp.StatusUnauthorized, msgUnauthorized)
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}

	writeJSON(ctx, xhttp.StatusOK, tokenResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
