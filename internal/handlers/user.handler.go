package handlers

import (
	"github.com/fasthttp/router"
	xhttp "github.com/studyon/course-market/pkg/http"
)

type UserHandler struct {
	auth *Authenticator
}

func RegisterUserRoutes(e *router.Group, h *UserHandler) {
	e.GET("/users/current", h.CurrentUser)
}

func NewUserHandler(auth *Authenticator) *UserHandler {
	return &UserHandler{
		auth: auth,
	}
}

type currentUserResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Balance  float64  `json:"balance"`
}

func (h *UserHandler) CurrentUser(ctx *xhttp.RequestCtx) {
	user, ok := h.auth.Principal(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, xhttp.StatusOK, currentUserResponse{
		Username: user.Email,
		Roles:    user.Roles,
		Balance:  user.Balance,
	})
}
