package handlers

import (
	"context"
	"strings"

	"github.com/studyon/course-market/internal/auth"
	"github.com/studyon/course-market/internal/model"
	xhttp "github.com/studyon/course-market/pkg/http"
)

const (
	msgUnauthorized = "Вы не авторизованы!"
	msgForbidden    = "Недостаточно прав."
)

type UserProvider interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Authenticator resolves the Bearer token on a request into the account it
// names. Handlers that need a caller ask for it explicitly; there is no
// ambient request state.
type Authenticator struct {
	users  UserProvider
	secret []byte
}

func NewAuthenticator(users UserProvider, secret []byte) *Authenticator {
	return &Authenticator{
		users:  users,
		secret: secret,
	}
}

// Principal verifies the bearer token and loads the user. On failure it
// writes the 401 body and returns false.
func (a *Authenticator) Principal(ctx *xhttp.RequestCtx) (*model.User, bool) {
	const prefix = "Bearer "

	header := string(ctx.Request.Header.Peek("Authorization"))
	if !strings.HasPrefix(header, prefix) {
		writeError(ctx, xhttp.StatusUnauthorized, msgUnauthorized)
		return nil, false
	}

	claims, err := auth.ParseToken(strings.TrimSpace(header[len(prefix):]), a.secret)
	if err != nil {
		writeError(ctx, xhttp.StatusUnauthorized, msgUnauthorized)
		return nil, false
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		writeError(ctx, xhttp.StatusUnauthorized, msgUnauthorized)
		return nil, false
	}
	return user, true
}

// Admin is Principal plus a role check; writes 403 for non-admins.
func (a *Authenticator) Admin(ctx *xhttp.RequestCtx) (*model.User, bool) {
	user, ok := a.Principal(ctx)
	if !ok {
		return nil, false
	}
	if !user.IsAdmin() {
		writeError(ctx, xhttp.StatusForbidden, msgForbidden)
		return nil, false
	}
	return user, true
}
