package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/studyon/course-market/internal/model"
	xhttp "github.com/studyon/course-market/pkg/http"
)

type LedgerService interface {
	History(ctx context.Context, userID int64, f model.TransactionFilter) ([]*model.Transaction, error)
}

type TransactionHandler struct {
	ledger LedgerService
	auth   *Authenticator
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.GET("/transactions", h.ListTransactions)
}

func NewTransactionHandler(paymentService LedgerService, auth *Authenticator) *TransactionHandler {
	return &TransactionHandler{
		ledger: paymentService,
		auth:   auth,
	}
}

type transactionRow struct {
	ID         int64                 `json:"id"`
	Created    time.Time             `json:"created"`
	Type       model.TransactionType `json:"type"`
	CourseCode *string               `json:"courseCode,omitempty"`
	Amount     float64               `json:"amount"`
	Expires    *time.Time            `json:"expires,omitempty"`
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	user, ok := h.auth.Principal(ctx)
	if !ok {
		return
	}

	var f model.TransactionFilter
	if v := query(ctx, "type"); v != "" {
		t, err := model.ParseTransactionType(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, err.Error())
			return
		}
		f.Type = &t
	}
	if v := query(ctx, "course_code"); v != "" {
		f.CourseCode = &v
	}
	f.SkipExpired = queryBool(ctx, "skip_expired")

	entries, err := h.ledger.History(ctx, user.ID, f)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}

	rows := make([]transactionRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, transactionRow{
			ID:         e.ID,
			Created:    e.Created,
			Type:       e.Type,
			CourseCode: e.CourseCode,
			Amount:     e.Amount,
			Expires:    e.Expires,
		})
	}
	writeJSON(ctx, xhttp.StatusOK, rows)
}
