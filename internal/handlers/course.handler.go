package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fasthttp/router"
	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/internal/services"
	xhttp "github.com/studyon/course-market/pkg/http"
)

const (
	msgInsufficientFunds = "На счету недостаточно средств."
	msgCourseExists      = "Курс с таким кодом уже существует."
)

func msgCourseNotFound(code string) string {
	return fmt.Sprintf("Курс с кодом «%s» не найден.", code)
}

type CourseService interface {
	List(ctx context.Context) ([]*model.Course, error)
	Get(ctx context.Context, code string) (*model.Course, error)
	Create(ctx context.Context, req model.CourseUpsertRequest) (*model.Course, error)
	Update(ctx context.Context, code string, req model.CourseUpsertRequest) (*model.Course, error)
}

type PaymentService interface {
	Purchase(ctx context.Context, user *model.User, course *model.Course) (*model.Transaction, error)
}

type CourseHandler struct {
	courses  CourseService
	payments PaymentService
	auth     *Authenticator
}

func RegisterCourseRoutes(e *router.Group, h *CourseHandler) {
	e.GET("/courses", h.ListCourses)
	e.GET("/courses/{code}", h.GetCourse)
	e.POST("/courses/new", h.CreateCourse)
	e.POST("/courses/{code}/pay", h.PayCourse)
	e.POST("/courses/{code}/edit", h.EditCourse)
}

func NewCourseHandler(courseService CourseService, paymentService PaymentService, auth *Authenticator) *CourseHandler {
	return &CourseHandler{
		courses:  courseService,
		payments: paymentService,
		auth:     auth,
	}
}

type payResponse struct {
	Success bool             `json:"success"`
	Type    model.CourseType `json:"type"`
	Expires *time.Time       `json:"expires,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *CourseHandler) ListCourses(ctx *xhttp.RequestCtx) {
	courses, err := h.courses.List(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}
	writeJSON(ctx, xhttp.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(ctx *xhttp.RequestCtx) {
	code := param(ctx, "code")

	course, err := h.courses.Get(ctx, code)
	if err != nil {
		if errors.Is(err, services.ErrCourseNotFound) {
			writeError(ctx, xhttp.StatusNotFound, msgCourseNotFound(code))
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}
	writeJSON(ctx, xhttp.StatusOK, course)
}

func (h *CourseHandler) PayCourse(ctx *xhttp.RequestCtx) {
	user, ok := h.auth.Principal(ctx)
	if !ok {
		return
	}
	code := param(ctx, "code")

	course, err := h.courses.Get(ctx, code)
	if err != nil {
		if errors.Is(err, services.ErrCourseNotFound) {
			writeError(ctx, xhttp.StatusNotFound, msgCourseNotFound(code))
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}

	entry, err := h.payments.Purchase(ctx, user, course)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientFunds) {
			writeError(ctx, xhttp.StatusNotAcceptable, msgInsufficientFunds)
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}

	writeJSON(ctx, xhttp.StatusOK, payResponse{
		Success: true,
		Type:    course.Type,
		Expires: entry.Expires,
	})
}

func (h *CourseHandler) CreateCourse(ctx *xhttp.RequestCtx) {
	if _, ok := h.auth.Admin(ctx); !ok {
		return
	}

	var req model.CourseUpsertRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.courses.Create(ctx, req); err != nil {
		if errors.Is(err, services.ErrCourseExists) {
			writeError(ctx, xhttp.StatusConflict, msgCourseExists)
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, successResponse{Success: true})
}

func (h *CourseHandler) EditCourse(ctx *xhttp.RequestCtx) {
	if _, ok := h.auth.Admin(ctx); !ok {
		return
	}
	code := param(ctx, "code")

	var req model.CourseUpsertRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.courses.Update(ctx, code, req); err != nil {
		switch {
		case errors.Is(err, services.ErrCourseNotFound):
			writeError(ctx, xhttp.StatusNotFound, msgCourseNotFound(code))
		case errors.Is(err, services.ErrCourseExists):
			writeError(ctx, xhttp.StatusConflict, msgCourseExists)
		default:
			writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		}
		return
	}
	writeJSON(ctx, xhttp.StatusOK, successResponse{Success: true})
}
