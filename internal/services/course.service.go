package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/internal/repository"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrCourseExists   = errors.New("course code already exists")
)

type CourseRepository interface {
	Create(ctx context.Context, c *model.Course) (*model.Course, error)
	Update(ctx context.Context, c *model.Course) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	List(ctx context.Context) ([]*model.Course, error)
}

// CourseService is the catalog: course lookup for the payment flow plus the
// administrative create/edit operations.
type CourseService struct {
	courseRepo CourseRepository
}

func NewCourseService(courseRepo CourseRepository) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
	}
}

func (s *CourseService) List(ctx context.Context) ([]*model.Course, error) {
	return s.courseRepo.List(ctx)
}

func (s *CourseService) Get(ctx context.Context, code string) (*model.Course, error) {
	course, err := s.courseRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Create(ctx context.Context, req model.CourseUpsertRequest) (*model.Course, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	_, err := s.courseRepo.GetByCode(ctx, req.Code)
	if err == nil {
		return nil, ErrCourseExists
	}
	if !errors.Is(err, repository.ErrCourseNotFound) {
		return nil, fmt.Errorf("check course code: %w", err)
	}

	courseType, _ := model.ParseCourseType(req.Type)
	return s.courseRepo.Create(ctx, &model.Course{
		Code:  req.Code,
		Type:  courseType,
		Price: req.Price,
		Title: req.Title,
	})
}

// Update edits the course currently known by code. Renaming onto a code
// another course already holds is a conflict.
func (s *CourseService) Update(ctx context.Context, code string, req model.CourseUpsertRequest) (*model.Course, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	if req.Code != code {
		if _, err := s.courseRepo.GetByCode(ctx, req.Code); err == nil {
			return nil, ErrCourseExists
		} else if !errors.Is(err, repository.ErrCourseNotFound) {
			return nil, fmt.Errorf("check course code: %w", err)
		}
	}

	courseType, _ := model.ParseCourseType(req.Type)
	course.Code = req.Code
	course.Type = courseType
	course.Price = req.Price
	course.Title = req.Title

	return s.courseRepo.Update(ctx, course)
}
