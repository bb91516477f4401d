package repository

import (
	"context"
	"errors"

	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrCourseNotFound is returned when no course carries the given code.
	ErrCourseNotFound = errors.New("course not found")
)

type CourseRepository struct {
	*pg.DB
}

func NewCourseRepository(db *pg.DB) *CourseRepository {
	return &CourseRepository{
		db,
	}
}

func (r *CourseRepository) Create(ctx context.Context, c *model.Course) (*model.Course, error) {
	entity := toCourseEntity(c)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCourseModel(entity), nil
}

func (r *CourseRepository) Update(ctx context.Context, c *model.Course) (*model.Course, error) {
	entity := toCourseEntity(c)

	result := r.Write(ctx).WithContext(ctx).
		Model(&CourseEntity{}).
		Where("id = ?", entity.ID).
		Updates(map[string]interface{}{
			"code":  entity.Code,
			"type":  entity.Type,
			"price": entity.Price,
			"title": entity.Title,
		})

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCourseNotFound
	}

	return toCourseModel(entity), nil
}

func (r *CourseRepository) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	var entity CourseEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("code = ?", code).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	return toCourseModel(&entity), nil
}

func (r *CourseRepository) List(ctx context.Context) ([]*model.Course, error) {
	var entities []*CourseEntity
	if err := r.Read(ctx).WithContext(ctx).Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toCourseModels(entities), nil
}
