package repository

import (
	"github.com/studyon/course-market/internal/model"
)

type CourseEntity struct {
	ID    int64   `db:"id"    gorm:"primaryKey;autoIncrement;column:id"`
	Code  string  `db:"code"  gorm:"column:code;not null;unique"`
	Type  int16   `db:"type"  gorm:"column:type;not null"`
	Price float64 `db:"price" gorm:"column:price;not null"`
	Title string  `db:"title" gorm:"column:title;not null"`
}

func (CourseEntity) TableName() string {
	return "courses"
}

func toCourseEntity(m *model.Course) *CourseEntity {
	if m == nil {
		return nil
	}
	return &CourseEntity{
		ID:    m.ID,
		Code:  m.Code,
		Type:  int16(m.Type),
		Price: m.Price,
		Title: m.Title,
	}
}

func toCourseModel(e *CourseEntity) *model.Course {
	if e == nil {
		return nil
	}
	return &model.Course{
		ID:    e.ID,
		Code:  e.Code,
		Type:  model.CourseType(e.Type),
		Price: e.Price,
		Title: e.Title,
	}
}

func toCourseModels(entities []*CourseEntity) []*model.Course {
	if entities == nil {
		return nil
	}
	models := make([]*model.Course, len(entities))
	for i, e := range entities {
		models[i] = toCourseModel(e)
	}
	return models
}
