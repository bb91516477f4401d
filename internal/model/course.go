package model

import (
	"encoding/json"
	"fmt"
)

// CourseType is stored as a smallint code and exposed as its string name
// in the API ("rent", "free", "buy").
type CourseType int16

const (
	CourseTypeRent CourseType = 1
	CourseTypeFree CourseType = 2
	CourseTypeBuy  CourseType = 3
)

func (t CourseType) String() string {
	switch t {
	case CourseTypeRent:
		return "rent"
	case CourseTypeFree:
		return "free"
	case CourseTypeBuy:
		return "buy"
	}
	return "unknown"
}

func ParseCourseType(s string) (CourseType, error) {
	switch s {
	case "rent":
		return CourseTypeRent, nil
	case "free":
		return CourseTypeFree, nil
	case "buy":
		return CourseTypeBuy, nil
	}
	return 0, fmt.Errorf("unknown course type %q", s)
}

func (t CourseType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *CourseType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCourseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Course struct {
	ID    int64      `json:"-"`
	Code  string     `json:"code"`
	Type  CourseType `json:"type"`
	Price float64    `json:"price"`
	Title string     `json:"title"`
}

func (Course) TableName() string { return "courses" }

type CourseUpsertRequest struct {
	Code  string  `json:"code"`
	Type  string  `json:"type"`
	Price float64 `json:"price"`
	Title string  `json:"title"`
}

func (r CourseUpsertRequest) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("course code cannot be empty")
	}
	if r.Title == "" {
		return fmt.Errorf("course title cannot be empty")
	}
	if r.Price < 0 {
		return fmt.Errorf("course price cannot be negative")
	}
	if _, err := ParseCourseType(r.Type); err != nil {
		return err
	}
	return nil
}
