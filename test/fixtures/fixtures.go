package fixtures

import (
	"time"

	"github.com/studyon/course-market/internal/model"
)

var (
	TestUser1 = model.User{
		ID:      1,
		Email:   "student@example.com",
		Roles:   []string{model.RoleUser},
		Balance: 1000,
	}

	TestUser2 = model.User{
		ID:      2,
		Email:   "another@example.com",
		Roles:   []string{model.RoleUser},
		Balance: 500,
	}

	TestAdmin = model.User{
		ID:      3,
		Email:   "admin@example.com",
		Roles:   []string{model.RoleUser, model.RoleAdmin},
		Balance: 0,
	}

	TestUserLowBalance = model.User{
		ID:      4,
		Email:   "broke@example.com",
		Roles:   []string{model.RoleUser},
		Balance: 1,
	}

	TestUserZeroBalance = model.User{
		ID:      5,
		Email:   "empty@example.com",
		Roles:   []string{model.RoleUser},
		Balance: 0,
	}
)

var (
	CourseBuy = model.Course{
		ID:    1,
		Code:  "go-basics",
		Type:  model.CourseTypeBuy,
		Price: 100,
		Title: "Go Basics",
	}

	CourseRent = model.Course{
		ID:    2,
		Code:  "sql-advanced",
		Type:  model.CourseTypeRent,
		Price: 50,
		Title: "SQL Advanced",
	}

	CourseFree = model.Course{
		ID:    3,
		Code:  "intro",
		Type:  model.CourseTypeFree,
		Price: 0,
		Title: "Introduction",
	}
)

func NewTestUser(id int64, email string, balance float64) *model.User {
	return &model.User{
		ID:           id,
		Email:        email,
		PasswordHash: "hash",
		Roles:        []string{model.RoleUser},
		Balance:      balance,
	}
}

func NewTestCourse(code string, courseType model.CourseType, price float64, title string) *model.Course {
	return &model.Course{
		Code:  code,
		Type:  courseType,
		Price: price,
		Title: title,
	}
}

func NewTestTransaction(customerID int64, courseID *int64, txnType model.TransactionType, amount float64) *model.Transaction {
	return &model.Transaction{
		CustomerID: customerID,
		CourseID:   courseID,
		Type:       txnType,
		Amount:     amount,
		Created:    time.Now(),
	}
}

func UserCreateRequestValid() model.UserCreateRequest {
	return model.UserCreateRequest{
		Email:    "new.student@example.com",
		Password: "secret123",
	}
}

func UserCreateRequestInvalidEmail() model.UserCreateRequest {
	return model.UserCreateRequest{
		Email:    "not-an-email",
		Password: "secret123",
	}
}

func CourseUpsertRequestBuy() model.CourseUpsertRequest {
	return model.CourseUpsertRequest{
		Code:  "go-basics",
		Type:  "buy",
		Price: 100,
		Title: "Go Basics",
	}
}

func CourseUpsertRequestRent() model.CourseUpsertRequest {
	return model.CourseUpsertRequest{
		Code:  "sql-advanced",
		Type:  "rent",
		Price: 50,
		Title: "SQL Advanced",
	}
}

func TransactionFilterByType(t model.TransactionType) model.TransactionFilter {
	return model.TransactionFilter{Type: &t}
}

func TransactionFilterByCourse(code string) model.TransactionFilter {
	return model.TransactionFilter{CourseCode: &code}
}

func TransactionFilterActive() model.TransactionFilter {
	return model.TransactionFilter{SkipExpired: true}
}
