package repository

import (
	"reflect"
	"testing"

	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&UserEntity{}, &CourseEntity{}, &TransactionEntity{})
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return &testDB{
		DB:    pgDB,
		rawDB: db,
	}
}

func newTestUser(email string, balance float64) *model.User {
	return &model.User{
		Email:        email,
		PasswordHash: "hash",
		Roles:        []string{model.RoleUser},
		Balance:      balance,
	}
}

func newTestCourse(code string, courseType model.CourseType, price float64, title string) *model.Course {
	return &model.Course{
		Code:  code,
		Type:  courseType,
		Price: price,
		Title: title,
	}
}
