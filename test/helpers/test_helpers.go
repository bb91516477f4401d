package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/studyon/course-market/internal/repository"
	"github.com/studyon/course-market/pkg/pg"
	"github.com/studyon/course-market/pkg/redis"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.UserEntity{},
		&repository.CourseEntity{},
		&repository.TransactionEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestUser(t *testing.T, db *pg.DB, id int64, email string, balance float64) *repository.UserEntity {
	ctx := context.Background()
	user := &repository.UserEntity{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$04$test-hash",
		Roles:        `["ROLE_USER"]`,
		Balance:      balance,
	}
	err := db.Write(ctx).Create(user).Error
	require.NoError(t, err)
	return user
}

func CreateTestCourse(t *testing.T, db *pg.DB, code string, courseType int16, price float64, title string) *repository.CourseEntity {
	ctx := context.Background()
	course := &repository.CourseEntity{
		Code:  code,
		Type:  courseType,
		Price: price,
		Title: title,
	}
	err := db.Write(ctx).Create(course).Error
	require.NoError(t, err)
	return course
}

func CreateTestTransaction(t *testing.T, db *pg.DB, customerID int64, courseID *int64, txnType int16, amount float64, expires *time.Time) *repository.TransactionEntity {
	ctx := context.Background()
	txn := &repository.TransactionEntity{
		CustomerID: customerID,
		CourseID:   courseID,
		Type:       txnType,
		Amount:     amount,
		Created:    time.Now(),
		Expires:    expires,
	}
	err := db.Write(ctx).Create(txn).Error
	require.NoError(t, err)
	return txn
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
