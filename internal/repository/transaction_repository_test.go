package repository

import (
	"context"
	"testing"
	"time"

	"github.com/studyon/course-market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T, db *testDB) (user *model.User, php, git *model.Course) {
	t.Helper()
	ctx := context.Background()

	users := NewUserRepository(db.DB)
	courses := NewCourseRepository(db.DB)

	var err error
	user, err = users.Create(ctx, newTestUser("student@study-on.ru", 10000))
	require.NoError(t, err)

	php, err = courses.Create(ctx, newTestCourse("PHP-1", model.CourseTypeBuy, 2000, "Введение в PHP"))
	require.NoError(t, err)
	git, err = courses.Create(ctx, newTestCourse("GIT-1", model.CourseTypeRent, 1000, "Введение в GIT"))
	require.NoError(t, err)
	return user, php, git
}

func TestTransactionRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	user, php, _ := seedLedger(t, db)

	t.Run("deposit has no course and no expiry", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Transaction{
			CustomerID: user.ID,
			Type:       model.TransactionTypeDeposit,
			Amount:     500,
			Created:    time.Now(),
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Nil(t, created.CourseID)
		assert.Nil(t, created.Expires)
	})

	t.Run("payment references its course", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Transaction{
			CustomerID: user.ID,
			CourseID:   &php.ID,
			Type:       model.TransactionTypePayment,
			Amount:     php.Price,
			Created:    time.Now(),
		})
		require.NoError(t, err)
		require.NotNil(t, created.CourseID)
		assert.Equal(t, php.ID, *created.CourseID)
	})
}

func TestTransactionRepository_ListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	user, php, git := seedLedger(t, db)

	now := time.Now()
	pastExpiry := now.Add(-time.Hour)
	futureExpiry := now.Add(6 * 24 * time.Hour)

	// Oldest first: a deposit, an expired rental of GIT-1, an active rental
	// of GIT-1, an outright purchase of PHP-1.
	entries := []*model.Transaction{
		{CustomerID: user.ID, Type: model.TransactionTypeDeposit, Amount: 5000, Created: now.Add(-72 * time.Hour)},
		{CustomerID: user.ID, CourseID: &git.ID, Type: model.TransactionTypePayment, Amount: 1000, Created: now.Add(-48 * time.Hour), Expires: &pastExpiry},
		{CustomerID: user.ID, CourseID: &git.ID, Type: model.TransactionTypePayment, Amount: 1000, Created: now.Add(-24 * time.Hour), Expires: &futureExpiry},
		{CustomerID: user.ID, CourseID: &php.ID, Type: model.TransactionTypePayment, Amount: 2000, Created: now.Add(-time.Hour)},
	}
	for _, e := range entries {
		_, err := repo.Create(ctx, e)
		require.NoError(t, err)
	}

	t.Run("no filter returns everything oldest first", func(t *testing.T) {
		got, err := repo.ListByUser(ctx, user.ID, model.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].Created.Before(got[i].Created))
		}
		assert.Equal(t, model.TransactionTypeDeposit, got[0].Type)
		assert.Nil(t, got[0].CourseCode)
	})

	t.Run("type filter", func(t *testing.T) {
		deposit := model.TransactionTypeDeposit
		got, err := repo.ListByUser(ctx, user.ID, model.TransactionFilter{Type: &deposit})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, float64(5000), got[0].Amount)
	})

	t.Run("course code filter excludes deposits", func(t *testing.T) {
		code := "GIT-1"
		got, err := repo.ListByUser(ctx, user.ID, model.TransactionFilter{CourseCode: &code})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, txn := range got {
			require.NotNil(t, txn.CourseCode)
			assert.Equal(t, "GIT-1", *txn.CourseCode)
		}
	})

	t.Run("skip expired keeps unexpired and non-expiring entries", func(t *testing.T) {
		got, err := repo.ListByUser(ctx, user.ID, model.TransactionFilter{SkipExpired: true})
		require.NoError(t, err)
		require.Len(t, got, 3)
		for _, txn := range got {
			if txn.Expires != nil {
				assert.True(t, txn.Expires.After(now))
			}
		}
	})

	t.Run("combined filters", func(t *testing.T) {
		payment := model.TransactionTypePayment
		code := "GIT-1"
		got, err := repo.ListByUser(ctx, user.ID, model.TransactionFilter{
			Type:        &payment,
			CourseCode:  &code,
			SkipExpired: true,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Expires)
		assert.True(t, got[0].Expires.After(now))
	})

	t.Run("results are scoped to the user", func(t *testing.T) {
		got, err := repo.ListByUser(ctx, 999, model.TransactionFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestTransactionRepository_FindExpiring(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	user, _, git := seedLedger(t, db)

	now := time.Now()
	in12h := now.Add(12 * time.Hour)
	in24h := now.Add(24 * time.Hour)
	in36h := now.Add(36 * time.Hour)
	ago1h := now.Add(-time.Hour)

	for _, expires := range []*time.Time{&in12h, &in24h, &in36h, &ago1h} {
		_, err := repo.Create(ctx, &model.Transaction{
			CustomerID: user.ID,
			CourseID:   &git.ID,
			Type:       model.TransactionTypePayment,
			Amount:     1000,
			Created:    now.Add(-6 * 24 * time.Hour),
			Expires:    expires,
		})
		require.NoError(t, err)
	}

	// Both window bounds are inclusive, so the rental lapsing exactly at
	// now+24h is still reported.
	got, err := repo.FindExpiring(ctx, now, in24h)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Введение в GIT", got[0].CourseTitle)
	assert.Equal(t, "student@study-on.ru", got[0].Email)
	assert.WithinDuration(t, in12h, got[0].Expires, time.Second)
	assert.WithinDuration(t, in24h, got[1].Expires, time.Second)
}

func TestTransactionRepository_RevenueSummary(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	user, php, git := seedLedger(t, db)
	courses := NewCourseRepository(db.DB)
	free, err := courses.Create(ctx, newTestCourse("FREE-1", model.CourseTypeFree, 0, "Бесплатный курс"))
	require.NoError(t, err)

	now := time.Now()
	start := now.Add(-30 * 24 * time.Hour)

	seed := []*model.Transaction{
		{CustomerID: user.ID, CourseID: &php.ID, Type: model.TransactionTypePayment, Amount: 2000, Created: now.Add(-time.Hour)},
		{CustomerID: user.ID, CourseID: &php.ID, Type: model.TransactionTypePayment, Amount: 2000, Created: now.Add(-2 * time.Hour)},
		{CustomerID: user.ID, CourseID: &git.ID, Type: model.TransactionTypePayment, Amount: 1000, Created: now.Add(-3 * time.Hour)},
		// free courses never hit the revenue report
		{CustomerID: user.ID, CourseID: &free.ID, Type: model.TransactionTypePayment, Amount: 0, Created: now.Add(-time.Hour)},
		// outside the window
		{CustomerID: user.ID, CourseID: &php.ID, Type: model.TransactionTypePayment, Amount: 2000, Created: start.Add(-time.Hour)},
	}
	for _, e := range seed {
		_, err := repo.Create(ctx, e)
		require.NoError(t, err)
	}

	rows, err := repo.RevenueSummary(ctx, start, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byTitle := map[string]*model.RevenueSummaryRow{}
	for _, row := range rows {
		byTitle[row.Title] = row
	}

	require.Contains(t, byTitle, "Введение в PHP")
	assert.Equal(t, int64(2), byTitle["Введение в PHP"].Count)
	assert.Equal(t, float64(4000), byTitle["Введение в PHP"].Total)
	assert.Equal(t, model.CourseTypeBuy, byTitle["Введение в PHP"].Type)

	require.Contains(t, byTitle, "Введение в GIT")
	assert.Equal(t, int64(1), byTitle["Введение в GIT"].Count)
	assert.Equal(t, float64(1000), byTitle["Введение в GIT"].Total)
}
