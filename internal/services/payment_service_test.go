package services

import (
	"context"
	"errors"
	"testing"

	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/internal/repository"
	"github.com/studyon/course-market/pkg/prom"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) DeductBalance(ctx context.Context, userID int64, amount float64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) AddBalance(ctx context.Context, userID int64, amount float64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID int64, f model.TransactionFilter) ([]*model.Transaction, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func anyTxFn() interface{} {
	return mock.AnythingOfType("func(context.Context) error")
}

func TestPaymentService_Deposit_NonPositiveAmount(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	err := service.Deposit(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	err = service.Deposit(ctx, 1, -50)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	accountRepo.AssertNotCalled(t, "WithinTransaction", mock.Anything, mock.Anything)
	accountRepo.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Deposit_CreditsAndRecords(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("AddBalance", mock.Anything, int64(7), 250.0).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.CustomerID == 7 &&
			txn.Type == model.TransactionTypeDeposit &&
			txn.Amount == 250.0 &&
			txn.CourseID == nil &&
			txn.Expires == nil &&
			!txn.Created.IsZero()
	})).Return(&model.Transaction{ID: 1}, nil)

	err := service.Deposit(ctx, 7, 250.0)
	require.NoError(t, err)

	accountRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
}

func TestPaymentService_Deposit_UnknownUser(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("AddBalance", mock.Anything, int64(42), 10.0).
		Return(repository.ErrUserNotFound)

	err := service.Deposit(ctx, 42, 10.0)
	assert.ErrorIs(t, err, ErrUserNotFound)

	txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentService_Purchase_Buy(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	user := &model.User{ID: 3, Email: "student@example.com", Balance: 1000}
	course := &model.Course{ID: 11, Code: "go-basics", Type: model.CourseTypeBuy, Price: 199.99, Title: "Основы Go"}

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("DeductBalance", mock.Anything, int64(3), 199.99).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.CustomerID == 3 &&
			txn.CourseID != nil && *txn.CourseID == 11 &&
			txn.Type == model.TransactionTypePayment &&
			txn.Amount == 199.99 &&
			txn.Expires == nil
	})).Return(&model.Transaction{ID: 55, CustomerID: 3, Type: model.TransactionTypePayment, Amount: 199.99}, nil)

	entry, err := service.Purchase(ctx, user, course)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(55), entry.ID)
	assert.Nil(t, entry.Expires)
	require.NotNil(t, entry.CourseCode)
	assert.Equal(t, "go-basics", *entry.CourseCode)

	accountRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
}

func TestPaymentService_Purchase_RentSetsExpiry(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	user := &model.User{ID: 3, Balance: 500}
	course := &model.Course{ID: 12, Code: "sql-deep-dive", Type: model.CourseTypeRent, Price: 49.5}

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("DeductBalance", mock.Anything, int64(3), 49.5).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		// expiry is exactly the rent window past the entry's own timestamp
		return txn.Expires != nil && txn.Expires.Sub(txn.Created) == RentPeriod
	})).Return(&model.Transaction{ID: 56}, nil)

	entry, err := service.Purchase(ctx, user, course)
	require.NoError(t, err)
	require.NotNil(t, entry)

	txnRepo.AssertExpectations(t)
}

func TestPaymentService_Purchase_FreeRecordsZeroAmount(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	user := &model.User{ID: 9}
	course := &model.Course{ID: 13, Code: "intro", Type: model.CourseTypeFree, Price: 0}

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("DeductBalance", mock.Anything, int64(9), 0.0).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.Amount == 0 && txn.Expires == nil && txn.Type == model.TransactionTypePayment
	})).Return(&model.Transaction{ID: 57}, nil)

	entry, err := service.Purchase(ctx, user, course)
	require.NoError(t, err)
	assert.Nil(t, entry.Expires)
}

func TestPaymentService_Purchase_InsufficientFunds(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	user := &model.User{ID: 3, Balance: 10}
	course := &model.Course{ID: 11, Code: "go-basics", Type: model.CourseTypeBuy, Price: 199.99}

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("DeductBalance", mock.Anything, int64(3), 199.99).
		Return(repository.ErrInsufficientBalance)

	entry, err := service.Purchase(ctx, user, course)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Nil(t, entry)

	// no ledger entry may be written for a refused charge
	txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentService_Purchase_StoreErrorRollsBack(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	user := &model.User{ID: 3}
	course := &model.Course{ID: 11, Code: "go-basics", Type: model.CourseTypeBuy, Price: 20}

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("DeductBalance", mock.Anything, int64(3), 20.0).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	entry, err := service.Purchase(ctx, user, course)
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.Contains(t, err.Error(), "create payment entry")
}

func TestPaymentService_RecordsMetrics(t *testing.T) {
	require.NoError(t, prom.Create("test-host", "test", "course_market_test"))

	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	user := &model.User{ID: 1, Email: "metrics@study-on.ru"}
	course := &model.Course{ID: 2, Code: "go-basics", Type: model.CourseTypeBuy, Price: 200}

	accountRepo.On("WithinTransaction", ctx, anyTxFn()).Return(nil)
	accountRepo.On("DeductBalance", mock.Anything, int64(1), 200.0).Return(nil)
	accountRepo.On("AddBalance", mock.Anything, int64(1), 500.0).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.Anything).Return(&model.Transaction{ID: 1}, nil)

	transactions := prom.MetricCollectionCounterVec[prom.SystemPayments+prom.MetricTransactionsTotal]
	require.NotNil(t, transactions)
	basePayments := testutil.ToFloat64(transactions.WithLabelValues("payment"))
	baseDeposits := testutil.ToFloat64(transactions.WithLabelValues("deposit"))

	_, err := service.Purchase(ctx, user, course)
	require.NoError(t, err)
	require.NoError(t, service.Deposit(ctx, 1, 500))

	assert.Equal(t, basePayments+1, testutil.ToFloat64(transactions.WithLabelValues("payment")))
	assert.Equal(t, baseDeposits+1, testutil.ToFloat64(transactions.WithLabelValues("deposit")))

	amounts := prom.MetricCollectionHistogramVec[prom.SystemPayments+prom.MetricPurchaseAmount]
	require.NotNil(t, amounts)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(amounts), 1)
}

func TestPaymentService_History_Delegates(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	service := NewPaymentService(accountRepo, txnRepo)
	ctx := context.Background()

	paymentType := model.TransactionTypePayment
	f := model.TransactionFilter{Type: &paymentType, SkipExpired: true}
	expected := []*model.Transaction{{ID: 1}, {ID: 2}}

	txnRepo.On("ListByUser", ctx, int64(5), f).Return(expected, nil)

	entries, err := service.History(ctx, 5, f)
	require.NoError(t, err)
	assert.Equal(t, expected, entries)

	txnRepo.AssertExpectations(t)
}
