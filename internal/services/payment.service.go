package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/internal/repository"
	"github.com/studyon/course-market/pkg/prom"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrUserNotFound      = errors.New("user not found")
)

// RentPeriod is the fixed access window a rent-type purchase grants.
const RentPeriod = 7 * 24 * time.Hour

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	ListByUser(ctx context.Context, userID int64, f model.TransactionFilter) ([]*model.Transaction, error)
}

type AccountRepository interface {
	DeductBalance(ctx context.Context, userID int64, amount float64) error
	AddBalance(ctx context.Context, userID int64, amount float64) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentService is the only writer of balances and ledger entries. Every
// balance mutation commits together with exactly one ledger entry, inside
// one store transaction.
type PaymentService struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

func NewPaymentService(accountRepo AccountRepository, transactionRepo TransactionRepository) *PaymentService {
	return &PaymentService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// Deposit credits the user's balance and records a deposit ledger entry.
// Non-positive amounts are rejected before any state is touched.
func (s *PaymentService) Deposit(ctx context.Context, userID int64, amount float64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}

	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.accountRepo.AddBalance(ctx, userID, amount); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("add balance: %w", err)
		}

		txn := &model.Transaction{
			CustomerID: userID,
			Type:       model.TransactionTypeDeposit,
			Amount:     amount,
			Created:    time.Now(),
		}
		if _, err := s.transactionRepo.Create(ctx, txn); err != nil {
			return fmt.Errorf("create deposit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	prom.IncTransaction(model.TransactionTypeDeposit.String())
	return nil
}

// Purchase charges the course price against the user's balance and records
// the payment. The sufficiency check and the deduction run against one
// locked row inside the transaction, so concurrent purchases by the same
// user serialize instead of overdrawing. Rent-type courses get a 7-day
// expiry on the ledger entry; buy and free never do. Free courses still
// produce a zero-amount entry.
func (s *PaymentService) Purchase(ctx context.Context, user *model.User, course *model.Course) (*model.Transaction, error) {
	var created *model.Transaction

	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.accountRepo.DeductBalance(ctx, user.ID, course.Price); err != nil {
			if errors.Is(err, repository.ErrInsufficientBalance) {
				return ErrInsufficientFunds
			}
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("deduct balance: %w", err)
		}

		now := time.Now()
		txn := &model.Transaction{
			CustomerID: user.ID,
			CourseID:   &course.ID,
			Type:       model.TransactionTypePayment,
			Amount:     course.Price,
			Created:    now,
		}
		if course.Type == model.CourseTypeRent {
			expires := now.Add(RentPeriod)
			txn.Expires = &expires
		}

		entry, err := s.transactionRepo.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("create payment entry: %w", err)
		}
		entry.CourseCode = &course.Code
		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.IncTransaction(model.TransactionTypePayment.String())
	prom.ObservePurchaseAmount(course.Price, course.Type.String())

	return created, nil
}

// History returns the user's ledger entries, oldest first, narrowed by the
// optional filter fields.
func (s *PaymentService) History(ctx context.Context, userID int64, f model.TransactionFilter) ([]*model.Transaction, error) {
	return s.transactionRepo.ListByUser(ctx, userID, f)
}
