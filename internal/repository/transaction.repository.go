package repository

import (
	"context"
	"time"

	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/pkg/pg"
)

// paidCourseTypes limits report queries to courses money actually changes
// hands for: rent and buy.
var paidCourseTypes = []int16{int16(model.CourseTypeRent), int16(model.CourseTypeBuy)}

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// ListByUser returns one user's ledger, oldest first. The course code filter
// joins the courses table, so deposits (which reference no course) are
// excluded whenever it is present.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, f model.TransactionFilter) ([]*model.Transaction, error) {
	q := r.Read(ctx).WithContext(ctx).
		Table("transactions AS t").
		Select("t.id, t.customer_id, t.course_id, t.type, t.amount, t.created, t.expires, c.code AS course_code").
		Joins("LEFT JOIN courses AS c ON c.id = t.course_id").
		Where("t.customer_id = ?", userID)

	if f.Type != nil {
		q = q.Where("t.type = ?", int16(*f.Type))
	}
	if f.CourseCode != nil && *f.CourseCode != "" {
		q = q.Where("c.code = ?", *f.CourseCode)
	}
	if f.SkipExpired {
		q = q.Where("t.expires IS NULL OR t.expires >= ?", time.Now())
	}

	var entities []*transactionRowEntity
	if err := q.Order("t.created ASC").Find(&entities).Error; err != nil {
		return nil, err
	}

	return toTransactionRowModels(entities), nil
}

// FindExpiring returns paid rentals whose expiry falls in [from, to], both
// bounds inclusive, joined with the owning user so the notifier can address
// them.
func (r *TransactionRepository) FindExpiring(ctx context.Context, from, to time.Time) ([]*model.ExpiringRental, error) {
	var entities []*expiringRentalEntity

	err := r.Read(ctx).WithContext(ctx).
		Table("transactions AS t").
		Select("t.id AS transaction_id, t.customer_id, u.email, c.title AS course_title, t.expires").
		Joins("JOIN courses AS c ON c.id = t.course_id").
		Joins("JOIN users AS u ON u.id = t.customer_id").
		Where("c.type IN ?", paidCourseTypes).
		Where("t.expires >= ? AND t.expires <= ?", from, to).
		Order("t.expires ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toExpiringRentalModels(entities), nil
}

// RevenueSummary aggregates paid transactions created in [start, end) by
// course title and type.
func (r *TransactionRepository) RevenueSummary(ctx context.Context, start, end time.Time) ([]*model.RevenueSummaryRow, error) {
	var entities []*revenueRowEntity

	err := r.Read(ctx).WithContext(ctx).
		Table("transactions AS t").
		Select("c.title AS title, c.type AS type, COUNT(t.id) AS count, SUM(t.amount) AS total").
		Joins("JOIN courses AS c ON c.id = t.course_id").
		Where("c.type IN ?", paidCourseTypes).
		Where("t.created >= ? AND t.created < ?", start, end).
		Group("c.title, c.type").
		Order("c.title ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toRevenueRowModels(entities), nil
}
