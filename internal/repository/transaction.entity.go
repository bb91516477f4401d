package repository

import (
	"time"

	"github.com/studyon/course-market/internal/model"
)

type TransactionEntity struct {
	ID         int64      `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	CustomerID int64      `db:"customer_id" gorm:"column:customer_id;not null;index"`
	CourseID   *int64     `db:"course_id"   gorm:"column:course_id;index"`
	Type       int16      `db:"type"        gorm:"column:type;not null"`
	Amount     float64    `db:"amount"      gorm:"column:amount;not null"`
	Created    time.Time  `db:"created"     gorm:"column:created;not null;index"`
	Expires    *time.Time `db:"expires"     gorm:"column:expires"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

// transactionRowEntity is the joined shape produced by history queries:
// a transaction plus the referenced course code, when any.
type transactionRowEntity struct {
	TransactionEntity
	CourseCode *string `gorm:"column:course_code"`
}

// expiringRentalEntity is the joined shape of the expiring-soon report.
type expiringRentalEntity struct {
	TransactionID int64     `gorm:"column:transaction_id"`
	CustomerID    int64     `gorm:"column:customer_id"`
	Email         string    `gorm:"column:email"`
	CourseTitle   string    `gorm:"column:course_title"`
	Expires       time.Time `gorm:"column:expires"`
}

// revenueRowEntity is one group of the monthly revenue summary.
type revenueRowEntity struct {
	Title string  `gorm:"column:title"`
	Type  int16   `gorm:"column:type"`
	Count int64   `gorm:"column:count"`
	Total float64 `gorm:"column:total"`
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		CourseID:   m.CourseID,
		Type:       int16(m.Type),
		Amount:     m.Amount,
		Created:    m.Created,
		Expires:    m.Expires,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:         e.ID,
		CustomerID: e.CustomerID,
		CourseID:   e.CourseID,
		Type:       model.TransactionType(e.Type),
		Amount:     e.Amount,
		Created:    e.Created,
		Expires:    e.Expires,
	}
}

func toTransactionRowModel(e *transactionRowEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	m := toTransactionModel(&e.TransactionEntity)
	m.CourseCode = e.CourseCode
	return m
}

func toTransactionRowModels(entities []*transactionRowEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionRowModel(e)
	}
	return models
}

func toExpiringRentalModels(entities []*expiringRentalEntity) []*model.ExpiringRental {
	if entities == nil {
		return nil
	}
	models := make([]*model.ExpiringRental, len(entities))
	for i, e := range entities {
		models[i] = &model.ExpiringRental{
			TransactionID: e.TransactionID,
			CustomerID:    e.CustomerID,
			Email:         e.Email,
			CourseTitle:   e.CourseTitle,
			Expires:       e.Expires,
		}
	}
	return models
}

func toRevenueRowModels(entities []*revenueRowEntity) []*model.RevenueSummaryRow {
	if entities == nil {
		return nil
	}
	models := make([]*model.RevenueSummaryRow, len(entities))
	for i, e := range entities {
		models[i] = &model.RevenueSummaryRow{
			Title: e.Title,
			Type:  model.CourseType(e.Type),
			Count: e.Count,
			Total: e.Total,
		}
	}
	return models
}
