package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionType is stored as a smallint code: 1=payment, 2=deposit.
type TransactionType int16

const (
	TransactionTypePayment TransactionType = 1
	TransactionTypeDeposit TransactionType = 2
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypePayment:
		return "payment"
	case TransactionTypeDeposit:
		return "deposit"
	}
	return "unknown"
}

func ParseTransactionType(s string) (TransactionType, error) {
	switch s {
	case "payment":
		return TransactionTypePayment, nil
	case "deposit":
		return TransactionTypeDeposit, nil
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

func (t TransactionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTransactionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Transaction is one immutable ledger entry. CourseID is nil for deposits.
// Expires is set only on payments for rent-type courses. CourseCode is
// populated by history queries that join the courses table.
type Transaction struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	CourseID   *int64          `json:"course_id,omitempty"`
	CourseCode *string         `json:"course_code,omitempty"`
	Type       TransactionType `json:"type"`
	Amount     float64         `json:"amount"`
	Created    time.Time       `json:"created"`
	Expires    *time.Time      `json:"expires,omitempty"`
}

func (Transaction) TableName() string { return "transactions" }

// TransactionFilter narrows a single user's history. Fields are
// independently optional.
type TransactionFilter struct {
	Type        *TransactionType
	CourseCode  *string
	SkipExpired bool
}
