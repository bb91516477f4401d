package model

import "time"

// ExpiringRental is one row of the expiring-soon report: a paid rental whose
// access window lapses within the next day.
type ExpiringRental struct {
	TransactionID int64     `json:"transaction_id"`
	CustomerID    int64     `json:"customer_id"`
	Email         string    `json:"email"`
	CourseTitle   string    `json:"course_title"`
	Expires       time.Time `json:"expires"`
}

// RevenueSummaryRow aggregates paid transactions per course title and type
// over a reporting window.
type RevenueSummaryRow struct {
	Title string     `json:"title"`
	Type  CourseType `json:"type"`
	Count int64      `json:"count"`
	Total float64    `json:"total"`
}

// Notice builds the queue payload for this rental.
func (r *ExpiringRental) Notice() RentExpiryNotice {
	return RentExpiryNotice{
		TransactionID: r.TransactionID,
		Email:         r.Email,
		CourseTitle:   r.CourseTitle,
		Expires:       r.Expires,
	}
}

// RentExpiryNotice is the queue payload the reporter publishes for every
// expiring rental; the notifier delivers it to the notification provider.
type RentExpiryNotice struct {
	TransactionID int64     `json:"transaction_id"`
	Email         string    `json:"email"`
	CourseTitle   string    `json:"course_title"`
	Expires       time.Time `json:"expires"`
}
