package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is one recurring service a user pays for.
type Subscription struct {
	ID              int             `db:"id" json:"id"`
	Email           string          `db:"email" json:"email"`
	Name            string          `db:"name" json:"name"`
	Cycle           string          `db:"cycle" json:"cycle"`
	NextBillingDate string          `db:"next_billing_date" json:"nextBillingDate"`
	Cost            decimal.Decimal `db:"cost" json:"cost"`
	Status          string          `db:"status" json:"status"`
	Link            string          `db:"link" json:"link,omitempty"`
	Note            string          `db:"note" json:"note,omitempty"`
	UpdatedAt       time.Time       `db:"updated_at" json:"-"`
}

// TableName returns the table name for the Subscription entity
func (Subscription) TableName() string {
	return "subscriptions"
}

// SubscriptionsResponse wraps the subscriptions of one user
type SubscriptionsResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

// Reminder tags, by days before the next billing date.
const (
	ReminderTag7 = "remind-7"
	ReminderTag4 = "remind-4"
	ReminderTag2 = "remind-2"
	ReminderTag1 = "remind-1"
)

// ReminderDays maps a reminder tag to the days left before billing.
var ReminderDays = map[string]int{
	ReminderTag7: 7,
	ReminderTag4: 4,
	ReminderTag2: 2,
	ReminderTag1: 1,
}

// ReminderRunResponse is returned by the manual reminder trigger
type ReminderRunResponse struct {
	OK        bool `json:"ok"`
	Reminders int  `json:"reminders"`
}
