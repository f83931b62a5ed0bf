package models

import "time"

// PaymentState tracks an entry's payment lifecycle.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "PENDING"
	PaymentStatePaid      PaymentState = "PAID"
	PaymentStateFailed    PaymentState = "FAILED"
	PaymentStateCancelled PaymentState = "CANCELLED"
)

// QuizState tracks whether the qualifying quiz has been attempted.
type QuizState string

const (
	QuizStateNotAttempted QuizState = "NOT_ATTEMPTED"
	QuizStateAttempted    QuizState = "ATTEMPTED"
)

// Entry is a user's participation record in one contest. The
// (user_id, contest_id) pair is enforced unique by the database, and the quiz
// fields are write-once: once QuizState is ATTEMPTED they never change again.
type Entry struct {
	ID              string       `db:"id" json:"id"`
	UserID          string       `db:"user_id" json:"user_id"`
	ContestID       string       `db:"contest_id" json:"contest_id"`
	PaymentState    PaymentState `db:"payment_state" json:"payment_state"`
	QuizState       QuizState    `db:"quiz_state" json:"quiz_state"`
	Qualified       bool         `db:"qualified" json:"qualified"`
	SelectedAnswer  *int         `db:"selected_answer" json:"selected_answer,omitempty"`
	QuizSubmittedAt *time.Time   `db:"quiz_submitted_at" json:"quiz_submitted_at,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// EntryDetail joins an entry with contest context for listings.
type EntryDetail struct {
	Entry
	ContestTitle    string `db:"contest_title" json:"contest_title"`
	ContestEntryFee int64  `db:"contest_entry_fee" json:"contest_entry_fee"`
}
