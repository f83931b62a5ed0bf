package models

import "time"

// Contest represents a capacity-limited sweepstakes contest. Title and the
// rest of the descriptive metadata are owned by the admin CRUD layer; this
// service only ever mutates admitted_count.
type Contest struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	EntryFee      int64     `db:"entry_fee" json:"entry_fee"`
	Capacity      int       `db:"capacity" json:"capacity"`
	AdmittedCount int       `db:"admitted_count" json:"admitted_count"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// OpenAt reports whether the contest accepts admissions at the given instant.
func (c *Contest) OpenAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return !now.Before(c.StartTime) && now.Before(c.EndTime)
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
