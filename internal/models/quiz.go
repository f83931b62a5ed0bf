package models

import "time"

// Quiz is the qualifying question attached 1:1 to a contest. CorrectAnswer is
// never serialized on the public view; callers only learn it after grading.
type Quiz struct {
	ID            string    `db:"id" json:"id"`
	ContestID     string    `db:"contest_id" json:"contest_id"`
	Question      string    `db:"question" json:"question"`
	Options       Options   `db:"options" json:"options"`
	CorrectAnswer int       `db:"correct_answer" json:"-"`
	Explanation   string    `db:"explanation" json:"explanation,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PublicView strips grading data for entrant consumption.
func (q *Quiz) PublicView() QuizPublic {
	return QuizPublic{
		ID:        q.ID,
		ContestID: q.ContestID,
		Question:  q.Question,
		Options:   []string(q.Options),
	}
}

// QuizPublic is the entrant-facing quiz representation.
type QuizPublic struct {
	ID        string   `json:"id"`
	ContestID string   `json:"contest_id"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
}

// QuizOutcome is returned once a submission has been graded.
type QuizOutcome struct {
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
	CorrectAnswer int    `json:"correct_answer"`
	Qualified     bool   `json:"qualified"`
}
