package models

import (
	"time"
)

// Recognized bucket names within a section
const (
	BucketTerm   = "term"
	BucketEasy   = "easy"
	BucketMedium = "medium"
	BucketHard   = "hard"
	BucketOther  = "other"
)

// ExamSet status values
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
)

// RawRecord is a loosely-typed bank entry as decoded from JSON, YAML or CSV.
type RawRecord map[string]any

// QuestionRecord struct represents a validated question
type QuestionRecord struct {
	ID            string   `json:"id"`
	Stem          string   `json:"stem"`
	Figure        *string  `json:"figure"` // Pointer to allow NULL
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"` // 'A', 'B', 'C' ...
	Section       string   `json:"section"`
	Difficulty    *int     `json:"difficulty,omitempty"` // 1 easy, 2 medium, 3 hard
	Term          bool     `json:"term,omitempty"`
	GroupID       *string  `json:"group_id,omitempty"`
	Explanation   *string  `json:"explanation,omitempty"`
	BankIndex     int      `json:"-"` // Position in the source bank
}

// Clone returns a copy that shares no slices or pointers with q.
func (q QuestionRecord) Clone() QuestionRecord {
	out := q
	out.Choices = append([]string(nil), q.Choices...)
	out.Figure = clonePtr(q.Figure)
	out.Difficulty = clonePtr(q.Difficulty)
	out.GroupID = clonePtr(q.GroupID)
	out.Explanation = clonePtr(q.Explanation)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DifficultyQuota holds the required count per difficulty bucket
type DifficultyQuota struct {
	Easy   int `json:"easy" mapstructure:"easy" yaml:"easy"`
	Medium int `json:"medium" mapstructure:"medium" yaml:"medium"`
	Hard   int `json:"hard" mapstructure:"hard" yaml:"hard"`
}

// SectionSpec struct represents the quota configuration of one exam section
type SectionSpec struct {
	Name       string          `json:"name" mapstructure:"name" yaml:"name"`
	Title      string          `json:"title" mapstructure:"title" yaml:"title"`
	Total      int             `json:"total" mapstructure:"total" yaml:"total"`
	Difficulty DifficultyQuota `json:"difficulty" mapstructure:"difficulty" yaml:"difficulty"`
	Terms      int             `json:"terms" mapstructure:"terms" yaml:"terms"`
	TimeLimit  int             `json:"time_limit_seconds" mapstructure:"time_limit_seconds" yaml:"time_limit_seconds"`
}

// Buckets holds the categorized questions of a single section
type Buckets struct {
	Term   []QuestionRecord `json:"term"`
	Easy   []QuestionRecord `json:"easy"`
	Medium []QuestionRecord `json:"medium"`
	Hard   []QuestionRecord `json:"hard"`
	Other  []QuestionRecord `json:"other"`
}

// Len returns the number of questions across all buckets.
func (b *Buckets) Len() int {
	return len(b.Term) + len(b.Easy) + len(b.Medium) + len(b.Hard) + len(b.Other)
}

// All returns every bucketed question in easy, medium, hard, term, other order.
func (b *Buckets) All() []QuestionRecord {
	all := make([]QuestionRecord, 0, b.Len())
	all = append(all, b.Easy...)
	all = append(all, b.Medium...)
	all = append(all, b.Hard...)
	all = append(all, b.Term...)
	all = append(all, b.Other...)
	return all
}

// Counts reports the bucket sizes keyed by bucket name.
func (b *Buckets) Counts() map[string]int {
	return map[string]int{
		BucketTerm:   len(b.Term),
		BucketEasy:   len(b.Easy),
		BucketMedium: len(b.Medium),
		BucketHard:   len(b.Hard),
		BucketOther:  len(b.Other),
	}
}

// SectionOutcome describes how one section of an ExamSet was filled
type SectionOutcome struct {
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Delivered int    `json:"delivered"`
	Shortfall int    `json:"shortfall"`
	Fallback  bool   `json:"fallback"` // Drawn from all sections because this one had no questions
	Offset    int    `json:"offset"`   // Index of the section's first question in ExamSet.Questions
	TimeLimit int    `json:"time_limit_seconds"`
}

// ExamSet struct represents one assembled exam
type ExamSet struct {
	ID                     string           `json:"exam_set_id"`
	CreatedAt              time.Time        `json:"created_at"`
	Status                 string           `json:"status"`
	Questions              []QuestionRecord `json:"questions"`
	Sections               []SectionOutcome `json:"sections"`
	Skipped                int              `json:"skipped"`
	SkipReasons            map[string]int   `json:"skip_reasons,omitempty"`
	DuplicateChoiceRecords []string         `json:"duplicate_choice_records,omitempty"`
}

// Section returns the outcome and questions of the named section.
func (e *ExamSet) Section(name string) (SectionOutcome, []QuestionRecord, bool) {
	for _, s := range e.Sections {
		if s.Name == name {
			return s, e.Questions[s.Offset : s.Offset+s.Delivered], true
		}
	}
	return SectionOutcome{}, nil, false
}

// Shortfall returns the total number of missing questions across sections.
func (e *ExamSet) Shortfall() int {
	n := 0
	for _, s := range e.Sections {
		n += s.Shortfall
	}
	return n
}

// WrongAnswer struct represents one missed question in a graded section
type WrongAnswer struct {
	Number        int      `json:"number"`
	QuestionID    string   `json:"question_id"`
	Stem          string   `json:"stem"`
	UserAnswer    *string  `json:"user_answer"` // nil when unanswered
	CorrectAnswer string   `json:"correct_answer"`
	Choices       []string `json:"choices"`
	Explanation   *string  `json:"explanation,omitempty"`
	Figure        *string  `json:"figure"`
}

// SectionResult struct represents the graded result of one section
type SectionResult struct {
	Section  string        `json:"section"`
	ScorePct float64       `json:"score_pct"`
	Correct  int           `json:"correct"`
	Total    int           `json:"total"`
	Wrong    []WrongAnswer `json:"wrong"`
}

// AssembleRequest for assembling a new exam
type AssembleRequest struct {
	Sections        []string `json:"sections"` // Optional subset, kept in configured order
	Persist         *bool    `json:"persist"`          // Defaults to true
	RequireComplete bool     `json:"require_complete"` // Reject partial exams with 422
}

// ShouldPersist reports whether the assembled exam is to be stored.
func (r AssembleRequest) ShouldPersist() bool {
	return r.Persist == nil || *r.Persist
}

// SubmitRequest for grading an exam
type SubmitRequest struct {
	Answers map[string][]string `json:"answers" binding:"required"` // section -> letters, "" for unanswered
}

// SubmitResponse for grading an exam
type SubmitResponse struct {
	ExamSetID string          `json:"exam_set_id"`
	Results   []SectionResult `json:"results"`
	Correct   int             `json:"correct"`
	Total     int             `json:"total"`
	ScorePct  float64         `json:"score_pct"`
}

// SectionSummary reports the bucket counts of one section for the admin views
type SectionSummary struct {
	Name    string         `json:"name"`
	Total   int            `json:"total"`
	Buckets map[string]int `json:"buckets"`
}

// BankSummary reports what a loaded bank can supply
type BankSummary struct {
	Path        string           `json:"path"`
	LoadedAt    time.Time        `json:"loaded_at"`
	Records     int              `json:"records"`
	Valid       int              `json:"valid"`
	Skipped     int              `json:"skipped"`
	SkipReasons map[string]int   `json:"skip_reasons"`
	Sections    []SectionSummary `json:"sections"`
}

// ErrorLog represents an entry in the error_logs table
type ErrorLog struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	Section      string    `json:"section"`
	ErrorMessage string    `json:"error_message"`
	Detail       string    `json:"detail"`
}

// AdminEvent represents an entry in the admin_events table
type AdminEvent struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Notes     string    `json:"notes"`
}

// ExamSetInfo is the listing form of a stored ExamSet
type ExamSetInfo struct {
	ID        string    `json:"exam_set_id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
	Questions int       `json:"questions"`
}
