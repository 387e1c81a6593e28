// Package domain holds the job orchestrator types
package domain

import (
	"errors"
	"math"
	"time"

	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

// Kind selects the work set a job walks
type Kind string

// Job kinds
const (
	// KindArtist walks the word tokens of every song of an artist
	KindArtist Kind = "artist"
	// KindCorpus walks the rows of a named corpus
	KindCorpus Kind = "corpus"
	// KindWords walks a word list snapshotted at creation
	KindWords Kind = "words"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindArtist, KindCorpus, KindWords:
		return true
	}
	return false
}

// Status is the job lifecycle state
type Status string

// Job statuses
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further chunk may run
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Cursor is the persisted position in the work set.
// Artist jobs use Song and Word, the others use Offset
type Cursor struct {
	Song   int `json:"song"   validate:"min=0" example:"0"`
	Word   int `json:"word"   validate:"min=0" example:"0"`
	Offset int `json:"offset" validate:"min=0" example:"150"`
}

// Job is one annotation run over a work set
type Job struct {
	ID     uuid.UUID `json:"id"`
	Kind   Kind      `json:"kind"`
	Target string    `json:"target"`
	Status Status    `json:"status"`

	Total          int `json:"total"`
	Processed      int `json:"processed"`
	ProducedNew    int `json:"produced_new"`
	ProducedCached int `json:"produced_cached"`
	ChunkSize      int `json:"chunk_size"`
	ChunksDone     int `json:"chunks_done"`

	Cursor Cursor `json:"cursor"`

	LastActivityAt time.Time  `json:"last_activity_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`

	PauseRequested     bool       `json:"pause_requested"`
	CancelRequested    bool       `json:"cancel_requested"`
	InFlight           bool       `json:"in_flight"`
	Resuming           bool       `json:"resuming"`
	ResumingAt         *time.Time `json:"-"`
	AutoResumeAttempts int        `json:"auto_resume_attempts"`
	NeedsAttention     bool       `json:"needs_attention"`
	PauseCount         int        `json:"pause_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Remaining is the number of units not processed yet
func (j Job) Remaining() int { return max(j.Total-j.Processed, 0) }

// Progress is the poll view of a job
type Progress struct {
	Percent float64 `json:"percent"`
	// UnitsPerSecond is zero until the estimate is meaningful
	UnitsPerSecond float64 `json:"units_per_second,omitempty"`
	// ETASeconds is nil until at least one unit and one second have passed
	ETASeconds *float64 `json:"eta_seconds,omitempty"`
	Elapsed    float64  `json:"elapsed_seconds"`
}

// ProgressOf estimates throughput from the start of the job; ETA stays undefined
// until one unit has been processed and one second has elapsed
func ProgressOf(j Job, now time.Time) Progress {
	var p Progress
	if j.Total > 0 {
		p.Percent = math.Round(float64(j.Processed)/float64(j.Total)*10000) / 100
	} else if j.Status == StatusCompleted {
		p.Percent = 100
	}
	if j.StartedAt == nil {
		return p
	}
	end := now
	if j.FinishedAt != nil {
		end = *j.FinishedAt
	}
	elapsed := end.Sub(*j.StartedAt)
	p.Elapsed = elapsed.Seconds()
	if j.Processed < 1 || elapsed < time.Second {
		return p
	}
	p.UnitsPerSecond = float64(j.Processed) / elapsed.Seconds()
	if !j.Status.Terminal() {
		eta := float64(j.Remaining()) / p.UnitsPerSecond
		p.ETASeconds = &eta
	}
	return p
}

// View is a job plus its progress estimate
type View struct {
	Job
	Progress Progress `json:"progress"`
}

// SkipReason explains why a continuation did no work
type SkipReason string

// Skip reasons
const (
	SkipTerminal    SkipReason = "terminal"
	SkipPaused      SkipReason = "paused"
	SkipStaleCursor SkipReason = "stale_cursor"
	SkipBusy        SkipReason = "busy"
	SkipLostAdvance SkipReason = "lost_advance"
)

// Outcome is the result of one continuation
type Outcome struct {
	Job     Job        `json:"job"`
	Skipped bool       `json:"skipped"`
	Reason  SkipReason `json:"reason,omitempty"`
	Units   int        `json:"units"`
	// Continue is true when another continuation was scheduled
	Continue bool `json:"continue"`
}

// Advance is what a finished chunk writes back
type Advance struct {
	To     Cursor
	Units  int
	New    int
	Cached int
	Done   bool
	Now    time.Time
}

// Segment is a run of tokens from one unit of the work set;
// only Tokens[From:To] belong to the chunk
type Segment struct {
	// Unit identifies where the tokens came from, e.g. "song:3" or "row:17"
	Unit string
	pipedomain.Segment
}

// Slice is the next chunk of a work set
type Slice struct {
	Segments []Segment
	Units    int
	Next     Cursor

	// Exhausted is true when the work set has nothing after Next
	Exhausted bool
}

// Errors surfaced by the orchestrator
var (
	ErrAttemptsExhausted = errors.New("jobs: auto resume attempts exhausted")
	ErrResumeInFlight    = errors.New("jobs: resume already in flight")
)
