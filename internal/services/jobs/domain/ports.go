package domain

import (
	"context"
	"time"

	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

// ListFilter narrows List
type ListFilter struct {
	Status Status
	Limit  int
}

// Repo persists jobs. Every state change is a single conditional update so
// concurrent continuations, pause requests and resumes cannot interleave
type Repo interface {
	// Insert stores a new job and, for words jobs, its snapshotted items
	Insert(ctx context.Context, j Job, items []string) error
	Get(ctx context.Context, id uuid.UUID) (Job, error)
	List(ctx context.Context, f ListFilter) ([]Job, error)

	// Claim marks the job running with a chunk in flight. It succeeds only when the job is
	// queued or running, the persisted cursor equals cur and no other chunk is in flight
	// unless the last activity is older than staleBefore
	Claim(ctx context.Context, id uuid.UUID, cur Cursor, now, staleBefore time.Time) (Job, bool, error)
	// Advance moves the cursor from `from`, clears the in flight marker and resolves
	// completion, cancel and pause requests
	Advance(ctx context.Context, id uuid.UUID, from Cursor, a Advance) (Job, bool, error)
	// Fail records a chunk failure
	Fail(ctx context.Context, id uuid.UUID, msg string, now time.Time) (Job, error)

	// RequestPause pauses a queued job at once, flags a running one
	RequestPause(ctx context.Context, id uuid.UUID, now time.Time) (Job, bool, error)
	// RequestCancel cancels a queued or paused job at once, flags a running one
	RequestCancel(ctx context.Context, id uuid.UUID, now time.Time) (Job, bool, error)

	// BeginResume takes the per job resume flag unless another holder took it after leaseBefore
	BeginResume(ctx context.Context, id uuid.UUID, now, leaseBefore time.Time) (Job, bool, error)
	// EndResume releases the resume flag
	EndResume(ctx context.Context, id uuid.UUID) error
	// ManualResume moves paused to running and clears attempts and attention
	ManualResume(ctx context.Context, id uuid.UUID, now time.Time) (Job, bool, error)
	// AutoResume counts one attempt and rewinds last activity to rewindTo
	AutoResume(ctx context.Context, id uuid.UUID, rewindTo, now time.Time) (Job, bool, error)
	// MarkNeedsAttention flags a job the watchdog gave up on
	MarkNeedsAttention(ctx context.Context, id uuid.UUID, now time.Time) (Job, error)

	// Stalled lists running jobs idle since before, excluding ones already needing attention
	Stalled(ctx context.Context, before time.Time, limit int) ([]Job, error)
}

// Song is one lyric of an artist
type Song struct {
	Position int
	Title    string
	Lyrics   string
}

// Sources reads the material work sets are cut from
type Sources interface {
	// ArtistSongs returns every song of the artist ordered by position
	ArtistSongs(ctx context.Context, artist string) ([]Song, error)
	CountCorpus(ctx context.Context, corpus string) (int, error)
	// CorpusRows returns bodies ordered by position starting at the offset-th row
	CorpusRows(ctx context.Context, corpus string, offset, limit int) ([]string, error)
	// JobItems returns the snapshotted words of a job starting at offset
	JobItems(ctx context.Context, id uuid.UUID, offset, limit int) ([]string, error)
	// UnclassifiedWords lists cached surfaces with no semantic classification yet
	UnclassifiedWords(ctx context.Context, limit int) ([]string, error)
}

// UnitWords is the annotated output of one unit within a chunk
type UnitWords struct {
	Unit  string
	Words []pipedomain.Word
}

// Output persists the annotations of a chunk; repeated writes of the same unit are no-ops
type Output interface {
	Save(ctx context.Context, id uuid.UUID, units []UnitWords) error
}

// ChunkEvent is the analytics record of one processed chunk
type ChunkEvent struct {
	JobID    uuid.UUID
	Kind     Kind
	Chunk    int
	Units    int
	Stats    pipedomain.Stats
	Duration time.Duration
	At       time.Time
}

// Events records chunk analytics; failures never affect the job
type Events interface {
	Record(ctx context.Context, e ChunkEvent) error
}

// Trigger schedules the next continuation of a job
type Trigger interface {
	Trigger(ctx context.Context, id uuid.UUID, cur Cursor) error
}

// CreateInput is the body of POST /jobs
type CreateInput struct {
	Kind   Kind   `json:"kind"   validate:"required,oneof=artist corpus words" example:"artist"`
	Target string `json:"target" validate:"max=200" example:"Luiz Gonzaga"`
	// Words seeds a words job; empty snapshots the cached but unclassified words
	Words     []string `json:"words,omitempty" validate:"omitempty,max=100000,dive,required,max=200,word"`
	ChunkSize int      `json:"chunk_size,omitempty" validate:"omitempty,min=1" example:"50"`
	// Autostart overrides the configured default
	Autostart *bool `json:"autostart,omitempty"`
}

// ContinueInput is the body of POST /jobs/{id}/continue
type ContinueInput struct {
	Cursor Cursor `json:"cursor"`
	// Wait runs the chunk inside the request instead of acknowledging first
	Wait bool `json:"wait,omitempty"`
}

// Ports is what other modules consume
type Ports interface {
	Create(ctx context.Context, in CreateInput) (Job, error)
	ProcessNext(ctx context.Context, id uuid.UUID, cur Cursor) (Outcome, error)
	Get(ctx context.Context, id uuid.UUID) (View, error)
	List(ctx context.Context, f ListFilter) ([]View, error)
	Pause(ctx context.Context, id uuid.UUID) (Job, error)
	Cancel(ctx context.Context, id uuid.UUID) (Job, error)
	Resume(ctx context.Context, id uuid.UUID) (Job, error)
	ForceResume(ctx context.Context, id uuid.UUID, maxAttempts int) (Job, error)
	Stalled(ctx context.Context, idleFor time.Duration, limit int) ([]Job, error)
}
