package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/tokenize"
	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/testkit"
	"cancioneiro/internal/services/jobs/domain"
	"cancioneiro/internal/services/jobs/guardrails"
	"cancioneiro/internal/services/jobs/repo"
	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

// span records one annotated segment by the first token of its unit
type span struct {
	first    string
	from, to int
}

// fakePipe splits on whitespace and tags every token as a rule hit
type fakePipe struct {
	mu     sync.Mutex
	units  int
	calls  int
	ranges []span
	hook   func()
	err    error
}

func (f *fakePipe) Tokenize(text string) []tokenize.Token {
	fields := strings.Fields(text)
	out := make([]tokenize.Token, len(fields))
	for i, w := range fields {
		out[i] = tokenize.Token{Surface: w, Index: i}
	}
	return out
}

func (f *fakePipe) Annotate(ctx context.Context, text string) (pipedomain.Result, error) {
	toks := f.Tokenize(text)
	res, err := f.AnnotateSegments(ctx, []pipedomain.Segment{{Tokens: toks, To: len(toks), Text: text}})
	if err != nil {
		return pipedomain.Result{}, err
	}
	return res[0], nil
}

func (f *fakePipe) AnnotateSegments(_ context.Context, segs []pipedomain.Segment) ([]pipedomain.Result, error) {
	f.mu.Lock()
	hook := f.hook
	f.hook = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	out := make([]pipedomain.Result, len(segs))
	for i, sg := range segs {
		words := make([]pipedomain.Word, 0, sg.To-sg.From)
		for _, t := range sg.Tokens[sg.From:sg.To] {
			words = append(words, pipedomain.Word{AnnotatedToken: annotation.AnnotatedToken{
				Token:      annotation.Token{Surface: t.Surface, Lemma: t.Surface, POS: annotation.NOUN, Index: t.Index},
				Source:     annotation.SourceRule,
				Origin:     annotation.SourceRule,
				Confidence: 1,
			}})
		}
		f.units += len(words)
		f.ranges = append(f.ranges, span{first: sg.Tokens[0].Surface, from: sg.From, to: sg.To})
		out[i] = pipedomain.Result{Words: words, Stats: pipedomain.Stats{Tokens: len(words), Rule: len(words)}}
	}
	return out, nil
}

func (f *fakePipe) chunkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakePipe) annotated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	svc    *Service
	repo   *repo.Memory
	src    *repo.MemorySources
	out    *repo.MemoryOutput
	events *repo.MemoryEvents
	pipe   *fakePipe
	clock  *clock

	mu       sync.Mutex
	triggers []domain.Cursor
}

func newHarness(t *testing.T, tune ...func(*Deps, *Config)) *harness {
	t.Helper()
	h := &harness{
		repo:   repo.NewMemory(),
		out:    repo.NewMemoryOutput(),
		events: &repo.MemoryEvents{},
		pipe:   &fakePipe{},
		clock:  &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.src = repo.NewMemorySources(h.repo.Items)
	d := Deps{
		Repo:     h.repo,
		Sources:  h.src,
		Output:   h.out,
		Pipeline: h.pipe,
		Events:   h.events,
		Clock:    h.clock.now,
		Trigger: TriggerFunc(func(_ context.Context, _ uuid.UUID, cur domain.Cursor) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.triggers = append(h.triggers, cur)
			return nil
		}),
	}
	cfg := Config{ChunkSize: 50, MaxChunkSize: 500, StallAfter: 10 * time.Minute, Timeouts: guardrails.Timeouts{Chunk: time.Minute, DB: time.Second}}
	for _, fn := range tune {
		fn(&d, &cfg)
	}
	h.svc = New(d, cfg)
	return h
}

func (h *harness) triggered() []domain.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Cursor(nil), h.triggers...)
}

func wordList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%03d", i)
	}
	return out
}

func (h *harness) createWords(t *testing.T, n, chunk int) domain.Job {
	t.Helper()
	no := false
	j, err := h.svc.Create(context.Background(), domain.CreateInput{
		Kind: domain.KindWords, Words: wordList(n), ChunkSize: chunk, Autostart: &no,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return j
}

func (h *harness) step(t *testing.T, id uuid.UUID, offset int) domain.Outcome {
	t.Helper()
	out, err := h.svc.ProcessNext(context.Background(), id, domain.Cursor{Offset: offset})
	if err != nil {
		t.Fatalf("process at %d: %v", offset, err)
	}
	return out
}

func TestNew_PanicsWithoutDeps(t *testing.T) {
	t.Parallel()
	testkit.MustPanic(t, func() { New(Deps{}, Config{}) })
	testkit.MustPanic(t, func() {
		New(Deps{Repo: repo.NewMemory(), Sources: repo.NewMemorySources(nil), Output: repo.NewMemoryOutput()}, Config{})
	})
}

func TestRunToEnd_ChunksAndCounts(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ words, chunk, chunks int }{
		{237, 50, 5},
		{200, 50, 4},
		{1, 50, 1},
		{10, 3, 4},
	} {
		t.Run(fmt.Sprintf("%d_by_%d", tc.words, tc.chunk), func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			j := h.createWords(t, tc.words, tc.chunk)
			got, err := h.svc.RunToEnd(context.Background(), j.ID)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if got.Status != domain.StatusCompleted {
				t.Fatalf("status = %s, want completed", got.Status)
			}
			if got.ChunksDone != tc.chunks {
				t.Fatalf("chunks = %d, want %d", got.ChunksDone, tc.chunks)
			}
			if n := h.pipe.chunkCalls(); n != tc.chunks {
				t.Fatalf("pipeline calls = %d, want one per chunk", n)
			}
			if got.Processed != tc.words || h.pipe.annotated() != tc.words {
				t.Fatalf("processed = %d annotated = %d, want %d", got.Processed, h.pipe.annotated(), tc.words)
			}
			if n := len(h.out.Words(j.ID)); n != tc.words {
				t.Fatalf("output rows = %d, want %d", n, tc.words)
			}
			if got.FinishedAt == nil || got.InFlight {
				t.Fatalf("finished_at=%v in_flight=%v", got.FinishedAt, got.InFlight)
			}
		})
	}
}

func TestProcessNext_CancelBetweenChunks(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	j := h.createWords(t, 237, 50)

	for _, off := range []int{0, 50, 100} {
		out := h.step(t, j.ID, off)
		if out.Skipped || !out.Continue || out.Job.Status != domain.StatusRunning {
			t.Fatalf("chunk at %d: %+v", off, out)
		}
	}

	c, err := h.svc.Cancel(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c.Status != domain.StatusRunning || !c.CancelRequested {
		t.Fatalf("after cancel request: status=%s requested=%v", c.Status, c.CancelRequested)
	}

	out := h.step(t, j.ID, 150)
	if out.Job.Status != domain.StatusCancelled || out.Job.Processed != 200 || out.Continue {
		t.Fatalf("fourth chunk: status=%s processed=%d continue=%v", out.Job.Status, out.Job.Processed, out.Continue)
	}
	if out.Job.FinishedAt == nil {
		t.Fatal("cancelled job without finished_at")
	}

	stray := h.step(t, j.ID, 200)
	if !stray.Skipped || stray.Reason != domain.SkipTerminal {
		t.Fatalf("stray continuation: %+v", stray)
	}
	if h.pipe.annotated() != 200 {
		t.Fatalf("annotated = %d, want 200", h.pipe.annotated())
	}
	if got := h.triggered(); len(got) != 3 || got[2].Offset != 150 {
		t.Fatalf("triggers = %+v", got)
	}
}

func TestCancel_QueuedIsImmediate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	j := h.createWords(t, 10, 5)
	c, err := h.svc.Cancel(context.Background(), j.ID)
	if err != nil || c.Status != domain.StatusCancelled {
		t.Fatalf("cancel queued: %v %s", err, c.Status)
	}
	again, err := h.svc.Cancel(context.Background(), j.ID)
	if err != nil || again.Status != domain.StatusCancelled {
		t.Fatalf("cancel twice: %v %s", err, again.Status)
	}
	if _, err := h.svc.Pause(context.Background(), j.ID); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("pause cancelled: want conflict, got %v", err)
	}
}

func TestResume_FromPausedIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	j := h.createWords(t, 237, 50)

	h.step(t, j.ID, 0)
	h.step(t, j.ID, 50)
	if p, err := h.svc.Pause(ctx, j.ID); err != nil || !p.PauseRequested {
		t.Fatalf("pause: %v %+v", err, p)
	}
	out := h.step(t, j.ID, 100)
	if out.Job.Status != domain.StatusPaused || out.Job.Processed != 150 || out.Continue {
		t.Fatalf("boundary: %+v", out)
	}
	if out.Job.PauseCount != 1 || out.Job.PauseRequested {
		t.Fatalf("pause bookkeeping: count=%d requested=%v", out.Job.PauseCount, out.Job.PauseRequested)
	}
	if s := h.step(t, j.ID, 150); !s.Skipped || s.Reason != domain.SkipPaused {
		t.Fatalf("paused continuation: %+v", s)
	}

	before := len(h.triggered())
	for i := 0; i < 2; i++ {
		r, err := h.svc.Resume(ctx, j.ID)
		if err != nil {
			t.Fatalf("resume %d: %v", i, err)
		}
		if r.Status != domain.StatusRunning || r.Cursor.Offset != 150 {
			t.Fatalf("resume %d: %+v", i, r)
		}
	}
	got := h.triggered()[before:]
	if len(got) != 2 || got[0].Offset != 150 || got[1].Offset != 150 {
		t.Fatalf("resume triggers = %+v", got)
	}

	h.step(t, j.ID, 150)
	if s := h.step(t, j.ID, 150); !s.Skipped || s.Reason != domain.SkipStaleCursor {
		t.Fatalf("duplicate continuation: %+v", s)
	}

	final, err := h.svc.RunToEnd(ctx, j.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if final.Status != domain.StatusCompleted || final.Processed != 237 {
		t.Fatalf("final: %s %d", final.Status, final.Processed)
	}
	if h.pipe.annotated() != 237 {
		t.Fatalf("annotated = %d, want exactly 237", h.pipe.annotated())
	}
	if n := len(h.out.Words(j.ID)); n != 237 {
		t.Fatalf("output rows = %d", n)
	}
}

func TestPause_QueuedIsImmediate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	j := h.createWords(t, 10, 5)
	p, err := h.svc.Pause(context.Background(), j.ID)
	if err != nil || p.Status != domain.StatusPaused || p.PauseCount != 1 {
		t.Fatalf("pause queued: %v %+v", err, p)
	}
	if again, err := h.svc.Pause(context.Background(), j.ID); err != nil || again.Status != domain.StatusPaused {
		t.Fatalf("pause twice: %v %s", err, again.Status)
	}
	if s := h.step(t, j.ID, 0); !s.Skipped || s.Reason != domain.SkipPaused {
		t.Fatalf("continuation while paused: %+v", s)
	}
}

func TestProcessNext_BusyThenStaleTakeover(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	j := h.createWords(t, 100, 50)

	var busy domain.Outcome
	h.pipe.hook = func() {
		var err error
		busy, err = h.svc.ProcessNext(ctx, j.ID, domain.Cursor{})
		if err != nil {
			t.Errorf("nested: %v", err)
		}
	}
	h.step(t, j.ID, 0)
	if !busy.Skipped || busy.Reason != domain.SkipBusy {
		t.Fatalf("concurrent continuation: %+v", busy)
	}

	var takeover domain.Outcome
	h.pipe.hook = func() {
		h.clock.advance(11 * time.Minute)
		var err error
		takeover, err = h.svc.ProcessNext(ctx, j.ID, domain.Cursor{Offset: 50})
		if err != nil {
			t.Errorf("takeover: %v", err)
		}
	}
	lost := h.step(t, j.ID, 50)
	if takeover.Skipped || takeover.Job.Status != domain.StatusCompleted {
		t.Fatalf("stale takeover: %+v", takeover)
	}
	if !lost.Skipped || lost.Reason != domain.SkipLostAdvance {
		t.Fatalf("original continuation: %+v", lost)
	}
	if lost.Job.Processed != 100 {
		t.Fatalf("processed = %d, want 100", lost.Job.Processed)
	}
	if n := len(h.out.Words(j.ID)); n != 100 {
		t.Fatalf("output rows = %d, want 100", n)
	}
}

func TestProcessNext_ChunkFatal(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Output = repokit.BindFunc[domain.Output](func(repokit.Queryer) domain.Output { return failingOutput{boom} })
	})
	j := h.createWords(t, 20, 10)

	out, err := h.svc.ProcessNext(context.Background(), j.ID, domain.Cursor{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if out.Job.Status != domain.StatusFailed || out.Job.InFlight {
		t.Fatalf("job = %+v", out.Job)
	}
	testkit.MustContain(t, out.Job.ErrorMessage, "disk full")
	if len(h.triggered()) != 0 {
		t.Fatalf("failed chunk scheduled a continuation")
	}
	if s := h.step(t, j.ID, 0); s.Reason != domain.SkipTerminal {
		t.Fatalf("after failure: %+v", s)
	}
}

func TestProcessNext_PipelineErrorFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.pipe.err = perr.DBf("cache write")
	j := h.createWords(t, 5, 5)
	out, err := h.svc.ProcessNext(context.Background(), j.ID, domain.Cursor{})
	if err == nil || out.Job.Status != domain.StatusFailed {
		t.Fatalf("err=%v status=%s", err, out.Job.Status)
	}
}

type failingOutput struct{ err error }

func (f failingOutput) Save(context.Context, uuid.UUID, []domain.UnitWords) error { return f.err }

func TestArtist_WalksSongsAcrossChunks(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.src.AddSong("Cartola", domain.Song{Position: 3, Lyrics: "h i j k l"})
	h.src.AddSong("Cartola", domain.Song{Position: 1, Lyrics: "a b c d e f g"})
	h.src.AddSong("Cartola", domain.Song{Position: 2, Lyrics: "   "})

	no := false
	j, err := h.svc.Create(context.Background(), domain.CreateInput{Kind: domain.KindArtist, Target: "Cartola", ChunkSize: 4, Autostart: &no})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.Total != 12 {
		t.Fatalf("total = %d, want 12", j.Total)
	}
	got, err := h.svc.RunToEnd(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Status != domain.StatusCompleted || got.ChunksDone != 3 || got.Processed != 12 {
		t.Fatalf("job = %s chunks=%d processed=%d", got.Status, got.ChunksDone, got.Processed)
	}
	want := []span{{"a", 0, 4}, {"a", 4, 7}, {"h", 0, 1}, {"h", 1, 5}}
	if len(h.pipe.ranges) != len(want) {
		t.Fatalf("ranges = %+v", h.pipe.ranges)
	}
	for i := range want {
		if h.pipe.ranges[i] != want[i] {
			t.Fatalf("range %d = %+v, want %+v", i, h.pipe.ranges[i], want[i])
		}
	}
	words := h.out.Words(j.ID)
	if len(words) != 12 || words[7].Surface != "h" || words[7].Index != 0 {
		t.Fatalf("output = %d words, [7]=%+v", len(words), words[7].Token)
	}
	if ev := h.events.Events(); len(ev) != 3 || ev[2].Units != 4 || ev[2].Stats.Tokens != 4 {
		t.Fatalf("events = %+v", ev)
	}
}

func TestCorpus_RowsAreUnits(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.src.SetCorpus("samba", []string{"um dois", "três", "quatro cinco seis"})
	no := false
	j, err := h.svc.Create(context.Background(), domain.CreateInput{Kind: domain.KindCorpus, Target: "samba", ChunkSize: 2, Autostart: &no})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := h.svc.RunToEnd(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Processed != 3 || got.ChunksDone != 2 || got.Cursor.Offset != 3 {
		t.Fatalf("job = %+v", got)
	}
	if got.ProducedNew != 6 {
		t.Fatalf("produced_new = %d, want 6 tokens", got.ProducedNew)
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("autostart triggers the zero cursor", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(_ *Deps, c *Config) { c.Autostart = true })
		j, err := h.svc.Create(ctx, domain.CreateInput{Kind: domain.KindWords, Words: []string{"mar"}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if j.Status != domain.StatusQueued || j.ChunkSize != 50 {
			t.Fatalf("job = %+v", j)
		}
		if got := h.triggered(); len(got) != 1 || got[0] != (domain.Cursor{}) {
			t.Fatalf("triggers = %+v", got)
		}
	})

	t.Run("input overrides autostart", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(_ *Deps, c *Config) { c.Autostart = true })
		no := false
		if _, err := h.svc.Create(ctx, domain.CreateInput{Kind: domain.KindWords, Words: []string{"mar"}, Autostart: &no}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(h.triggered()) != 0 {
			t.Fatal("triggered despite autostart=false")
		}
	})

	t.Run("words snapshot dedupes unclassified", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.src.SetUnclassified([]string{"Saudade", "saudade", "sertão", " "})
		j, err := h.svc.Create(ctx, domain.CreateInput{Kind: domain.KindWords})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if j.Total != 2 {
			t.Fatalf("total = %d, want 2", j.Total)
		}
		if items := h.repo.Items(j.ID); len(items) != 2 || items[0] != "saudade" {
			t.Fatalf("items = %v", items)
		}
	})

	t.Run("empty work set completes at once", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(_ *Deps, c *Config) { c.Autostart = true })
		j, err := h.svc.Create(ctx, domain.CreateInput{Kind: domain.KindWords})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if j.Status != domain.StatusCompleted || len(h.triggered()) != 0 {
			t.Fatalf("job = %+v triggers=%d", j, len(h.triggered()))
		}
	})

	for _, tc := range []struct {
		name string
		in   domain.CreateInput
		code perr.ErrorCode
	}{
		{"unknown kind", domain.CreateInput{Kind: "album"}, perr.ErrorCodeInvalidArgument},
		{"artist without target", domain.CreateInput{Kind: domain.KindArtist}, perr.ErrorCodeInvalidArgument},
		{"chunk too large", domain.CreateInput{Kind: domain.KindWords, ChunkSize: 501}, perr.ErrorCodeInvalidArgument},
		{"unknown artist", domain.CreateInput{Kind: domain.KindArtist, Target: "Ninguém"}, perr.ErrorCodeNotFound},
		{"empty corpus", domain.CreateInput{Kind: domain.KindCorpus, Target: "vazio"}, perr.ErrorCodeNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			if _, err := h.svc.Create(ctx, tc.in); !perr.IsCode(err, tc.code) {
				t.Fatalf("err = %v, want code %d", err, tc.code)
			}
		})
	}
}

func stuckJob(t *testing.T, h *harness) domain.Job {
	t.Helper()
	j := h.createWords(t, 100, 50)
	now := h.clock.now()
	if _, ok, err := h.repo.Claim(context.Background(), j.ID, domain.Cursor{}, now, now.Add(-time.Minute)); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	h.clock.advance(11 * time.Minute)
	return j
}

func TestForceResume_StopsAtMaxAttempts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	j := stuckJob(t, h)

	stalled, err := h.svc.Stalled(ctx, 10*time.Minute, 10)
	if err != nil || len(stalled) != 1 {
		t.Fatalf("stalled = %d %v", len(stalled), err)
	}

	for i := 1; i <= 3; i++ {
		got, err := h.svc.ForceResume(ctx, j.ID, 3)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if got.AutoResumeAttempts != i {
			t.Fatalf("attempts = %d, want %d", got.AutoResumeAttempts, i)
		}
		if limit := h.clock.now().Add(-10 * time.Minute); !got.LastActivityAt.Before(limit) {
			t.Fatalf("last activity %v not rewound past %v", got.LastActivityAt, limit)
		}
	}
	if n := len(h.triggered()); n != 3 {
		t.Fatalf("triggers = %d, want 3", n)
	}

	got, err := h.svc.ForceResume(ctx, j.ID, 3)
	if !errors.Is(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want exhausted", err)
	}
	if !got.NeedsAttention || len(h.triggered()) != 3 {
		t.Fatalf("needs_attention=%v triggers=%d", got.NeedsAttention, len(h.triggered()))
	}
	if stalled, _ := h.svc.Stalled(ctx, 10*time.Minute, 10); len(stalled) != 0 {
		t.Fatalf("jobs needing attention are still listed as stalled")
	}

	r, err := h.svc.Resume(ctx, j.ID)
	if err != nil {
		t.Fatalf("manual resume: %v", err)
	}
	if r.AutoResumeAttempts != 0 || r.NeedsAttention {
		t.Fatalf("manual resume kept attempts=%d attention=%v", r.AutoResumeAttempts, r.NeedsAttention)
	}
}

func TestForceResume_ProgressResetsAttempts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	j := stuckJob(t, h)

	if _, err := h.svc.ForceResume(ctx, j.ID, 3); err != nil {
		t.Fatalf("force: %v", err)
	}
	out := h.step(t, j.ID, 0)
	if out.Skipped || out.Job.AutoResumeAttempts != 0 {
		t.Fatalf("reclaimed chunk: %+v", out)
	}
}

func TestForceResume_RejectsNonRunning(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	j := h.createWords(t, 10, 5)
	if _, err := h.svc.Pause(context.Background(), j.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := h.svc.ForceResume(context.Background(), j.ID, 3); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestResume_SingleFlight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	j := stuckJob(t, h)

	now := h.clock.now()
	if _, ok, _ := h.repo.BeginResume(ctx, j.ID, now, now.Add(-time.Minute)); !ok {
		t.Fatal("could not take the resume flag")
	}
	_, err := h.svc.ForceResume(ctx, j.ID, 3)
	if !errors.Is(err, domain.ErrResumeInFlight) || !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("err = %v, want resume in flight", err)
	}

	// a holder that died releases after the lease
	h.clock.advance(3 * time.Minute)
	if _, err := h.svc.ForceResume(ctx, j.ID, 3); err != nil {
		t.Fatalf("after lease: %v", err)
	}
}

func TestGetAndList(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	j := h.createWords(t, 100, 50)
	h.step(t, j.ID, 0)
	h.clock.advance(10 * time.Second)

	v, err := h.svc.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Progress.Percent != 50 || v.Progress.ETASeconds == nil {
		t.Fatalf("progress = %+v", v.Progress)
	}

	if _, err := h.svc.Get(ctx, uuid.New()); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing job: %v", err)
	}

	running, err := h.svc.List(ctx, domain.ListFilter{Status: domain.StatusRunning})
	if err != nil || len(running) != 1 {
		t.Fatalf("list running = %d %v", len(running), err)
	}
	if done, _ := h.svc.List(ctx, domain.ListFilter{Status: domain.StatusCompleted}); len(done) != 0 {
		t.Fatalf("list completed = %d", len(done))
	}
	if _, err := h.svc.List(ctx, domain.ListFilter{Status: "stuck"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("bad status filter: %v", err)
	}
}

func TestSkipReason(t *testing.T) {
	t.Parallel()
	cur := domain.Cursor{Offset: 10}
	for _, tc := range []struct {
		job  domain.Job
		want domain.SkipReason
	}{
		{domain.Job{Status: domain.StatusCompleted, Cursor: cur}, domain.SkipTerminal},
		{domain.Job{Status: domain.StatusPaused, Cursor: cur}, domain.SkipPaused},
		{domain.Job{Status: domain.StatusRunning, Cursor: domain.Cursor{Offset: 20}}, domain.SkipStaleCursor},
		{domain.Job{Status: domain.StatusRunning, Cursor: cur, InFlight: true}, domain.SkipBusy},
	} {
		if got := skipReason(tc.job, cur); got != tc.want {
			t.Fatalf("skipReason(%s) = %s, want %s", tc.job.Status, got, tc.want)
		}
	}
}
