package service

import (
	"context"
	"testing"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/taxonomy"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/testkit"
	"cancioneiro/internal/services/api/stats/domain"
	"cancioneiro/internal/services/api/stats/repo"
	jobsdomain "cancioneiro/internal/services/jobs/domain"
	jobsrepo "cancioneiro/internal/services/jobs/repo"
	pipedomain "cancioneiro/internal/services/pipeline/domain"
	semdomain "cancioneiro/internal/services/semantic/domain"

	"github.com/google/uuid"
)

func word(i int, pos annotation.POS, src, origin annotation.Source, code taxonomy.Code) pipedomain.Word {
	w := pipedomain.Word{AnnotatedToken: annotation.AnnotatedToken{
		Token:  annotation.Token{Surface: "w", POS: pos, Index: i},
		Source: src,
		Origin: origin,
	}}
	if code != "" {
		w.Domain = &semdomain.Classification{Word: "w", Code: code}
	}
	return w
}

type knownJobs map[uuid.UUID]bool

func (k knownJobs) Get(_ context.Context, id uuid.UUID) (jobsdomain.View, error) {
	if !k[id] {
		return jobsdomain.View{}, perr.NotFoundf("job %s not found", id)
	}
	return jobsdomain.View{}, nil
}

func TestBreakdown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	out := jobsrepo.NewMemoryOutput()
	id := uuid.New()
	_ = out.Save(ctx, id, []jobsdomain.UnitWords{{Unit: "song:1", Words: []pipedomain.Word{
		word(0, annotation.NOUN, annotation.SourceRule, annotation.SourceRule, "SE"),
		word(1, annotation.NOUN, annotation.SourceCache, annotation.SourceRule, "SE"),
		word(2, annotation.VERB, annotation.SourceExternal, annotation.SourceExternal, "AC"),
		word(3, annotation.DET, annotation.SourceRule, annotation.SourceRule, ""),
	}}})

	svc := New(nil, repo.NewMemory(out.Words), knownJobs{id: true}, nil)
	got, err := svc.Breakdown(ctx, id)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if got.Tokens != 4 {
		t.Fatalf("tokens = %d", got.Tokens)
	}
	if got.Sources[0] != (domain.Bucket{Key: "rule-grammar", Count: 2}) || len(got.Sources) != 3 {
		t.Fatalf("sources = %+v", got.Sources)
	}
	if got.Origins[0] != (domain.Bucket{Key: "rule-grammar", Count: 3}) {
		t.Fatalf("origins = %+v", got.Origins)
	}
	want := []domain.Bucket{{Key: "SE", Label: "Sentimentos", Count: 2}, {Key: "AC", Label: "Ações e movimentos", Count: 1}}
	if len(got.Domains) != 2 || got.Domains[0] != want[0] || got.Domains[1] != want[1] {
		t.Fatalf("domains = %+v", got.Domains)
	}
	if got.POS[0] != (domain.Bucket{Key: "NOUN", Count: 2}) {
		t.Fatalf("pos = %+v", got.POS)
	}
}

func TestBreakdown_UnknownJob(t *testing.T) {
	t.Parallel()
	svc := New(nil, repo.NewMemory(nil), knownJobs{}, nil)
	if _, err := svc.Breakdown(context.Background(), uuid.New()); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if _, err := New(nil, repo.NewMemory(nil), nil, nil).Events(ctx, domain.EventsInput{}); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}

	ev := &jobsrepo.MemoryEvents{}
	_ = ev.Record(ctx, jobsdomain.ChunkEvent{Kind: jobsdomain.KindWords, Units: 5})
	_ = ev.Record(ctx, jobsdomain.ChunkEvent{Kind: jobsdomain.KindArtist, Units: 9})
	svc := New(nil, repo.NewMemory(nil), nil, ev)

	all, err := svc.Events(ctx, domain.EventsInput{})
	if err != nil || len(all) != 2 || all[0] != (domain.KindTotal{Kind: "artist", Units: 9}) {
		t.Fatalf("events = %+v %v", all, err)
	}
	one, _ := svc.Events(ctx, domain.EventsInput{Kind: "words"})
	if len(one) != 1 || one[0].Units != 5 {
		t.Fatalf("filtered = %+v", one)
	}
}

func TestNew_PanicsWithoutBinder(t *testing.T) {
	t.Parallel()
	testkit.MustPanic(t, func() { New(nil, nil, nil, nil) })
}
