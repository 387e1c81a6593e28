package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/taxonomy"
	"cancioneiro/internal/platform/testkit"
	"cancioneiro/internal/services/semantic/domain"
	"cancioneiro/internal/services/semantic/repo"
)

type fakeLLM struct {
	mu      sync.Mutex
	off     bool
	replies []string
	err     error
	calls   []string
	at      []time.Time
}

func (f *fakeLLM) Configured() bool { return !f.off }

func (f *fakeLLM) Complete(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, user)
	f.at = append(f.at, time.Now())
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func items(words ...string) []domain.Item {
	out := make([]domain.Item, len(words))
	for i, w := range words {
		out[i] = domain.Item{Word: w, Lemma: w, POS: annotation.NOUN}
	}
	return out
}

func allNC(t *testing.T, got []domain.Classification, conf float64) {
	t.Helper()
	for _, c := range got {
		if c.Code != taxonomy.Unclassified || c.Confidence != conf || c.IsPolysemous {
			t.Fatalf("want NC/%v, got %+v", conf, c)
		}
	}
}

func TestNew_PanicsOnNilDeps(t *testing.T) {
	t.Parallel()
	testkit.MustPanic(t, func() { New(nil, &fakeLLM{}, Config{}) })
	testkit.MustPanic(t, func() { New(repo.NewMemory(), nil, Config{}) })
}

func TestClassify_HappyPath(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{replies: []string{"```json\n" + `{"classifications":[
		{"word":"mar","code":"na","confidence":0.9},
		{"word":"saudade","code":"SE","alternates":["TE","SE","ZZ","TE","NC"],"confidence":0.8}
	]}` + "\n```"}}
	mem := repo.NewMemory()
	s := New(mem, llm, Config{})

	got, err := s.Classify(context.Background(), items("Mar", "saudade"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got[0].Word != "Mar" || got[0].Code != "NA" || got[0].IsPolysemous {
		t.Fatalf("mar = %+v", got[0])
	}
	if got[1].Code != "SE" || !got[1].IsPolysemous || len(got[1].Alternates) != 1 || got[1].Alternates[0] != "TE" {
		t.Fatalf("saudade = %+v", got[1])
	}
	if mem.Len() != 2 {
		t.Fatalf("stored %d rows, want 2", mem.Len())
	}
	testkit.MustContain(t, llm.calls[0], "1. mar (Mar, NOUN)")
	testkit.MustContain(t, llm.calls[0], "2. saudade (saudade, NOUN)")
}

func TestClassify_UnparsableFallsBack(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"prose":       "desculpe, não sei",
		"broken json": `{"classifications":[{"word":"mar"`,
		"schema":      `{"classifications":[{"word":"mar","code":"NA","confidence":7}]}`,
		"count":       `{"classifications":[{"word":"mar","code":"NA","confidence":0.9}]}`,
		"order":       `{"classifications":[{"word":"sol","code":"NA","confidence":0.9},{"word":"mar","code":"NA","confidence":0.9}]}`,
	}
	for name, reply := range cases {
		reply := reply
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			mem := repo.NewMemory()
			s := New(mem, &fakeLLM{replies: []string{reply}}, Config{FallbackConfidence: 0.3})
			got, err := s.Classify(context.Background(), items("mar", "sol"))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("len = %d", len(got))
			}
			allNC(t, got, 0.3)
			if mem.Len() != 0 {
				t.Fatalf("fallbacks must not be stored")
			}
		})
	}
}

func TestClassify_TransportErrorAndUnconfigured(t *testing.T) {
	t.Parallel()

	s := New(repo.NewMemory(), &fakeLLM{err: errors.New("boom")}, Config{})
	got, err := s.Classify(context.Background(), items("a", "b", "c"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	allNC(t, got, domain.DefaultFallbackConfidence)

	off := &fakeLLM{off: true}
	s = New(repo.NewMemory(), off, Config{})
	got, _ = s.Classify(context.Background(), items("a"))
	allNC(t, got, domain.DefaultFallbackConfidence)
	if len(off.calls) != 0 {
		t.Fatalf("unconfigured client was called")
	}
}

func TestClassify_UnknownCodeBecomesNC(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{replies: []string{
		`{"classifications":[{"word":"viola","code":"MUS","alternates":["CU"],"confidence":0.9}]}`,
		`{"classifications":[{"word":"viola","code":"CU","confidence":0.8}]}`,
	}}
	mem := repo.NewMemory()
	s := New(mem, llm, Config{FallbackConfidence: 0.25})
	ctx := context.Background()
	got, err := s.Classify(ctx, items("viola"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got[0].Code != taxonomy.Unclassified || got[0].Confidence != 0.25 || !got[0].Fallback {
		t.Fatalf("got %+v", got[0])
	}
	if !got[0].IsPolysemous {
		t.Fatalf("valid alternate should survive substitution")
	}
	if mem.Len() != 0 {
		t.Fatalf("substituted NC was stored")
	}

	// the next pass asks the classifier again and keeps the real answer
	got, err = s.Classify(ctx, items("viola"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(llm.calls) != 2 || got[0].Code != "CU" || got[0].Fallback {
		t.Fatalf("calls=%d got %+v", len(llm.calls), got[0])
	}
	if stored, ok, _ := mem.Get(ctx, "viola"); !ok || stored.Code != "CU" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestClassify_WaitsBetweenBatches(t *testing.T) {
	t.Parallel()

	reply := func(w string) string {
		return `{"classifications":[{"word":"` + w + `","code":"NA","confidence":0.9}]}`
	}
	const delay = 40 * time.Millisecond
	llm := &fakeLLM{replies: []string{reply("a"), reply("b"), reply("c")}}
	s := New(repo.NewMemory(), llm, Config{BatchSize: 1, Delay: delay})
	if _, err := s.Classify(context.Background(), items("a", "b", "c")); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(llm.at) != 3 {
		t.Fatalf("calls = %d", len(llm.at))
	}
	for i := 1; i < len(llm.at); i++ {
		if gap := llm.at[i].Sub(llm.at[i-1]); gap < delay {
			t.Fatalf("gap before batch %d = %v, want >= %v", i, gap, delay)
		}
	}
}

func TestClassify_BatchesAndReuse(t *testing.T) {
	t.Parallel()

	reply := func(words ...string) string {
		var parts []string
		for _, w := range words {
			parts = append(parts, `{"word":"`+w+`","code":"NA","confidence":0.9}`)
		}
		return `{"classifications":[` + strings.Join(parts, ",") + `]}`
	}
	llm := &fakeLLM{replies: []string{reply("a", "b"), reply("c")}}
	s := New(repo.NewMemory(), llm, Config{BatchSize: 2})

	// duplicates are classified once
	got, err := s.Classify(context.Background(), items("a", "b", "a", "c"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(llm.calls) != 2 || len(got) != 4 || got[2].Code != "NA" {
		t.Fatalf("calls=%d got=%+v", len(llm.calls), got)
	}

	// second pass is served from the store
	if _, err := s.Classify(context.Background(), items("c", "a")); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(llm.calls) != 2 {
		t.Fatalf("stored words were reclassified")
	}
}

func TestReprocess_Replaces(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{replies: []string{
		`{"classifications":[{"word":"lua","code":"NA","confidence":0.9}]}`,
		`{"classifications":[{"word":"lua","code":"TE","confidence":0.7}]}`,
	}}
	mem := repo.NewMemory()
	s := New(mem, llm, Config{})
	ctx := context.Background()
	if _, err := s.Classify(ctx, items("lua")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Reprocess(ctx, items("lua"))
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if got[0].Code != "TE" {
		t.Fatalf("got %+v", got[0])
	}
	stored, ok, _ := mem.Get(ctx, "lua")
	if !ok || stored.Code != "TE" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestClassify_CancelledBetweenBatches(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	llm := &fakeLLM{replies: []string{`{"classifications":[{"word":"a","code":"NA","confidence":0.9}]}`}}
	s := New(repo.NewMemory(), llm, Config{BatchSize: 1, Delay: 1 << 40})
	cancel()
	if _, err := s.Classify(ctx, items("a", "b")); !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}
}

func TestSystemPromptListsTaxonomy(t *testing.T) {
	t.Parallel()
	for _, d := range taxonomy.All() {
		testkit.MustContain(t, systemPrompt, string(d.Code)+": "+d.Label)
	}
}
