package repo

import (
	"context"
	"sort"

	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

// Memory groups words handed out by a jobs output writer kept in memory
type Memory struct {
	words func(uuid.UUID) []pipedomain.Word
}

// NewMemory reads from words; nil means no job has output
func NewMemory(words func(uuid.UUID) []pipedomain.Word) *Memory {
	if words == nil {
		words = func(uuid.UUID) []pipedomain.Word { return nil }
	}
	return &Memory{words: words}
}

// Bind satisfies repokit.Binder; the queryer is ignored
func (m *Memory) Bind(repokit.Queryer) Repo { return m }

func (m *Memory) Count(_ context.Context, jobID uuid.UUID) (int64, error) {
	return int64(len(m.words(jobID))), nil
}

func (m *Memory) GroupBy(_ context.Context, jobID uuid.UUID, col Column) ([]Row, error) {
	var key func(pipedomain.Word) string
	switch col {
	case BySource:
		key = func(w pipedomain.Word) string { return string(w.Source) }
	case ByOrigin:
		key = func(w pipedomain.Word) string { return string(w.Origin) }
	case ByPOS:
		key = func(w pipedomain.Word) string { return string(w.POS) }
	case ByDomain:
		key = func(w pipedomain.Word) string {
			if w.Domain == nil {
				return ""
			}
			return string(w.Domain.Code)
		}
	default:
		return nil, perr.InvalidArgf("unknown grouping %q", col)
	}

	counts := map[string]int64{}
	for _, w := range m.words(jobID) {
		counts[key(w)]++
	}
	out := make([]Row, 0, len(counts))
	for k, n := range counts {
		out = append(out, Row{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}
