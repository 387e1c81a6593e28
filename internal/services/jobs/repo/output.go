package repo

import (
	"context"
	"encoding/json"
	"sync"

	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/store"
	str "cancioneiro/internal/platform/strings"
	"cancioneiro/internal/services/jobs/domain"
	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

type (
	// PGOutput binds the annotated token writer to a Queryer
	PGOutput struct{}
	output   struct{ q repokit.Queryer }
)

// NewPGOutput returns a binder for the postgres output writer
func NewPGOutput() repokit.Binder[domain.Output] { return PGOutput{} }

// Bind wires a Queryer to the writer
func (PGOutput) Bind(q repokit.Queryer) domain.Output { return &output{q: q} }

const insertToken = `
insert into annotated_tokens
  (job_id, unit, token_index, surface, lemma, pos, pos_detailed, features, source, origin, confidence, domain_code)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
on conflict (job_id, unit, token_index) do nothing
`

// Save queues one insert per token and sends the chunk in a single batch;
// rows already written for a unit are kept
func (o *output) Save(ctx context.Context, id uuid.UUID, units []domain.UnitWords) error {
	var stmts []store.Statement
	for _, u := range units {
		for _, w := range u.Words {
			feats := []byte("{}")
			if len(w.Features) > 0 {
				b, err := json.Marshal(w.Features)
				if err != nil {
					return perr.Wrap(err, perr.ErrorCodeJSON, "output features")
				}
				feats = b
			}
			var code *string
			if w.Domain != nil {
				code = str.Ptr(string(w.Domain.Code))
			}
			stmts = append(stmts, store.Statement{SQL: insertToken, Args: []any{
				id, u.Unit, w.Index, w.Surface, w.Lemma, string(w.POS), w.PosDetailed, feats,
				string(w.Source), string(w.Origin), w.Confidence, code,
			}})
		}
	}
	if err := o.q.Batch(ctx, stmts); err != nil {
		return perr.FromPostgres(err, "output save")
	}
	return nil
}

type outKey struct {
	job   uuid.UUID
	unit  string
	index int
}

// MemoryOutput keeps annotated tokens in a map keyed like the table
type MemoryOutput struct {
	mu    sync.Mutex
	rows  map[outKey]pipedomain.Word
	order []outKey
}

// NewMemoryOutput returns an empty writer
func NewMemoryOutput() *MemoryOutput { return &MemoryOutput{rows: map[outKey]pipedomain.Word{}} }

// Bind satisfies repokit.Binder; the queryer is ignored
func (m *MemoryOutput) Bind(repokit.Queryer) domain.Output { return m }

func (m *MemoryOutput) Save(_ context.Context, id uuid.UUID, units []domain.UnitWords) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range units {
		for _, w := range u.Words {
			k := outKey{job: id, unit: u.Unit, index: w.Index}
			if _, ok := m.rows[k]; ok {
				continue
			}
			w.AnnotatedToken = w.AnnotatedToken.Clone()
			m.rows[k] = w
			m.order = append(m.order, k)
		}
	}
	return nil
}

// Words returns the saved words of a job in write order
func (m *MemoryOutput) Words(id uuid.UUID) []pipedomain.Word {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pipedomain.Word
	for _, k := range m.order {
		if k.job == id {
			out = append(out, m.rows[k])
		}
	}
	return out
}
