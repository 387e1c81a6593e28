package repo

import (
	"context"
	"slices"
	"sort"
	"sync"

	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
)

type (
	// PGSources binds the corpus readers to a Queryer
	PGSources struct{}
	sources   struct{ q repokit.Queryer }
)

// NewPGSources returns a binder for the postgres work set readers
func NewPGSources() repokit.Binder[domain.Sources] { return PGSources{} }

// Bind wires a Queryer to the readers
func (PGSources) Bind(q repokit.Queryer) domain.Sources { return &sources{q: q} }

func (s *sources) ArtistSongs(ctx context.Context, artist string) ([]domain.Song, error) {
	rows, err := s.q.Query(ctx, `
select s.position, s.title, s.lyrics
from songs s
join artists a on a.id = s.artist_id
where a.name = $1
order by s.position`, artist)
	if err != nil {
		return nil, perr.FromPostgres(err, "sources artist songs")
	}
	defer rows.Close()
	var out []domain.Song
	for rows.Next() {
		var sg domain.Song
		if err := rows.Scan(&sg.Position, &sg.Title, &sg.Lyrics); err != nil {
			return nil, perr.FromPostgres(err, "sources artist songs")
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "sources artist songs")
	}
	return out, nil
}

func (s *sources) CountCorpus(ctx context.Context, corpus string) (int, error) {
	var n int
	if err := s.q.QueryRow(ctx, `select count(*) from corpus_entries where corpus = $1`, corpus).Scan(&n); err != nil {
		return 0, perr.FromPostgres(err, "sources count corpus")
	}
	return n, nil
}

func (s *sources) CorpusRows(ctx context.Context, corpus string, offset, limit int) ([]string, error) {
	return s.strings(ctx, "sources corpus rows", `
select body from corpus_entries where corpus = $1 order by position offset $2 limit $3`, corpus, offset, limit)
}

func (s *sources) JobItems(ctx context.Context, id uuid.UUID, offset, limit int) ([]string, error) {
	return s.strings(ctx, "sources job items", `
select word from job_items where job_id = $1 and position >= $2 order by position limit $3`, id, offset, limit)
}

func (s *sources) UnclassifiedWords(ctx context.Context, limit int) ([]string, error) {
	return s.strings(ctx, "sources unclassified", `
select distinct c.surface
from annotation_cache c
where c.pos in ('NOUN', 'VERB', 'ADJ', 'ADV', 'PROPN')
  and not exists (select 1 from semantic_classifications s where s.word = c.surface)
order by c.surface
limit $1`, limit)
}

func (s *sources) strings(ctx context.Context, op, sql string, args ...any) ([]string, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, perr.FromPostgres(err, op)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, perr.FromPostgres(err, op)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, op)
	}
	return out, nil
}

// MemorySources serves work sets from maps, filled by the CLI and tests
type MemorySources struct {
	mu           sync.RWMutex
	artists      map[string][]domain.Song
	corpora      map[string][]string
	unclassified []string
	items        func(uuid.UUID) []string
}

// NewMemorySources returns empty readers; items resolves job snapshots, usually Memory.Items
func NewMemorySources(items func(uuid.UUID) []string) *MemorySources {
	return &MemorySources{artists: map[string][]domain.Song{}, corpora: map[string][]string{}, items: items}
}

// Bind satisfies repokit.Binder; the queryer is ignored
func (m *MemorySources) Bind(repokit.Queryer) domain.Sources { return m }

// AddSong appends a song to an artist
func (m *MemorySources) AddSong(artist string, sg domain.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	songs := append(m.artists[artist], sg)
	sort.SliceStable(songs, func(i, j int) bool { return songs[i].Position < songs[j].Position })
	m.artists[artist] = songs
}

// SetCorpus replaces the rows of a corpus
func (m *MemorySources) SetCorpus(corpus string, rows []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corpora[corpus] = slices.Clone(rows)
}

// SetUnclassified replaces the words returned by UnclassifiedWords
func (m *MemorySources) SetUnclassified(words []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unclassified = slices.Clone(words)
}

func (m *MemorySources) ArtistSongs(_ context.Context, artist string) ([]domain.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.artists[artist]), nil
}

func (m *MemorySources) CountCorpus(_ context.Context, corpus string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.corpora[corpus]), nil
}

func (m *MemorySources) CorpusRows(_ context.Context, corpus string, offset, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return window(m.corpora[corpus], offset, limit), nil
}

func (m *MemorySources) JobItems(_ context.Context, id uuid.UUID, offset, limit int) ([]string, error) {
	if m.items == nil {
		return nil, nil
	}
	return window(m.items(id), offset, limit), nil
}

func (m *MemorySources) UnclassifiedWords(_ context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return window(m.unclassified, 0, limit), nil
}

func window(all []string, offset, limit int) []string {
	if offset >= len(all) {
		return nil
	}
	end := min(offset+limit, len(all))
	return slices.Clone(all[offset:end])
}
