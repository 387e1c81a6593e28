package service

import (
	"context"
	"fmt"

	"cancioneiro/internal/core/normalize"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/services/jobs/domain"
	pipedomain "cancioneiro/internal/services/pipeline/domain"
)

// maxSnapshot bounds the word list a words job copies at creation
const maxSnapshot = 100_000

// sizeOf counts the units of a new job and returns the word snapshot for words jobs
func (s *Service) sizeOf(ctx context.Context, in domain.CreateInput) (int, []string, error) {
	switch in.Kind {
	case domain.KindArtist:
		songs, err := s.sources.ArtistSongs(ctx, in.Target)
		if err != nil {
			return 0, nil, err
		}
		if len(songs) == 0 {
			return 0, nil, perr.NotFoundf("artist %q has no songs", in.Target)
		}
		total := 0
		for _, sg := range songs {
			total += len(s.pipe.Tokenize(sg.Lyrics))
		}
		return total, nil, nil

	case domain.KindCorpus:
		n, err := s.sources.CountCorpus(ctx, in.Target)
		if err != nil {
			return 0, nil, err
		}
		if n == 0 {
			return 0, nil, perr.NotFoundf("corpus %q is empty", in.Target)
		}
		return n, nil, nil

	case domain.KindWords:
		words := in.Words
		if len(words) == 0 {
			var err error
			if words, err = s.sources.UnclassifiedWords(ctx, maxSnapshot); err != nil {
				return 0, nil, err
			}
		}
		items := dedupe(words)
		return len(items), items, nil
	}
	return 0, nil, perr.InvalidArgf("unknown job kind %q", in.Kind)
}

// dedupe keeps the first occurrence of each normalized word
func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		k := normalize.Word(w)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// slice cuts up to size units starting at cur
func (s *Service) slice(ctx context.Context, j domain.Job, cur domain.Cursor, size int) (domain.Slice, error) {
	switch j.Kind {
	case domain.KindArtist:
		return s.sliceArtist(ctx, j, cur, size)
	case domain.KindCorpus:
		rows, err := s.sources.CorpusRows(ctx, j.Target, cur.Offset, size)
		if err != nil {
			return domain.Slice{}, err
		}
		return s.sliceRows(rows, "row", cur, size), nil
	case domain.KindWords:
		items, err := s.sources.JobItems(ctx, j.ID, cur.Offset, size)
		if err != nil {
			return domain.Slice{}, err
		}
		return s.sliceRows(items, "word", cur, size), nil
	}
	return domain.Slice{}, perr.InvalidArgf("unknown job kind %q", j.Kind)
}

// sliceArtist walks word tokens across songs; a song split between chunks resumes at cur.Word
func (s *Service) sliceArtist(ctx context.Context, j domain.Job, cur domain.Cursor, size int) (domain.Slice, error) {
	songs, err := s.sources.ArtistSongs(ctx, j.Target)
	if err != nil {
		return domain.Slice{}, err
	}
	out := domain.Slice{Next: cur}
	song, word := cur.Song, cur.Word
	for song < len(songs) && out.Units < size {
		text := normalize.Text(songs[song].Lyrics)
		toks := s.pipe.Tokenize(songs[song].Lyrics)
		if word >= len(toks) {
			song, word = song+1, 0
			continue
		}
		to := min(word+size-out.Units, len(toks))
		out.Segments = append(out.Segments, domain.Segment{
			Unit:    fmt.Sprintf("song:%d", songs[song].Position),
			Segment: pipedomain.Segment{Tokens: toks, From: word, To: to, Text: text},
		})
		out.Units += to - word
		word = to
		if word >= len(toks) {
			song, word = song+1, 0
		}
	}
	// skip trailing empty songs so Exhausted is exact
	for song < len(songs) && len(s.pipe.Tokenize(songs[song].Lyrics)) == 0 {
		song++
	}
	out.Next = domain.Cursor{Song: song, Word: word}
	out.Exhausted = song >= len(songs)
	return out, nil
}

// sliceRows makes one segment per row; units are rows. The chunk still goes
// through the pipeline as one batch
func (s *Service) sliceRows(rows []string, prefix string, cur domain.Cursor, size int) domain.Slice {
	out := domain.Slice{Units: len(rows), Exhausted: len(rows) < size}
	for i, r := range rows {
		toks := s.pipe.Tokenize(r)
		out.Segments = append(out.Segments, domain.Segment{
			Unit:    fmt.Sprintf("%s:%d", prefix, cur.Offset+i),
			Segment: pipedomain.Segment{Tokens: toks, To: len(toks), Text: normalize.Text(r)},
		})
	}
	out.Next = domain.Cursor{Offset: cur.Offset + len(rows)}
	return out
}
