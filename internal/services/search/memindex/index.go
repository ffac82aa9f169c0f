// Package memindex is an in-process search index: a token inverted index over titles
// and descriptions with tf-idf ranking
package memindex

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"
	"unicode"

	"listingsync/internal/services/search/domain"

	"github.com/google/uuid"
)

// Index implements domain.Indexer and domain.Searcher
type Index struct {
	mu       sync.RWMutex
	docs     map[uuid.UUID]domain.Document
	postings map[string]map[uuid.UUID]int // term -> doc -> count
	docLen   map[uuid.UUID]int

	// Err, when set, fails every Upsert
	Err error
	// Writes counts accepted upserts, including no-op rewrites
	Writes int
}

var (
	_ domain.Indexer  = (*Index)(nil)
	_ domain.Searcher = (*Index)(nil)
)

// New returns an empty index
func New() *Index {
	return &Index{
		docs:     map[uuid.UUID]domain.Document{},
		postings: map[string]map[uuid.UUID]int{},
		docLen:   map[uuid.UUID]int{},
	}
}

// Upsert stores doc unless a higher version is already indexed
func (i *Index) Upsert(_ context.Context, id uuid.UUID, doc domain.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Err != nil {
		return i.Err
	}
	i.Writes++
	if cur, ok := i.docs[id]; ok {
		if cur.Version > doc.Version {
			return nil
		}
		i.drop(id)
	}
	doc.ID = id
	i.docs[id] = doc
	terms := Tokenize(doc.Title + " " + doc.Description)
	i.docLen[id] = len(terms)
	for _, t := range terms {
		p, ok := i.postings[t]
		if !ok {
			p = map[uuid.UUID]int{}
			i.postings[t] = p
		}
		p[id]++
	}
	return nil
}

func (i *Index) drop(id uuid.UUID) {
	delete(i.docLen, id)
	for t, p := range i.postings {
		delete(p, id)
		if len(p) == 0 {
			delete(i.postings, t)
		}
	}
}

// Get returns the stored document for id
func (i *Index) Get(id uuid.UUID) (domain.Document, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	d, ok := i.docs[id]
	return d, ok
}

// Len is the number of documents
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Search ranks active documents by tf-idf over the query tokens
func (i *Index) Search(_ context.Context, query string, limit int) ([]domain.Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	terms := Tokenize(query)
	if len(terms) == 0 || len(i.docs) == 0 {
		return nil, nil
	}
	n := float64(len(i.docs))
	scores := map[uuid.UUID]float64{}
	for _, t := range terms {
		p := i.postings[t]
		if len(p) == 0 {
			continue
		}
		idf := math.Log((n+1)/(float64(len(p))+1)) + 1
		for id, c := range p {
			if dl := i.docLen[id]; dl > 0 && i.docs[id].Active {
				scores[id] += float64(c) / float64(dl) * idf
			}
		}
	}

	out := make([]domain.Hit, 0, len(scores))
	for id, s := range scores {
		out = append(out, domain.Hit{ID: id, Score: s})
	}
	slices.SortFunc(out, func(a, b domain.Hit) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Tokenize lower-cases s and splits it on spaces and punctuation, dropping 1-rune tokens
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
