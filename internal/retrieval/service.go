// Package retrieval fuses multiple semantic queries against the fragment
// index into one ranked list: merge, dedup by fragment id, sort by distance.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"matchmail/backend/internal/middleware"
	"matchmail/backend/internal/settings"
)

// ScoredFragment pairs a stored fragment with its distance to a query.
// Lower distance means closer semantic match.
type ScoredFragment struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Type     string  `json:"type"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
}

// JobQuery carries the posting fields the fusion queries are built from.
type JobQuery struct {
	Responsibilities []string
	SkillNames       []string
}

// DedupPolicy decides which entry survives when the same fragment id shows
// up in more than one result list.
type DedupPolicy string

const (
	// DedupFirstSeen keeps the first occurrence in concatenation order,
	// even when a later occurrence scores better.
	DedupFirstSeen DedupPolicy = "first_seen"
	// DedupBestDistance keeps the occurrence with the lowest distance.
	DedupBestDistance DedupPolicy = "best_distance"
)

const DefaultTopK = 5

var allowedTypes = map[string]bool{
	"project":         true,
	"work_experience": true,
	"achievement":     true,
	"certification":   true,
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type FragmentSearcher interface {
	SearchFragments(ctx context.Context, vector []float32, userID string, limit int) ([]ScoredFragment, error)
}

type Service struct {
	embedder Embedder
	store    FragmentSearcher
	settings *settings.Service
	logger   *QueryLogger
}

func NewService(e Embedder, s FragmentSearcher, set *settings.Service, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, settings: set, logger: l}
}

// Retrieve runs the responsibilities and skills queries concurrently, then
// merges, dedups, and ranks. An empty index yields an empty slice, not an
// error. topN <= 0 falls back to the configured default. Restartable: the
// result depends only on the index state.
func (s *Service) Retrieve(ctx context.Context, userID string, q JobQuery, topN int) ([]ScoredFragment, error) {
	start := time.Now()

	policy := DedupFirstSeen
	if cfg, err := s.settings.Get(ctx); err == nil {
		if topN <= 0 && cfg.RetrievalTopK > 0 {
			topN = cfg.RetrievalTopK
		}
		if cfg.DedupPolicy == string(DedupBestDistance) {
			policy = DedupBestDistance
		}
	}
	if topN <= 0 {
		topN = DefaultTopK
	}

	queries := []string{
		fmt.Sprintf("Responsibilities: %s.", strings.Join(q.Responsibilities, ", ")),
		fmt.Sprintf("Required skills: %s.", strings.Join(q.SkillNames, ", ")),
	}

	// The two searches are independent; run them concurrently and join
	// both before merging. Order of the result lists is preserved.
	results := make([][]ScoredFragment, len(queries))
	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			results[i], errs[i] = s.search(ctx, userID, query, topN)
		}(i, query)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	merged := Fuse(append(results[0], results[1]...), policy, topN)

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			UserID:        userID,
			Queries:       queries,
			NumResults:    len(merged),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return merged, nil
}

func (s *Service) search(ctx context.Context, userID, query string, limit int) ([]ScoredFragment, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	frags, err := s.store.SearchFragments(ctx, vec, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("search fragments: %w", err)
	}
	return frags, nil
}

// Fuse dedups the concatenated result lists by fragment id under the given
// policy, drops fragments of unexpected types, sorts ascending by distance,
// and truncates to topN.
func Fuse(combined []ScoredFragment, policy DedupPolicy, topN int) []ScoredFragment {
	seen := make(map[string]int, len(combined))
	unique := make([]ScoredFragment, 0, len(combined))

	for _, frag := range combined {
		// Store content is normally already scoped; this is a defensive filter.
		if !allowedTypes[frag.Type] {
			continue
		}
		if at, ok := seen[frag.ID]; ok {
			if policy == DedupBestDistance && frag.Distance < unique[at].Distance {
				unique[at] = frag
			}
			continue
		}
		seen[frag.ID] = len(unique)
		unique = append(unique, frag)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Distance < unique[j].Distance
	})

	if len(unique) > topN {
		unique = unique[:topN]
	}
	return unique
}
