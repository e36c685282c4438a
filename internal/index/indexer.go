// Package index decomposes candidate profiles into retrievable fragments and
// replaces a user's fragment set in the similarity store on every resume
// submission.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"matchmail/backend/features/profile"
)

const (
	TypeProject        = "project"
	TypeWorkExperience = "work_experience"
	TypeAchievement    = "achievement"
	TypeCertification  = "certification"
)

// Fragment is one retrievable unit of a candidate's experience. Batch tags
// the reindex generation a fragment belongs to; replacement deletes every
// batch but the newest.
type Fragment struct {
	ID      string
	UserID  string
	Type    string
	Content string
	Batch   string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type FragmentStore interface {
	InsertFragment(ctx context.Context, frag Fragment, vector []float32) error
	DeleteFragmentsExcept(ctx context.Context, userID, keepBatch string) error
}

type ReindexResult struct {
	Indexed int
	Skipped bool
	Batch   string
}

type Indexer struct {
	embedder Embedder
	store    FragmentStore
	locks    sync.Map // userID -> *sync.Mutex
}

func NewIndexer(e Embedder, s FragmentStore) *Indexer {
	return &Indexer{embedder: e, store: s}
}

// Decompose flattens a profile into fragments: one per project, work
// experience, achievement, and certification. Empty sections yield nothing.
func Decompose(userID string, prof *profile.CandidateProfile) []Fragment {
	var frags []Fragment

	add := func(fragType, content string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		frags = append(frags, Fragment{UserID: userID, Type: fragType, Content: content})
	}

	for _, p := range prof.Projects {
		add(TypeProject, fmt.Sprintf("%s: %s", p.Title, p.Description))
	}
	for _, w := range prof.WorkExperience {
		add(TypeWorkExperience, fmt.Sprintf("%s at %s (%s): %s", w.Role, w.Company, w.Duration, w.Description))
	}
	for _, a := range prof.Achievements {
		add(TypeAchievement, a)
	}
	for _, c := range prof.Certifications {
		add(TypeCertification, c)
	}
	return frags
}

// Reindex replaces the user's fragment set with the decomposition of prof.
// The new batch is inserted before old batches are deleted, so a failure
// mid-way never leaves the user with an empty set: an insert failure keeps
// the previous batch, a delete failure leaves leftovers the next successful
// reindex removes. Calls for the same user are serialized.
func (ix *Indexer) Reindex(ctx context.Context, userID string, prof *profile.CandidateProfile) (ReindexResult, error) {
	mu, _ := ix.locks.LoadOrStore(userID, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	frags := Decompose(userID, prof)
	if len(frags) == 0 {
		slog.InfoContext(ctx, "nothing to index", "user_id", userID)
		return ReindexResult{Skipped: true}, nil
	}

	batch := uuid.New().String()
	for i := range frags {
		frags[i].ID = uuid.New().String()
		frags[i].Batch = batch
	}

	for _, frag := range frags {
		vector, err := ix.embedder.Embed(ctx, frag.Content)
		if err != nil {
			return ReindexResult{}, fmt.Errorf("embed fragment: %w", err)
		}
		if err := ix.store.InsertFragment(ctx, frag, vector); err != nil {
			return ReindexResult{}, fmt.Errorf("insert fragment: %w", err)
		}
	}

	if err := ix.store.DeleteFragmentsExcept(ctx, userID, batch); err != nil {
		return ReindexResult{}, fmt.Errorf("delete superseded fragments: %w", err)
	}

	slog.InfoContext(ctx, "fragments reindexed", "user_id", userID, "count", len(frags), "batch", batch)
	return ReindexResult{Indexed: len(frags), Batch: batch}, nil
}
