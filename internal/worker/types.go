package worker

import (
	"context"

	"matchmail/backend/features/profile"
	"matchmail/backend/internal/index"
)

type ProfileLoader interface {
	Get(ctx context.Context, email string) (*profile.CandidateProfile, error)
}

type Reindexer interface {
	Reindex(ctx context.Context, userID string, prof *profile.CandidateProfile) (index.ReindexResult, error)
}
