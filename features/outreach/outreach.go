// Package outreach runs the full matching pipeline for one job posting:
// extract, gate, retrieve, compose.
package outreach

import (
	"context"

	"matchmail/backend/features/profile"
	"matchmail/backend/internal/compose"
	"matchmail/backend/internal/extract"
	"matchmail/backend/internal/gate"
	"matchmail/backend/internal/retrieval"
)

const (
	StatusGenerated  = "generated"
	StatusIneligible = "ineligible"
)

// Outcome is the pipeline result. An ineligible candidate gets a populated
// Eligibility and no Email; that is a normal outcome, not an error.
type Outcome struct {
	Status        string                     `json:"status"`
	Eligibility   gate.Result                `json:"eligibility"`
	Job           *extract.JobPosting        `json:"job"`
	MatchedSkills []string                   `json:"matched_skills"`
	Evidence      []retrieval.ScoredFragment `json:"evidence,omitempty"`
	Email         *compose.OutreachEmail     `json:"email,omitempty"`
}

type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

type JobExtractor interface {
	ExtractJob(ctx context.Context, rawText string) (*extract.JobPosting, error)
}

type ProfileLoader interface {
	Get(ctx context.Context, email string) (*profile.CandidateProfile, error)
}

type Gatekeeper interface {
	Evaluate(ctx context.Context, candidate gate.Candidate, job gate.Job) (gate.Result, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, userID string, q retrieval.JobQuery, topN int) ([]retrieval.ScoredFragment, error)
}

type EmailComposer interface {
	Compose(ctx context.Context, job *extract.JobPosting, matchedSkills []string, frags []retrieval.ScoredFragment, cand compose.Candidate) (*compose.OutreachEmail, error)
}
