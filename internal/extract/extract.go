// Package extract turns raw resume and job posting text into typed records
// via schema-constrained completion calls. Conformance is enforced by the
// completion service; nothing here re-validates beyond decoding.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"

	"matchmail/backend/features/profile"
)

var ErrExtraction = errors.New("extraction failed")

// Completer is a structured completion call: the response is constrained to
// the given schema and returned as raw JSON.
type Completer interface {
	Complete(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error)
}

// JobPosting is the structured form of a job posting. Produced once per
// matching request and never persisted.
type JobPosting struct {
	JobTitle         string          `json:"job_title"`
	CompanyName      string          `json:"company_name"`
	Description      string          `json:"description"`
	Responsibilities []string        `json:"responsibilities"`
	Skills           []profile.Skill `json:"skills"`
	ExperienceLevel  string          `json:"experience_level"`
	Location         string          `json:"location"`
	Education        string          `json:"education"`
}

type Extractor struct {
	completer Completer
	now       func() time.Time
}

func NewExtractor(c Completer) *Extractor {
	return &Extractor{completer: c, now: time.Now}
}

func (e *Extractor) ExtractResume(ctx context.Context, rawText string) (*profile.CandidateProfile, error) {
	prompt := fmt.Sprintf(resumePrompt, e.now().Format("January 2, 2006"), rawText)

	raw, err := e.completer.Complete(ctx, prompt, resumeSchema())
	if err != nil {
		return nil, fmt.Errorf("%w: resume: %v", ErrExtraction, err)
	}

	var prof profile.CandidateProfile
	if err := json.Unmarshal(raw, &prof); err != nil {
		return nil, fmt.Errorf("%w: resume response did not conform: %v", ErrExtraction, err)
	}
	return &prof, nil
}

func (e *Extractor) ExtractJob(ctx context.Context, rawText string) (*JobPosting, error) {
	prompt := fmt.Sprintf(jobPrompt, rawText)

	raw, err := e.completer.Complete(ctx, prompt, jobSchema())
	if err != nil {
		return nil, fmt.Errorf("%w: job posting: %v", ErrExtraction, err)
	}

	var job JobPosting
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("%w: job response did not conform: %v", ErrExtraction, err)
	}
	return &job, nil
}
