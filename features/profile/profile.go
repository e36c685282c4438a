package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"matchmail/backend/internal/config"
	"matchmail/backend/internal/middleware"
)

// ErrExtraction marks a resume the completion service could not structure.
var ErrExtraction = errors.New("resume extraction failed")

type Skill struct {
	Name string `json:"name"`
}

type Project struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type WorkExperience struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Duration    string `json:"duration"`
	Details     string `json:"details"`
}

// CandidateProfile is the structured form of a submitted resume. Email is the
// identity key; everything else is optional and overwritten on resubmission.
type CandidateProfile struct {
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	Skills          []Skill          `json:"skills"`
	Projects        []Project        `json:"projects"`
	WorkExperience  []WorkExperience `json:"work_experience"`
	Education       []Education      `json:"education"`
	Certifications  []string         `json:"certifications"`
	Achievements    []string         `json:"achievements"`
	TotalExperience string           `json:"total_experience"`
}

type Repository interface {
	Get(ctx context.Context, email string) (*CandidateProfile, error)
	Upsert(ctx context.Context, prof *CandidateProfile) error
	Count(ctx context.Context) (int, error)
}

type Extractor interface {
	ExtractResume(ctx context.Context, rawText string) (*CandidateProfile, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo      Repository
	extractor Extractor
	pub       EventPublisher
}

func NewService(repo Repository, extractor Extractor, pub EventPublisher) *Service {
	return &Service{repo: repo, extractor: extractor, pub: pub}
}

// SubmitResume structures the raw resume text, persists the profile under the
// authenticated user's email, and queues a reindex of the fragment store. The
// email from the token wins over whatever the resume text claims.
func (s *Service) SubmitResume(ctx context.Context, email, rawText string) (*CandidateProfile, error) {
	prof, err := s.extractor.ExtractResume(ctx, rawText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	prof.Email = email

	if err := s.repo.Upsert(ctx, prof); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":        email,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicResumeIndex, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish resume.index task", "error", err, "user_id", email)
		return nil, fmt.Errorf("queue reindex: %w", err)
	}
	slog.InfoContext(ctx, "published resume.index task", "user_id", email)

	return prof, nil
}

func (s *Service) Get(ctx context.Context, email string) (*CandidateProfile, error) {
	return s.repo.Get(ctx, email)
}
