package outreach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"matchmail/backend/internal/compose"
	"matchmail/backend/internal/gate"
	"matchmail/backend/internal/retrieval"
)

var ErrNoInput = errors.New("either job_url or job_text is required")

type Service struct {
	fetcher   PageFetcher
	extractor JobExtractor
	profiles  ProfileLoader
	gate      Gatekeeper
	retriever Retriever
	composer  EmailComposer
}

func NewService(f PageFetcher, e JobExtractor, p ProfileLoader, g Gatekeeper, r Retriever, c EmailComposer) *Service {
	return &Service{
		fetcher:   f,
		extractor: e,
		profiles:  p,
		gate:      g,
		retriever: r,
		composer:  c,
	}
}

// GenerateEmail runs the pipeline for the authenticated user against one
// posting. jobText wins when both inputs are given. The gate short-circuits:
// an ineligible candidate never reaches retrieval or composition.
func (s *Service) GenerateEmail(ctx context.Context, email, jobURL, jobText string) (*Outcome, error) {
	if strings.TrimSpace(jobText) == "" {
		if strings.TrimSpace(jobURL) == "" {
			return nil, ErrNoInput
		}
		fetched, err := s.fetcher.FetchText(ctx, jobURL)
		if err != nil {
			return nil, fmt.Errorf("fetch posting: %w", err)
		}
		jobText = fetched
	}

	job, err := s.extractor.ExtractJob(ctx, jobText)
	if err != nil {
		return nil, err
	}

	prof, err := s.profiles.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	eligibility, err := s.gate.Evaluate(ctx, gate.Candidate{
		TotalExperience: prof.TotalExperience,
		Education:       prof.Education,
	}, gate.Job{
		ExperienceLevel: job.ExperienceLevel,
		Education:       job.Education,
	})
	if err != nil {
		return nil, err
	}

	if !eligibility.Eligible() {
		slog.InfoContext(ctx, "candidate ineligible", "user_id", email,
			"experience_match", eligibility.ExperienceMatch,
			"education_match", eligibility.EducationMatch,
		)
		return &Outcome{
			Status:      StatusIneligible,
			Eligibility: eligibility,
			Job:         job,
		}, nil
	}

	jobSkills := make([]string, 0, len(job.Skills))
	for _, sk := range job.Skills {
		jobSkills = append(jobSkills, sk.Name)
	}

	evidence, err := s.retriever.Retrieve(ctx, email, retrieval.JobQuery{
		Responsibilities: job.Responsibilities,
		SkillNames:       jobSkills,
	}, 0)
	if err != nil {
		return nil, err
	}

	candidateSkills := make([]string, 0, len(prof.Skills))
	for _, sk := range prof.Skills {
		candidateSkills = append(candidateSkills, sk.Name)
	}
	matched := compose.MatchedSkills(candidateSkills, jobSkills)

	mail, err := s.composer.Compose(ctx, job, matched, evidence, compose.Candidate{
		Name:  prof.Name,
		Email: prof.Email,
		Phone: prof.Phone,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "outreach email generated", "user_id", email,
		"company", job.CompanyName, "evidence", len(evidence),
	)
	return &Outcome{
		Status:        StatusGenerated,
		Eligibility:   eligibility,
		Job:           job,
		MatchedSkills: matched,
		Evidence:      evidence,
		Email:         mail,
	}, nil
}
