// Package gate decides whether a candidate meets a job posting's experience
// and education requirements. A mismatch is a normal outcome, not an error.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"matchmail/backend/features/profile"
)

type Completer interface {
	Complete(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error)
}

type Candidate struct {
	TotalExperience string
	Education       []profile.Education
}

type Job struct {
	ExperienceLevel string
	Education       string
}

type Result struct {
	ExperienceMatch bool `json:"experience_match"`
	EducationMatch  bool `json:"education_match"`
}

// Eligible reports whether the pipeline may proceed to retrieval and
// composition. Both checks must pass.
func (r Result) Eligible() bool {
	return r.ExperienceMatch && r.EducationMatch
}

type Gate struct {
	completer Completer
}

func New(c Completer) *Gate {
	return &Gate{completer: c}
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseExperienceYears normalizes an experience string to fractional years.
// Accepts forms like "2.0", "3+ years", "8 months". Unknown input counts as
// zero years.
func ParseExperienceYears(s string) float64 {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	if strings.Contains(strings.ToLower(s), "month") {
		return v / 12
	}
	return v
}

// Evaluate checks experience numerically and delegates the education judgment
// to the completion service. An absent job education requirement is always
// satisfied.
func (g *Gate) Evaluate(ctx context.Context, candidate Candidate, job Job) (Result, error) {
	result := Result{
		ExperienceMatch: ParseExperienceYears(candidate.TotalExperience) >= ParseExperienceYears(job.ExperienceLevel),
	}

	if strings.TrimSpace(job.Education) == "" {
		result.EducationMatch = true
	} else {
		match, err := g.educationSatisfies(ctx, candidate.Education, job.Education)
		if err != nil {
			return Result{}, err
		}
		result.EducationMatch = match
	}

	slog.InfoContext(ctx, "eligibility evaluated",
		"experience_match", result.ExperienceMatch,
		"education_match", result.EducationMatch,
	)
	return result, nil
}

const educationPrompt = `You are an expert HR assistant who checks candidate suitability.

Candidate education:
%s

Job education requirement:
%s

Return "yes" if the candidate's education satisfies the requirement, else "no".`

func educationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"education_match": {Type: genai.TypeString, Enum: []string{"yes", "no"}},
		},
		Required: []string{"education_match"},
	}
}

func (g *Gate) educationSatisfies(ctx context.Context, education []profile.Education, requirement string) (bool, error) {
	eduJSON, err := json.Marshal(education)
	if err != nil {
		return false, fmt.Errorf("marshal candidate education: %w", err)
	}

	prompt := fmt.Sprintf(educationPrompt, eduJSON, requirement)
	raw, err := g.completer.Complete(ctx, prompt, educationSchema())
	if err != nil {
		return false, fmt.Errorf("education check: %w", err)
	}

	var resp struct {
		EducationMatch string `json:"education_match"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, fmt.Errorf("education check response did not conform: %w", err)
	}
	return resp.EducationMatch == "yes", nil
}
