// Package compose turns a ranked fragment set and a job posting into a
// structured outreach email.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"matchmail/backend/internal/extract"
	"matchmail/backend/internal/retrieval"
)

var ErrCompletion = errors.New("completion failed")

// OutreachEmail is the composed message, field by field. Plain text only.
type OutreachEmail struct {
	Subject  string `json:"subject"`
	Greeting string `json:"greeting"`
	Para1    string `json:"para1"`
	Para2    string `json:"para2"`
	SignOff  string `json:"sign_off"`
}

// Candidate carries the identity fields the email is written on behalf of.
type Candidate struct {
	Name  string
	Email string
	Phone string
}

type Completer interface {
	Complete(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error)
}

type Composer struct {
	completer Completer
}

func NewComposer(c Completer) *Composer {
	return &Composer{completer: c}
}

// MatchedSkills intersects candidate and job skill names case-insensitively.
// The returned names keep the job posting's casing and order. Symmetric in
// content: swapping the inputs changes only casing, not membership.
func MatchedSkills(candidate, job []string) []string {
	have := make(map[string]bool, len(candidate))
	for _, s := range candidate {
		have[strings.ToLower(s)] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, s := range job {
		key := strings.ToLower(s)
		if have[key] && !seen[key] {
			seen[key] = true
			matched = append(matched, s)
		}
	}
	return matched
}

// Digest renders ranked fragments as one evidence line each, best match
// first, for inclusion in the composition prompt.
func Digest(frags []retrieval.ScoredFragment) string {
	var b strings.Builder
	for _, f := range frags {
		fmt.Fprintf(&b, "- %s: %s\n", typeLabel(f.Type), f.Content)
	}
	return b.String()
}

func typeLabel(fragType string) string {
	parts := strings.Split(fragType, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// Compose generates the email from the posting, the candidate's identity and
// matched skills, and the retrieved evidence. All five fields are required
// from the model; a malformed response is a completion error.
func (c *Composer) Compose(ctx context.Context, job *extract.JobPosting, matchedSkills []string, frags []retrieval.ScoredFragment, cand Candidate) (*OutreachEmail, error) {
	prompt := fmt.Sprintf(emailPrompt,
		cand.Name,
		cand.Email,
		cand.Phone,
		job.JobTitle,
		job.CompanyName,
		job.Description,
		strings.Join(job.Responsibilities, ", "),
		strings.Join(matchedSkills, ", "),
		Digest(frags),
	)

	raw, err := c.completer.Complete(ctx, prompt, emailSchema())
	if err != nil {
		return nil, fmt.Errorf("%w: generate email: %v", ErrCompletion, err)
	}

	var email OutreachEmail
	if err := json.Unmarshal(raw, &email); err != nil {
		return nil, fmt.Errorf("%w: decode email: %v", ErrCompletion, err)
	}
	return &email, nil
}

const emailPrompt = `You are writing a short, professional outreach email on behalf of a job candidate.

Candidate:
Name: %s
Email: %s
Phone: %s

The candidate is applying for the role of %s at %s.

About the role:
%s

Key responsibilities: %s

Skills the candidate shares with the posting: %s

Evidence of the candidate's relevant experience, most relevant first:
%s

Write a concise email that references the strongest evidence naturally. Sign
off with the candidate's name and contact details. Do not invent experience
that is not listed. Keep it under 150 words total. Plain text only, no
markdown.`

func emailSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"subject":  {Type: genai.TypeString, Description: "Email subject line"},
			"greeting": {Type: genai.TypeString, Description: "Opening salutation"},
			"para1":    {Type: genai.TypeString, Description: "First paragraph: interest in the role and strongest matching evidence"},
			"para2":    {Type: genai.TypeString, Description: "Second paragraph: supporting evidence and call to action"},
			"sign_off": {Type: genai.TypeString, Description: "Closing salutation with the candidate's name"},
		},
		Required: []string{"subject", "greeting", "para1", "para2", "sign_off"},
	}
}
