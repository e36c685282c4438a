package extract

import "github.com/google/generative-ai-go/genai"

const resumePrompt = `You are an expert resume parser. Extract structured, meaningful information from the candidate's resume below.

Guidelines:
1. Ignore trivial or outdated skills unless advanced. Focus on modern, in-demand skills.
2. Only include meaningful and market-relevant info.
3. If information is missing, use an empty string for text fields or an empty list for arrays.
4. For total_experience, parse each duration in work_experience (like "Jan 2020 - Mar 2022"), calculate the difference, sum all jobs, and return in years rounded to 1 decimal if at least 1 year (e.g. "2.5"), otherwise in months (e.g. "8 months"). If unknown, return "0". Today is %s.

Resume text:
"""
%s
"""`

const jobPrompt = `You are an expert job posting parser. Given the following job posting text, extract the key information strictly in the required structured format.

Job posting:
"""
%s
"""`

func skillListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {Type: genai.TypeString},
			},
			Required: []string{"name"},
		},
	}
}

func stringListSchema() *genai.Schema {
	return &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}
}

func resumeSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":   {Type: genai.TypeString, Description: "Full name of candidate"},
			"email":  {Type: genai.TypeString},
			"phone":  {Type: genai.TypeString},
			"skills": skillListSchema(),
			"projects": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString, Description: "Achievements, technologies used, outcomes"},
					},
				},
			},
			"work_experience": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"company":     {Type: genai.TypeString},
						"role":        {Type: genai.TypeString},
						"duration":    {Type: genai.TypeString, Description: "Start date - end date"},
						"description": {Type: genai.TypeString},
					},
				},
			},
			"education": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"degree":      {Type: genai.TypeString},
						"institution": {Type: genai.TypeString},
						"duration":    {Type: genai.TypeString},
						"details":     {Type: genai.TypeString, Description: "Relevant achievements or coursework"},
					},
				},
			},
			"certifications":   stringListSchema(),
			"achievements":     stringListSchema(),
			"total_experience": {Type: genai.TypeString, Description: "Total experience in years, or months if under a year"},
		},
		Required: []string{"skills", "projects", "work_experience", "education", "certifications", "achievements", "total_experience"},
	}
}

func jobSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"job_title":        {Type: genai.TypeString},
			"company_name":     {Type: genai.TypeString},
			"description":      {Type: genai.TypeString},
			"responsibilities": stringListSchema(),
			"skills":           skillListSchema(),
			"experience_level": {Type: genai.TypeString, Description: "Required years of experience, e.g. \"1.5\" or \"3+ years\""},
			"location":         {Type: genai.TypeString},
			"education":        {Type: genai.TypeString, Description: "Stated education requirement, empty if none"},
		},
		Required: []string{"job_title", "company_name", "description", "skills", "experience_level"},
	}
}
