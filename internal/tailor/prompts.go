package tailor

import (
	"fmt"
	"strings"

	"github.com/p-shah256/resume-tailor/pkg/types"
)

const systemPrompt = `You are an experienced technical recruiter and resume writer.
You rewrite resume content so it speaks to a specific job posting without inventing experience the candidate does not have.`

const bulletRules = `Return ONLY the improved bullet points, one per line, with no numbering, quotes, headings or commentary.
Do not mention the job posting or that the text was tailored.
Keep each bullet concise (one or two sentences) and keep roughly the same number of bullets.`

func summaryPrompt(summary, job string) string {
	return fmt.Sprintf(`Rewrite this professional summary for the job below.

Original summary:
%q

Job details:
%s

Return ONLY the improved summary as plain text with no markdown, quotes or notes.
Highlight the skills and experience that match the job requirements.
Keep it professional and no longer than 5 sentences.`, summary, job)
}

func experiencePrompt(e types.Experience, job string) string {
	return fmt.Sprintf(`Rewrite these responsibilities so they are more relevant to the job below.

Job title: %q
Company: %q

Original responsibilities:
%s

Job details:
%s

%s`, e.Title, e.Company, strings.Join(e.Responsibilities, "\n"), job, bulletRules)
}

func projectPrompt(p types.Project, job string) string {
	return fmt.Sprintf(`Rewrite this project description so it is more relevant to the job below.

Project name: %q

Original description:
%s

Job details:
%s

%s`, p.Name, strings.Join(p.Description, "\n"), job, bulletRules)
}

func workExperiencePrompt(w types.WorkExperience, job string) string {
	status := "past role"
	if w.IsCurrent {
		status = "current role"
	}
	return fmt.Sprintf(`Rewrite these work responsibilities so they are more relevant to the job below.

Position: %q
Company: %q
Status: %s

Original responsibilities:
%s

Job details:
%s

%s`, orNotSpecified(w.Position), orNotSpecified(w.Company), status,
		strings.Join(w.Responsibilities, "\n"), job, bulletRules)
}

func skillsPrompt(s types.Skills, job string) string {
	return fmt.Sprintf(`Reorder these skills so the ones most relevant to the job below come first.

Original skills:
- Languages: %s
- Frameworks: %s
- Tools: %s
- Concepts: %s

Job details:
%s

Respond with a JSON object using exactly these keys:
{
  "languages": ["..."],
  "frameworks": ["..."],
  "tools": ["..."],
  "concepts": ["..."]
}

Do not remove any skill. Only change the order.`,
		strings.Join(s.Languages, ", "), strings.Join(s.Frameworks, ", "),
		strings.Join(s.Tools, ", "), strings.Join(s.Concepts, ", "), job)
}

func sectionPrompt(name string, items []string, job string) string {
	return fmt.Sprintf(`Rewrite the items of the %q section so they are more relevant to the job below.

Original items:
%s

Job details:
%s

%s`, name, strings.Join(items, "\n"), job, bulletRules)
}

// itemPrompt covers one object inside an open-ended section. details holds
// the object's other short text fields as "Key: value" lines.
func itemPrompt(section, field string, details []string, items []string, job string) string {
	return fmt.Sprintf(`Rewrite this %s entry so it is more relevant to the job below.

%s

Original %s:
%s

Job details:
%s

%s`, section, strings.Join(details, "\n"), field, strings.Join(items, "\n"), job, bulletRules)
}

func questionPrompt(resumeJSON, question string) string {
	return fmt.Sprintf(`Here is a resume in JSON format:

%s

Using only what this resume shows, answer the following question:

%q

If no format is requested, answer clearly in the STAR style and point to the most relevant experience and qualifications from the resume.`, resumeJSON, question)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

// displayName turns a section key such as "volunteer_work" into "volunteer work".
func displayName(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

func titleCase(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
