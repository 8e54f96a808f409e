package analyzer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/caesium-cloud/jobassist/internal/job"
)

const (
	StatusRelevant    = "RELEVANT"
	StatusNotRelevant = "NOT RELEVANT"

	// minPreFilterScore is the keyword score a posting needs to pass
	// the local pre-filter.
	minPreFilterScore = 2
)

var (
	relevantKeywords = []string{"python", "flask", "fastapi", "ai", "ml", "machine learning", "backend", "api"}
	excludedKeywords = []string{"frontend", "react", "angular", "sales", "devops", ".net", "php"}
	techKeywords     = []string{
		"developer", "engineer", "python", "javascript", "api", "backend",
		"frontend", "ml", "ai", "software", "programmer", "data",
	}
)

// Analysis is the shape of a locally generated analysis. It mirrors the
// fields the remote service returns.
type Analysis struct {
	Status             string  `json:"status"`
	Reason             string  `json:"reason"`
	Contact            *string `json:"contact"`
	EmailSubject       string  `json:"email_subject"`
	EmailBody          string  `json:"email_body"`
	AttachmentRequired bool    `json:"attachment_required"`
}

// Fallback produces a keyword-based analysis for when the remote
// service is unavailable. Fallback analyses are never cached.
func Fallback(j job.Job, p Profile) Analysis {
	content := strings.ToLower(strings.Join([]string{j.Title, j.Description, j.Content}, " "))

	if !containsAny(content, relevantKeywords) || containsAny(content, excludedKeywords) {
		return Analysis{
			Status: StatusNotRelevant,
			Reason: fmt.Sprintf("Job does not match your %s profile or contains excluded technologies", p.Domain),
		}
	}

	var contact *string
	if len(j.ContactInfo.Emails) > 0 {
		email := j.ContactInfo.Emails[0]
		contact = &email
	}

	title := j.Title
	if title == "" {
		title = "Developer Position"
	}

	return Analysis{
		Status:             StatusRelevant,
		Reason:             fmt.Sprintf("Job matches your %s profile with relevant technologies", p.Domain),
		Contact:            contact,
		EmailSubject:       "Application for " + title,
		EmailBody:          emailBody(j, p),
		AttachmentRequired: true,
	}
}

func emailBody(j job.Job, p Profile) string {
	role := j.Title
	if role == "" {
		role = "the developer position"
	}

	var b strings.Builder

	b.WriteString("Dear Hiring Team,\n\n")
	fmt.Fprintf(&b, "I came across your job posting for %s and I'm excited to apply. ", role)
	fmt.Fprintf(&b, "With %d year(s) of industry experience in %s, I believe I would be a great fit for this role.\n\n", p.Experience, p.Domain)

	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "My technical expertise includes %s.\n\n", strings.Join(p.Skills, ", "))
	}

	b.WriteString("Please find my resume attached for your review. I look forward to hearing from you.\n\n")
	b.WriteString("Best regards,\n")

	for _, line := range []string{p.Name, p.Email, p.Phone} {
		if line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// JSON encodes the analysis.
func (a Analysis) JSON() json.RawMessage {
	// a struct of strings and bools always encodes
	data, _ := json.Marshal(a)
	return data
}

// PreFilterFallback keeps postings whose keyword score reaches the
// pass mark and that mention no excluded role.
func PreFilterFallback(jobs []job.Job, p Profile) PreFilterResult {
	skills := lower(p.Skills)
	excluded := lower(p.ExcludedRoles)

	level := strings.ToLower(p.Level)
	if level == "" && p.Experience > 0 {
		level = strconv.Itoa(p.Experience) + " year"
	}

	filtered := make([]job.Job, 0, len(jobs))

	for _, j := range jobs {
		content := j.Text()

		score := 0
		for _, keyword := range techKeywords {
			if strings.Contains(content, keyword) {
				score++
			}
		}

		for _, skill := range skills {
			if strings.Contains(content, skill) {
				score += 3
			}
		}

		if level != "" && strings.Contains(content, level) {
			score++
		}

		if containsAny(content, excluded) {
			continue
		}

		if score >= minPreFilterScore {
			filtered = append(filtered, j)
		}
	}

	return PreFilterResult{
		FilteredJobs:  filtered,
		OriginalCount: len(jobs),
		FilteredCount: len(filtered),
		Fallback:      true,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
