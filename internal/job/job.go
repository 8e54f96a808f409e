package job

import (
	"regexp"
	"strings"
)

// Kind distinguishes where a posting was scraped from.
type Kind string

const (
	KindJobPage  Kind = "job_page"
	KindFeedPost Kind = "feed_post"
)

// ContactInfo holds contact details extracted from a posting.
type ContactInfo struct {
	Emails []string `json:"emails,omitempty" yaml:"emails,omitempty"`
	Names  []string `json:"names,omitempty" yaml:"names,omitempty"`
	Links  []string `json:"links,omitempty" yaml:"links,omitempty"`
}

// Job is a scraped job posting as delivered by the browser extension.
type Job struct {
	Type        Kind        `json:"type,omitempty"`
	Title       string      `json:"title,omitempty"`
	Company     string      `json:"company,omitempty"`
	Location    string      `json:"location,omitempty"`
	Description string      `json:"description,omitempty"`
	Content     string      `json:"content,omitempty"`
	URL         string      `json:"url,omitempty"`
	ContactInfo ContactInfo `json:"contactInfo,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
}

var whitespace = regexp.MustCompile(`\s+`)

// Clean collapses runs of whitespace in every text field.
func (j Job) Clean() Job {
	collapse := func(s string) string {
		return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	}

	j.Title = collapse(j.Title)
	j.Company = collapse(j.Company)
	j.Location = collapse(j.Location)
	j.Description = collapse(j.Description)
	j.Content = collapse(j.Content)
	j.URL = strings.TrimSpace(j.URL)
	return j
}

// Valid reports whether the posting carries enough text to analyze.
// Job pages need a title and company, feed posts more than 50
// characters of content.
func (j Job) Valid() bool {
	switch j.Type {
	case KindFeedPost:
		return len(j.Content) > 50
	case KindJobPage:
		return j.Title != "" && j.Company != ""
	default:
		return j.Title != "" || j.Content != ""
	}
}

// Text joins the searchable text of a posting, lower-cased.
func (j Job) Text() string {
	return strings.ToLower(strings.Join([]string{j.Title, j.Company, j.Description, j.Content}, " "))
}
