package cache

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/caesium-cloud/jobassist/internal/job"
	"github.com/pkg/errors"
)

// Entry is one cached analysis plus its bookkeeping. Entries are
// rewritten whole. The analysis is stored compacted, so a hit returns
// JSON equal to what was put but not necessarily the same bytes.
type Entry struct {
	Analysis       json.RawMessage `json:"analysis"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastAccessedAt time.Time       `json:"lastAccessedAt"`
	JobTitle       string          `json:"jobTitle"`
	Company        string          `json:"company"`
	SizeBytes      int             `json:"sizeBytes"`
	IsBulkEntry    bool            `json:"isBulkEntry,omitempty"`
}

func newEntry(j job.Job, analysis json.RawMessage, now time.Time, bulk bool) (Entry, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, analysis); err != nil {
		return Entry{}, errors.Wrap(err, "analysis is not valid json")
	}

	return Entry{
		Analysis:       json.RawMessage(compact.Bytes()),
		CreatedAt:      now,
		LastAccessedAt: now,
		JobTitle:       orUnknown(j.Title),
		Company:        orUnknown(j.Company),
		SizeBytes:      compact.Len(),
		IsBulkEntry:    bulk,
	}, nil
}

// accessTime is the LRU ordering key.
func (e Entry) accessTime() time.Time {
	if !e.LastAccessedAt.IsZero() {
		return e.LastAccessedAt
	}
	return e.CreatedAt
}

func (e Entry) expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(e.CreatedAt) > expiry
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, errors.Wrap(err, "failed to decode cache entry")
	}
	return e, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
