/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package features

import (
	"time"

	"github.com/HamedShams/agile-delay/internal/domain"
)

// Workflow stages recognised by the status score.
const (
	ScoreToDo       = 0
	ScoreInProgress = 1
	ScoreDone       = 2
)

var statusScores = map[string]int{
	"To Do":       ScoreToDo,
	"In Progress": ScoreInProgress,
	"Done":        ScoreDone,
}

// StatusScore maps a workflow status to 0/1/2. Unknown statuses count as in progress.
func StatusScore(status string) int {
	if s, ok := statusScores[status]; ok {
		return s
	}
	return ScoreInProgress
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000Z0700",
	// no zone: read as UTC
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimeUTC returns false when s is not a recognisable timestamp.
// Values without a zone are taken as UTC.
func parseTimeUTC(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

const secondsPerDay = 24 * 60 * 60

// AgeDays is the number of whole days between created and now, never negative.
// It works on Unix seconds since time.Duration cannot span ages beyond ~292 years.
func AgeDays(created, now time.Time) int {
	secs := now.Unix() - created.Unix()
	if now.Nanosecond() < created.Nanosecond() {
		secs--
	}
	if secs <= 0 {
		return 0
	}
	return int(secs / secondsPerDay)
}

// Extract flattens raw issues into feature records in input order. Missing or
// unparsable created timestamps resolve to now.
func Extract(issues []domain.RawIssue, now time.Time) []domain.FeatureRecord {
	now = now.UTC()
	out := make([]domain.FeatureRecord, 0, len(issues))
	for _, is := range issues {
		created := now
		if raw, ok := is.CreatedRaw(); ok {
			if t, ok := parseTimeUTC(raw); ok {
				created = t
			}
		}
		status := is.StatusOrDefault()
		out = append(out, domain.FeatureRecord{
			ID:          string(is.ID),
			Key:         is.Key,
			Summary:     is.SummaryOrDefault(),
			Assignee:    is.AssigneeOrDefault(),
			Status:      status,
			Priority:    is.PriorityOrDefault(),
			IssueType:   is.IssueTypeOrDefault(),
			Created:     created,
			AgeDays:     AgeDays(created, now),
			StatusScore: StatusScore(status),
		})
	}
	return out
}
