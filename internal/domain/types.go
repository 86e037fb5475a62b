/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Defaults applied when a nested issue field is absent.
const (
	DefaultAssignee  = "Unassigned"
	DefaultStatus    = "Unknown"
	DefaultPriority  = "None"
	DefaultIssueType = "Other"
)

// IssueID accepts both string and numeric JSON ids.
type IssueID string

func (id *IssueID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = IssueID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = IssueID(n.String())
	return nil
}

type NamedRef struct {
	Name *string `json:"name"`
}

type UserRef struct {
	DisplayName *string `json:"displayName"`
}

type IssueFields struct {
	Summary   *string   `json:"summary"`
	Assignee  *UserRef  `json:"assignee"`
	Status    *NamedRef `json:"status"`
	Priority  *NamedRef `json:"priority"`
	IssueType *NamedRef `json:"issuetype"`
	Created   *string   `json:"created"`
}

// RawIssue is one element of the source `issues` array. Any nested field may
// be missing; use the resolver methods instead of reading fields directly.
type RawIssue struct {
	ID     IssueID      `json:"id"`
	Key    string       `json:"key"`
	Fields *IssueFields `json:"fields"`
}

func (r RawIssue) fields() IssueFields {
	if r.Fields == nil {
		return IssueFields{}
	}
	return *r.Fields
}

func nameOr(ref *NamedRef, def string) string {
	if ref == nil || ref.Name == nil {
		return def
	}
	return *ref.Name
}

func (r RawIssue) SummaryOrDefault() string {
	f := r.fields()
	if f.Summary == nil {
		return ""
	}
	return *f.Summary
}

func (r RawIssue) AssigneeOrDefault() string {
	f := r.fields()
	if f.Assignee == nil || f.Assignee.DisplayName == nil {
		return DefaultAssignee
	}
	return *f.Assignee.DisplayName
}

func (r RawIssue) StatusOrDefault() string    { return nameOr(r.fields().Status, DefaultStatus) }
func (r RawIssue) PriorityOrDefault() string  { return nameOr(r.fields().Priority, DefaultPriority) }
func (r RawIssue) IssueTypeOrDefault() string { return nameOr(r.fields().IssueType, DefaultIssueType) }

// CreatedRaw returns the created timestamp string and whether it was present.
func (r RawIssue) CreatedRaw() (string, bool) {
	f := r.fields()
	if f.Created == nil || strings.TrimSpace(*f.Created) == "" {
		return "", false
	}
	return *f.Created, true
}

// FeatureRecord is the flat, still categorical view of an issue.
type FeatureRecord struct {
	ID          string
	Key         string
	Summary     string
	Assignee    string
	Status      string
	Priority    string
	IssueType   string
	Created     time.Time
	AgeDays     int
	StatusScore int
}

// EncodedRecord replaces the categorical columns by codes from a codebook.
type EncodedRecord struct {
	ID            string
	Key           string
	Summary       string
	AssigneeCode  int
	Status        string
	PriorityCode  int
	IssueTypeCode int
	Created       time.Time
	AgeDays       int
	StatusScore   int
}

type LabeledRecord struct {
	EncodedRecord
	Delayed int
}

// PredictionRecord is one row of predictions.json. Delayed is always the
// label derived from the status score; PredictedDelayed is set only for rows
// held out for evaluation.
type PredictionRecord struct {
	ID               string `json:"id"`
	Key              string `json:"key"`
	Summary          string `json:"summary"`
	Assignee         string `json:"assignee"`
	Status           string `json:"status"`
	Priority         string `json:"priority"`
	IssueType        string `json:"issuetype"`
	Created          string `json:"created"`
	AgeDays          int    `json:"age_days"`
	StatusScore      int    `json:"status_score"`
	Delayed          int    `json:"delayed"`
	PredictedDelayed *int   `json:"predicted_delayed,omitempty"`
}

type PredictionOutput struct {
	Accuracy    float64            `json:"accuracy"`
	GeneratedAt string             `json:"generated_at"`
	Predictions []PredictionRecord `json:"predictions"`
}

// DelayedCount returns how many exported rows carry delayed=1.
func (o PredictionOutput) DelayedCount() int {
	n := 0
	for _, p := range o.Predictions {
		if p.Delayed == 1 {
			n++
		}
	}
	return n
}
