package features

import (
	"fmt"

	"github.com/HamedShams/agile-delay/internal/domain"
)

// Categorical columns replaced by codes.
const (
	ColumnAssignee  = "assignee"
	ColumnPriority  = "priority"
	ColumnIssueType = "issuetype"
)

// Columns lists the encoded columns in a fixed order.
var Columns = []string{ColumnAssignee, ColumnPriority, ColumnIssueType}

// column assigns codes in first-seen order.
type column struct {
	codes  map[string]int
	labels []string
}

func (c *column) code(label string) int {
	if code, ok := c.codes[label]; ok {
		return code
	}
	code := len(c.labels)
	c.codes[label] = code
	c.labels = append(c.labels, label)
	return code
}

// Codebook holds, per categorical column, the code assigned to every label
// seen in one batch. Codes are stable within a run only.
type Codebook struct {
	columns map[string]*column
}

func newCodebook() *Codebook {
	cb := &Codebook{columns: make(map[string]*column, len(Columns))}
	for _, name := range Columns {
		cb.columns[name] = &column{codes: map[string]int{}}
	}
	return cb
}

// Decode returns the original label for code in column.
func (cb *Codebook) Decode(col string, code int) (string, error) {
	c, ok := cb.columns[col]
	if !ok {
		return "", fmt.Errorf("codebook: unknown column %q", col)
	}
	if code < 0 || code >= len(c.labels) {
		return "", fmt.Errorf("codebook: column %q has no code %d", col, code)
	}
	return c.labels[code], nil
}

// Labels returns the labels of col indexed by code.
func (cb *Codebook) Labels(col string) []string {
	c, ok := cb.columns[col]
	if !ok {
		return nil
	}
	return append([]string(nil), c.labels...)
}

// Encode replaces assignee, priority and issuetype with per-batch codes.
// Two calls over identically ordered input yield identical codes.
func Encode(records []domain.FeatureRecord) ([]domain.EncodedRecord, *Codebook) {
	cb := newCodebook()
	assignee, priority, issueType := cb.columns[ColumnAssignee], cb.columns[ColumnPriority], cb.columns[ColumnIssueType]
	out := make([]domain.EncodedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, domain.EncodedRecord{
			ID:            r.ID,
			Key:           r.Key,
			Summary:       r.Summary,
			AssigneeCode:  assignee.code(r.Assignee),
			Status:        r.Status,
			PriorityCode:  priority.code(r.Priority),
			IssueTypeCode: issueType.code(r.IssueType),
			Created:       r.Created,
			AgeDays:       r.AgeDays,
			StatusScore:   r.StatusScore,
		})
	}
	return out, cb
}
