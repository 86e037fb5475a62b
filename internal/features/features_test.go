package features

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func rawIssues(t *testing.T, body string) []domain.RawIssue {
	t.Helper()
	var out []domain.RawIssue
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestExtract_Defaults(t *testing.T) {
	issues := rawIssues(t, `[{"id":"1","key":"P-1","fields":{}}, {"id":"2","key":"P-2"}]`)
	recs := Extract(issues, now)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "", r.Summary)
		assert.Equal(t, "Unassigned", r.Assignee)
		assert.Equal(t, "Unknown", r.Status)
		assert.Equal(t, "None", r.Priority)
		assert.Equal(t, "Other", r.IssueType)
		assert.True(t, r.Created.Equal(now))
		assert.Equal(t, 0, r.AgeDays)
		assert.Equal(t, 1, r.StatusScore)
	}
}

func TestExtract_Populated(t *testing.T) {
	issues := rawIssues(t, `[{"id":"10","key":"P-10","fields":{"summary":"Login broken",
		"assignee":{"displayName":"Alice"},"status":{"name":"Done"},"priority":{"name":"High"},
		"issuetype":{"name":"Bug"},"created":"2025-02-19T11:00:00.000+0000"}}]`)
	recs := Extract(issues, now)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "10", r.ID)
	assert.Equal(t, "P-10", r.Key)
	assert.Equal(t, "Login broken", r.Summary)
	assert.Equal(t, "Alice", r.Assignee)
	assert.Equal(t, "High", r.Priority)
	assert.Equal(t, "Bug", r.IssueType)
	assert.Equal(t, 10, r.AgeDays)
	assert.Equal(t, 2, r.StatusScore)
}

func TestExtract_DoesNotMutateInput(t *testing.T) {
	issues := rawIssues(t, `[{"id":"1","key":"P-1","fields":{"status":{"name":"Blocked"}}}]`)
	before, err := json.Marshal(issues)
	require.NoError(t, err)
	_ = Extract(issues, now)
	after, err := json.Marshal(issues)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestExtract_UnparsableCreated(t *testing.T) {
	issues := rawIssues(t, `[{"id":"1","key":"P-1","fields":{"created":"yesterday"}},
		{"id":"2","key":"P-2","fields":{"created":"01/02/2025"}}]`)
	for _, r := range Extract(issues, now) {
		assert.True(t, r.Created.Equal(now), r.Key)
		assert.Equal(t, 0, r.AgeDays, r.Key)
	}
}

func TestParseTimeUTC_Layouts(t *testing.T) {
	want := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2025-01-15T10:00:00Z",
		"2025-01-15T10:00:00.000Z",
		"2025-01-15T13:30:00+03:30",
		"2025-01-15T10:00:00.000+0000",
		"2025-01-15T12:00:00+0200",
	} {
		got, ok := parseTimeUTC(s)
		require.True(t, ok, s)
		assert.True(t, got.Equal(want), s)
		assert.Equal(t, time.UTC, got.Location(), s)
	}
}

func TestParseTimeUTC_NoZoneIsUTC(t *testing.T) {
	for s, want := range map[string]time.Time{
		"2025-02-27T12:00:00":     time.Date(2025, 2, 27, 12, 0, 0, 0, time.UTC),
		"2025-02-27T12:00:00.250": time.Date(2025, 2, 27, 12, 0, 0, 250e6, time.UTC),
		"2025-02-27 12:00:00":     time.Date(2025, 2, 27, 12, 0, 0, 0, time.UTC),
		"2025-02-27":              time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC),
	} {
		got, ok := parseTimeUTC(s)
		require.True(t, ok, s)
		assert.True(t, got.Equal(want), s)
	}

	issues := rawIssues(t, `[{"id":"1","key":"P-1","fields":{"created":"2025-02-27T12:00:00"}}]`)
	assert.Equal(t, 2, Extract(issues, now)[0].AgeDays)
}

func TestAgeDays_FarPast(t *testing.T) {
	assert.Equal(t, 118704, AgeDays(time.Date(1700, 3, 1, 12, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 739310, AgeDays(time.Date(1, 1, 1, 12, 0, 0, 0, time.UTC), now))

	issues := rawIssues(t, `[{"id":"1","key":"P-1","fields":{"created":"1700-03-01T12:00:00Z"}}]`)
	assert.Equal(t, 118704, Extract(issues, now)[0].AgeDays)
}

func TestAgeDays_SubSecondBoundary(t *testing.T) {
	created := time.Date(2025, 2, 28, 12, 0, 0, 600e6, time.UTC)
	assert.Equal(t, 0, AgeDays(created, now.Add(100*time.Millisecond)))
	assert.Equal(t, 1, AgeDays(created, now.Add(600*time.Millisecond)))
}

func TestAgeDays(t *testing.T) {
	assert.Equal(t, 0, AgeDays(now.Add(48*time.Hour), now), "future clamps to zero")
	assert.Equal(t, 0, AgeDays(now, now))
	assert.Equal(t, 0, AgeDays(now.Add(-23*time.Hour), now))
	assert.Equal(t, 1, AgeDays(now.Add(-24*time.Hour), now))
	assert.Equal(t, 1, AgeDays(now.Add(-47*time.Hour), now))
	assert.Equal(t, 365, AgeDays(now.AddDate(-1, 0, 0), now))
}

func TestExtract_FutureCreatedNonNegative(t *testing.T) {
	issues := rawIssues(t, `[{"id":"1","key":"P-1","fields":{"created":"2030-01-01T00:00:00Z"}}]`)
	recs := Extract(issues, now)
	assert.Equal(t, 0, recs[0].AgeDays)
	assert.Equal(t, 2030, recs[0].Created.Year())
}

func TestStatusScore(t *testing.T) {
	assert.Equal(t, 0, StatusScore("To Do"))
	assert.Equal(t, 1, StatusScore("In Progress"))
	assert.Equal(t, 2, StatusScore("Done"))
	for _, s := range []string{"", "Unknown", "Blocked", "done", "In Review"} {
		assert.Equal(t, 1, StatusScore(s), s)
	}
}

func TestEncode_FirstSeenOrder(t *testing.T) {
	recs := []domain.FeatureRecord{
		{Key: "P-1", Assignee: "Carol", Priority: "High", IssueType: "Bug"},
		{Key: "P-2", Assignee: "Alice", Priority: "Low", IssueType: "Bug"},
		{Key: "P-3", Assignee: "Carol", Priority: "None", IssueType: "Story"},
		{Key: "P-4", Assignee: "Bob", Priority: "High", IssueType: "Task"},
	}
	enc, cb := Encode(recs)
	require.Len(t, enc, 4)

	assert.Equal(t, []int{0, 1, 0, 2}, []int{enc[0].AssigneeCode, enc[1].AssigneeCode, enc[2].AssigneeCode, enc[3].AssigneeCode})
	assert.Equal(t, []int{0, 1, 2, 0}, []int{enc[0].PriorityCode, enc[1].PriorityCode, enc[2].PriorityCode, enc[3].PriorityCode})
	assert.Equal(t, []int{0, 0, 1, 2}, []int{enc[0].IssueTypeCode, enc[1].IssueTypeCode, enc[2].IssueTypeCode, enc[3].IssueTypeCode})
	assert.Equal(t, []string{"Carol", "Alice", "Bob"}, cb.Labels(ColumnAssignee))
	assert.Equal(t, []string{"High", "Low", "None"}, cb.Labels(ColumnPriority))
}

func TestEncode_RoundTrip(t *testing.T) {
	issues := rawIssues(t, `[
		{"id":"1","key":"P-1","fields":{"assignee":{"displayName":"Alice"},"priority":{"name":"High"},"issuetype":{"name":"Bug"}}},
		{"id":"2","key":"P-2","fields":{"priority":{"name":"Low"}}},
		{"id":"3","key":"P-3","fields":{"assignee":{"displayName":"Bob"},"issuetype":{"name":"Story"}}},
		{"id":"4","key":"P-4","fields":{"assignee":{"displayName":"Alice"}}}
	]`)
	recs := Extract(issues, now)
	enc, cb := Encode(recs)
	for i, e := range enc {
		a, err := cb.Decode(ColumnAssignee, e.AssigneeCode)
		require.NoError(t, err)
		p, err := cb.Decode(ColumnPriority, e.PriorityCode)
		require.NoError(t, err)
		it, err := cb.Decode(ColumnIssueType, e.IssueTypeCode)
		require.NoError(t, err)
		assert.Equal(t, recs[i].Assignee, a)
		assert.Equal(t, recs[i].Priority, p)
		assert.Equal(t, recs[i].IssueType, it)
		assert.Equal(t, recs[i].Key, e.Key)
		assert.Equal(t, recs[i].Status, e.Status)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	recs := []domain.FeatureRecord{
		{Assignee: "x", Priority: "p", IssueType: "t"},
		{Assignee: "y", Priority: "q", IssueType: "t"},
	}
	a, _ := Encode(recs)
	b, _ := Encode(recs)
	assert.Equal(t, a, b)
}

func TestCodebook_DecodeErrors(t *testing.T) {
	_, cb := Encode([]domain.FeatureRecord{{Assignee: "x", Priority: "p", IssueType: "t"}})
	_, err := cb.Decode("status", 0)
	assert.Error(t, err)
	_, err = cb.Decode(ColumnAssignee, 1)
	assert.Error(t, err)
	_, err = cb.Decode(ColumnAssignee, -1)
	assert.Error(t, err)
	assert.Nil(t, cb.Labels("status"))
}

func TestDeriveLabels(t *testing.T) {
	enc := []domain.EncodedRecord{{StatusScore: 0}, {StatusScore: 1}, {StatusScore: 2}}
	labeled := DeriveLabels(enc)
	require.Len(t, labeled, 3)
	for _, l := range labeled {
		assert.Equal(t, l.StatusScore < 2, l.Delayed == 1)
	}
	assert.Equal(t, []int{1, 1, 0}, []int{labeled[0].Delayed, labeled[1].Delayed, labeled[2].Delayed})
}

func TestPipeline_ScenarioA(t *testing.T) {
	issues := rawIssues(t, `[
		{"id":"1","key":"P-1","fields":{"status":{"name":"To Do"}}},
		{"id":"2","key":"P-2","fields":{"status":{"name":"Done"}}},
		{"id":"3","key":"P-3","fields":{"status":{"name":"In Progress"}}}
	]`)
	enc, _ := Encode(Extract(issues, now))
	labeled := DeriveLabels(enc)

	scores := make([]int, 0, 3)
	delayed := make([]int, 0, 3)
	for _, l := range labeled {
		scores = append(scores, l.StatusScore)
		delayed = append(delayed, l.Delayed)
	}
	assert.Equal(t, []int{0, 2, 1}, scores)
	assert.Equal(t, []int{1, 0, 1}, delayed)
}
