/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/HamedShams/agile-delay/internal/features"
	"github.com/HamedShams/agile-delay/internal/model"
)

// ProcessedHeader is the column order of the encoded feature dump.
var ProcessedHeader = []string{"id", "key", "summary", "assignee", "status", "priority", "issuetype", "created", "age_days", "status_score"}

// BuildOutput decodes every row of the dataset back to its labels. Delayed is
// the status-derived label for all rows; rows held out during evaluation also
// carry the model's prediction.
func BuildOutput(records []domain.LabeledRecord, cb *features.Codebook, res *model.Result, generatedAt time.Time) (domain.PredictionOutput, error) {
	out := domain.PredictionOutput{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Predictions: make([]domain.PredictionRecord, 0, len(records)),
	}
	if res != nil {
		out.Accuracy = res.Accuracy
	}
	for i, r := range records {
		assignee, err := cb.Decode(features.ColumnAssignee, r.AssigneeCode)
		if err != nil {
			return domain.PredictionOutput{}, fmt.Errorf("row %d: %w", i, err)
		}
		priority, err := cb.Decode(features.ColumnPriority, r.PriorityCode)
		if err != nil {
			return domain.PredictionOutput{}, fmt.Errorf("row %d: %w", i, err)
		}
		issueType, err := cb.Decode(features.ColumnIssueType, r.IssueTypeCode)
		if err != nil {
			return domain.PredictionOutput{}, fmt.Errorf("row %d: %w", i, err)
		}
		p := domain.PredictionRecord{
			ID:          r.ID,
			Key:         r.Key,
			Summary:     r.Summary,
			Assignee:    assignee,
			Status:      r.Status,
			Priority:    priority,
			IssueType:   issueType,
			Created:     r.Created.UTC().Format(time.RFC3339),
			AgeDays:     r.AgeDays,
			StatusScore: r.StatusScore,
			Delayed:     r.Delayed,
		}
		if pred, ok := res.PredictionFor(i); ok {
			p.PredictedDelayed = &pred
		}
		out.Predictions = append(out.Predictions, p)
	}
	return out, nil
}

// MarshalPredictions renders the output the way it is written to disk.
func MarshalPredictions(out domain.PredictionOutput) ([]byte, error) {
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal predictions: %w", err)
	}
	return append(b, '\n'), nil
}

func WritePredictionsJSON(path string, out domain.PredictionOutput) error {
	b, err := MarshalPredictions(out)
	if err != nil {
		return err
	}
	return writeAtomic(path, b)
}

func ReadPredictionsJSON(path string) (domain.PredictionOutput, error) {
	var out domain.PredictionOutput
	b, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read predictions: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("parse predictions: %w", err)
	}
	return out, nil
}

// MarshalProcessedCSV dumps the encoded matrix before training.
func MarshalProcessedCSV(records []domain.LabeledRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ProcessedHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		rec := []string{
			r.ID,
			r.Key,
			r.Summary,
			strconv.Itoa(r.AssigneeCode),
			r.Status,
			strconv.Itoa(r.PriorityCode),
			strconv.Itoa(r.IssueTypeCode),
			r.Created.UTC().Format(time.RFC3339),
			strconv.Itoa(r.AgeDays),
			strconv.Itoa(r.StatusScore),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func WriteProcessedCSV(path string, records []domain.LabeledRecord) error {
	b, err := MarshalProcessedCSV(records)
	if err != nil {
		return err
	}
	return writeAtomic(path, b)
}

// WriteResults writes the processed CSV and the predictions JSON as a pair.
// Both payloads are staged beside their targets before either is renamed, and
// if the second rename fails the first file is removed again. A failed call
// leaves neither output behind.
func WriteResults(processedPath string, records []domain.LabeledRecord, predictionsPath string, out domain.PredictionOutput) error {
	csvData, err := MarshalProcessedCSV(records)
	if err != nil {
		return err
	}
	jsonData, err := MarshalPredictions(out)
	if err != nil {
		return err
	}

	csvTmp, err := stage(processedPath, csvData)
	if err != nil {
		return err
	}
	jsonTmp, err := stage(predictionsPath, jsonData)
	if err != nil {
		_ = os.Remove(csvTmp)
		return err
	}
	if err := os.Rename(csvTmp, processedPath); err != nil {
		_ = os.Remove(csvTmp)
		_ = os.Remove(jsonTmp)
		return fmt.Errorf("rename into %s: %w", processedPath, err)
	}
	if err := os.Rename(jsonTmp, predictionsPath); err != nil {
		_ = os.Remove(jsonTmp)
		_ = os.Remove(processedPath)
		return fmt.Errorf("rename into %s: %w", predictionsPath, err)
	}
	return nil
}

// writeAtomic writes through a temp file in the same directory and renames it
// into place, so readers never see a half-written file.
func writeAtomic(path string, data []byte) error {
	name, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// stage writes data to a synced temp file next to path and returns its name.
// The caller owns the temp file once stage succeeds.
func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("write %s: %w", path, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	return name, nil
}
