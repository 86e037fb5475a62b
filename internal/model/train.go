/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/HamedShams/agile-delay/internal/forest"
)

// FeatureColumns is the training matrix layout; LabelColumn is the target.
var FeatureColumns = []string{"assignee_code", "priority_code", "issuetype_code", "age_days", "status_score"}

const LabelColumn = "delayed"

type Options struct {
	SplitRatio      float64
	Seed            uint64
	Estimators      int
	MaxDepth        int
	MinSamplesSplit int
}

// Result holds test-partition predictions aligned with TestIndices.
type Result struct {
	TrainIndices []int
	TestIndices  []int
	Predictions  []int
	Accuracy     float64
	Model        *forest.Forest

	byRow map[int]int
}

// NewResult indexes the held-out predictions by dataset row.
func NewResult(train, test, pred []int, acc float64, f *forest.Forest) *Result {
	byRow := make(map[int]int, len(test))
	for k, idx := range test {
		byRow[idx] = pred[k]
	}
	return &Result{TrainIndices: train, TestIndices: test, Predictions: pred, Accuracy: acc, Model: f, byRow: byRow}
}

// PredictionFor returns the held-out prediction for row i of the full dataset.
func (r *Result) PredictionFor(i int) (int, bool) {
	if r == nil {
		return 0, false
	}
	p, ok := r.byRow[i]
	return p, ok
}

// Split shuffles 0..n-1 with a seeded generator and holds out ceil(ratio*n)
// rows for testing, keeping at least one row on each side.
func Split(n int, ratio float64, seed uint64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 records, got %d", domain.ErrInsufficientData, n)
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("split ratio %v outside (0,1)", ratio)
	}
	nTest := int(math.Ceil(ratio * float64(n)))
	nTest = max(1, min(nTest, n-1))

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

func row(r domain.LabeledRecord) []float64 {
	return []float64{
		float64(r.AssigneeCode),
		float64(r.PriorityCode),
		float64(r.IssueTypeCode),
		float64(r.AgeDays),
		float64(r.StatusScore),
	}
}

func matrix(records []domain.LabeledRecord, idx []int) ([][]float64, []int) {
	X := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for k, i := range idx {
		X[k] = row(records[i])
		y[k] = records[i].Delayed
	}
	return X, y
}

func singleClass(y []int) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}

// TrainEvaluate fits a random forest on the train partition and scores it on
// the held-out rows. A partition holding one class only is rejected.
func TrainEvaluate(records []domain.LabeledRecord, opts Options) (*Result, error) {
	train, test, err := Split(len(records), opts.SplitRatio, opts.Seed)
	if err != nil {
		return nil, err
	}
	Xtr, ytr := matrix(records, train)
	Xte, yte := matrix(records, test)
	if singleClass(ytr) {
		return nil, fmt.Errorf("%w: train partition has a single class (%s=%d)", domain.ErrInsufficientData, LabelColumn, ytr[0])
	}
	if singleClass(yte) {
		return nil, fmt.Errorf("%w: test partition has a single class (%s=%d)", domain.ErrInsufficientData, LabelColumn, yte[0])
	}

	f := forest.New(forest.Config{
		Estimators:      opts.Estimators,
		MaxDepth:        opts.MaxDepth,
		MinSamplesSplit: opts.MinSamplesSplit,
		Seed:            opts.Seed,
	})
	if err := f.Fit(Xtr, ytr); err != nil {
		return nil, fmt.Errorf("%w: fit: %v", domain.ErrInsufficientData, err)
	}
	pred, err := f.Predict(Xte)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return NewResult(train, test, pred, Accuracy(yte, pred), f), nil
}

// Accuracy is the fraction of predictions equal to the true labels.
func Accuracy(truth, pred []int) float64 {
	if len(truth) == 0 || len(truth) != len(pred) {
		return 0
	}
	hits := 0
	for i := range truth {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
