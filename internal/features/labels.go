package features

import "github.com/HamedShams/agile-delay/internal/domain"

// Delayed is 1 for any issue that has not reached Done.
func Delayed(statusScore int) int {
	if statusScore < ScoreDone {
		return 1
	}
	return 0
}

func DeriveLabels(records []domain.EncodedRecord) []domain.LabeledRecord {
	out := make([]domain.LabeledRecord, len(records))
	for i, r := range records {
		out[i] = domain.LabeledRecord{EncodedRecord: r, Delayed: Delayed(r.StatusScore)}
	}
	return out
}
