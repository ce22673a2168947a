package gpa

import "github.com/pkg/errors"

var ErrTooFewTranscripts = errors.New("even weighting needs at least two transcripts")

// EvenWeight rescales the course credit hours of each transcript so that every transcript
// carries the average raw credit total of the selection. Each credit value is rounded to
// 2 decimal places, half away from zero. It returns the scale factor applied to each transcript;
// transcripts with no credits are left untouched and get a 0 factor.
//
// All transcripts must share the same level; that is checked by the caller.
// The transform is in place and cannot be undone.
func EvenWeight(transcripts []*Transcript) ([]float64, error) {
	if len(transcripts) < 2 {
		return nil, ErrTooFewTranscripts
	}

	totals := make([]float64, len(transcripts))
	var sum float64
	for i, t := range transcripts {
		totals[i] = t.RawCredits()
		sum += totals[i]
	}
	avg := sum / float64(len(transcripts))

	factors := make([]float64, len(transcripts))
	for i, t := range transcripts {
		if totals[i] == 0 {
			continue
		}
		factors[i] = avg / totals[i]
		for si := range t.Semesters {
			courses := t.Semesters[si].Courses
			for ci := range courses {
				courses[ci].CreditHours = round(courses[ci].CreditHours*factors[i], 2)
			}
		}
	}
	return factors, nil
}
