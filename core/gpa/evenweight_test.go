package gpa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvenWeight(t *testing.T) {
	tests := []struct {
		name        string
		transcripts []*Transcript
		wantFactors []float64
		wantCredits [][]float64 // per transcript, courses in order
		wantErr     error
	}{
		{name: "none", wantErr: ErrTooFewTranscripts},
		{
			name:        "single",
			transcripts: []*Transcript{{Semesters: []Semester{{Courses: []Course{course("a", "A", 3)}}}}},
			wantErr:     ErrTooFewTranscripts,
		},
		{
			name: "totals 10 and 20",
			transcripts: []*Transcript{
				{Semesters: []Semester{{Courses: []Course{course("a", "A", 4), course("b", "B", 6)}}}},
				{Semesters: []Semester{
					{Courses: []Course{course("c", "A", 5)}},
					{Courses: []Course{course("d", "A", 15)}},
				}},
			},
			wantFactors: []float64{1.5, 0.75},
			wantCredits: [][]float64{{6, 9}, {3.75, 11.25}},
		},
		{
			name: "rounded to 2 places",
			transcripts: []*Transcript{
				{Semesters: []Semester{{Courses: []Course{course("a", "A", 1), course("b", "A", 2)}}}},
				{Semesters: []Semester{{Courses: []Course{course("c", "A", 4)}}}},
			},
			wantFactors: []float64{3.5 / 3, 3.5 / 4},
			wantCredits: [][]float64{{1.17, 2.33}, {3.5}},
		},
		{
			name: "zero-credit transcript untouched",
			transcripts: []*Transcript{
				{Semesters: []Semester{{Courses: []Course{course("a", "A", 0)}}}},
				{Semesters: []Semester{{Courses: []Course{course("b", "A", 8)}}}},
			},
			wantFactors: []float64{0, 0.5},
			wantCredits: [][]float64{{0}, {4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors, err := EvenWeight(tt.transcripts)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.wantFactors, factors, 1e-9)

			for i, tr := range tt.transcripts {
				var got []float64
				for _, sem := range tr.Semesters {
					for _, c := range sem.Courses {
						got = append(got, c.CreditHours)
					}
				}
				assert.InDeltaSlice(t, tt.wantCredits[i], got, 1e-9, "transcript %d", i)
			}
		})
	}
}
