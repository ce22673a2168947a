package gpa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func course(name, grade string, credits float64) Course {
	return Course{Name: name, Grade: grade, CreditHours: credits}
}

func TestAggregate(t *testing.T) {
	usGrades := GradeMap{"A": 4.0, "B": 3.0, "C": 2.0}

	tests := []struct {
		name        string
		transcript  Transcript
		grades      GradeMap
		multiplier  float64
		wantGPA     float64
		wantCredits float64
		wantLetters []string
		wantDiags   []DiagnosticKind
	}{
		{
			name: "single semester",
			transcript: Transcript{Title: "T1", Semesters: []Semester{
				{Name: "Fall 2019", Courses: []Course{course("Math", "A", 3), course("Art", "B", 3)}},
			}},
			grades: usGrades, multiplier: 1,
			wantGPA: 3.5, wantCredits: 6, wantLetters: []string{"A", "B"},
		},
		{
			name: "unmapped course is skipped",
			transcript: Transcript{Title: "T1", Semesters: []Semester{
				{Name: "S1", Courses: []Course{course("Math", "A", 3), course("Bio", "Z", 4)}},
			}},
			grades: usGrades, multiplier: 1,
			wantGPA: 4.0, wantCredits: 3, wantLetters: []string{"A", ""},
			wantDiags: []DiagnosticKind{MissingGradeMapping},
		},
		{
			name: "multiplier cancels out of the GPA",
			transcript: Transcript{Title: "T1", Semesters: []Semester{
				{Name: "S1", Courses: []Course{course("Math", "A", 3)}},
				{Name: "S2", Courses: []Course{course("Art", "C", 1)}},
			}},
			grades: usGrades, multiplier: 2,
			wantGPA: 3.5, wantCredits: 8, wantLetters: []string{"A", "C"},
		},
		{
			name:       "no courses",
			transcript: Transcript{Title: "empty"},
			grades:     usGrades, multiplier: 1,
			wantGPA: 0, wantCredits: 0,
		},
		{
			name: "nil grade map",
			transcript: Transcript{Title: "T1", Semesters: []Semester{
				{Name: "S1", Courses: []Course{course("Math", "A", 3)}},
			}},
			multiplier: 1,
			wantGPA:    0, wantCredits: 0, wantLetters: []string{""},
			wantDiags: []DiagnosticKind{MissingGradeMapping},
		},
		{
			name: "unconvertible point still counts",
			transcript: Transcript{Title: "T1", Semesters: []Semester{
				{Name: "S1", Courses: []Course{course("Math", "X", 2), course("Art", "A", 2)}},
			}},
			grades: GradeMap{"X": 3.05, "A": 4.0}, multiplier: 1,
			wantGPA: 3.525, wantCredits: 4, wantLetters: []string{"", "A"},
			wantDiags: []DiagnosticKind{UnconvertibleGradePoint},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Aggregate(tt.transcript, tt.grades, tt.multiplier)

			assert.InDelta(t, tt.wantGPA, res.GPA, 1e-9)
			assert.InDelta(t, tt.wantCredits, res.TotalCredits, 1e-9)
			if assert.Len(t, res.Courses, len(tt.wantLetters)) {
				for i, cr := range res.Courses {
					assert.Equal(t, tt.wantLetters[i], cr.USGrade, "course %d", i)
				}
			}

			var kinds []DiagnosticKind
			for _, d := range res.Diagnostics {
				kinds = append(kinds, d.Kind)
			}
			assert.Equal(t, tt.wantDiags, kinds)
		})
	}
}

func TestAggregate_gpaWithinRange(t *testing.T) {
	grades := GradeMap{}
	for _, l := range Letters() {
		grades[l], _ = PointForLetter(l)
	}
	var courses []Course
	for i, l := range Letters() {
		courses = append(courses, course(l, l, float64(i%4+1)))
	}

	for _, m := range []float64{0.25, 1, 1.5, 3} {
		res := Aggregate(Transcript{Semesters: []Semester{{Courses: courses}}}, grades, m)
		if res.GPA < 0 || res.GPA > 4 {
			t.Errorf("Aggregate() with multiplier %v GPA = %v, want within [0, 4]", m, res.GPA)
		}
	}
}

func TestTranscript_Apply(t *testing.T) {
	tr := Transcript{Title: "T1", Semesters: []Semester{
		{Name: "S1", Courses: []Course{course("Math", "A", 3), course("Bio", "Z", 2)}},
	}}
	res := Aggregate(tr, GradeMap{"A": 4.0}, 1.5)
	tr.Apply(res)

	assert.Equal(t, 4.0, tr.GPA)
	assert.Equal(t, 4.5, tr.TotalCredits)
	assert.Equal(t, "A", tr.Semesters[0].Courses[0].USGrade)
	assert.Equal(t, 4.5, tr.Semesters[0].Courses[0].USCreditHours)
	assert.Equal(t, "", tr.Semesters[0].Courses[1].USGrade)
	assert.Equal(t, 3.0, tr.Semesters[0].Courses[1].USCreditHours)
}

func TestNormalizeMultiplier(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 1.5, want: 1.5},
		{in: 0, want: 1},
		{in: -2, want: 1},
	}
	for _, tt := range tests {
		if got := NormalizeMultiplier(tt.in); got != tt.want {
			t.Errorf("NormalizeMultiplier(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
