package gpa

import "math"

// Grading scale levels
const (
	LevelHighSchool = "High School"
	LevelUniversity = "University"
)

var Levels = []string{LevelHighSchool, LevelUniversity}

// IsLevel reports whether `level` is one of the recognised grading scale levels.
func IsLevel(level string) bool {
	return level == LevelHighSchool || level == LevelUniversity
}

type (
	// GradeMap maps a local grade symbol to its US-equivalent grade point (0.0 - 4.0).
	GradeMap map[string]float64

	// Scale is what the rollup needs to know about a grading scale.
	Scale struct {
		Name   string
		Level  string
		Grades GradeMap
	}

	// Scales indexes grading scales by name.
	Scales map[string]Scale
)

type Course struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name"`
	Grade         string  `json:"grade"`
	CreditHours   float64 `json:"credit_hours"`
	USGrade       string  `json:"us_grade"`
	USCreditHours float64 `json:"us_credit_hours"`
}

type Semester struct {
	Name    string   `json:"name"`
	Courses []Course `json:"courses"`
}

type Transcript struct {
	ID           string     `json:"id,omitempty"`
	Title        string     `json:"title"`
	Country      string     `json:"country"`
	ScaleName    string     `json:"scale_name"`
	Multiplier   float64    `json:"multiplier"`
	GPA          float64    `json:"gpa"`
	TotalCredits float64    `json:"total_credits"`
	Semesters    []Semester `json:"semesters"`
}

// RawCredits is the sum of the local credit hours of all courses, before the multiplier.
func (t Transcript) RawCredits() float64 {
	var total float64
	for _, sem := range t.Semesters {
		for _, c := range sem.Courses {
			total += c.CreditHours
		}
	}
	return total
}

// CourseCount returns the number of courses across all semesters.
func (t Transcript) CourseCount() int {
	var n int
	for _, sem := range t.Semesters {
		n += len(sem.Courses)
	}
	return n
}

// Apply writes the computed figures of `res` back onto the transcript and its courses.
// `res` must come from aggregating this very transcript.
func (t *Transcript) Apply(res TranscriptResult) {
	t.GPA = res.GPA
	t.TotalCredits = res.TotalCredits
	for _, cr := range res.Courses {
		if cr.Semester >= len(t.Semesters) || cr.Index >= len(t.Semesters[cr.Semester].Courses) {
			continue
		}
		c := &t.Semesters[cr.Semester].Courses[cr.Index]
		c.USGrade = cr.USGrade
		c.USCreditHours = cr.USCreditHours
	}
}

// NormalizeMultiplier returns 1.0 for any multiplier that cannot convert credits (non-positive, NaN or infinite).
func NormalizeMultiplier(m float64) float64 {
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return 1.0
	}
	return m
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
