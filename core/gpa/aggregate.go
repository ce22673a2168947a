package gpa

import "fmt"

type (
	// CourseResult holds the derived US figures of the course at Semesters[Semester].Courses[Index].
	CourseResult struct {
		Semester      int     `json:"semester"`
		Index         int     `json:"index"`
		USGrade       string  `json:"us_grade"`
		USCreditHours float64 `json:"us_credit_hours"`
		Mapped        bool    `json:"mapped"`
	}

	TranscriptResult struct {
		ID           string         `json:"id,omitempty"`
		Title        string         `json:"title"`
		Level        string         `json:"level,omitempty"`
		Points       float64        `json:"points"`
		TotalCredits float64        `json:"total_credits"`
		GPA          float64        `json:"gpa"`
		Courses      []CourseResult `json:"courses"`
		Diagnostics  []Diagnostic   `json:"diagnostics,omitempty"`
	}
)

// Aggregate computes the transcript GPA on the US 4.0 scale.
//
// Every course whose grade is in `grades` contributes gradePoint x credits x multiplier points
// and credits x multiplier credits. Courses without a mapping are skipped and reported.
// The transcript itself is not modified; see Transcript.Apply.
func Aggregate(t Transcript, grades GradeMap, multiplier float64) TranscriptResult {
	res := TranscriptResult{
		ID:      t.ID,
		Title:   t.Title,
		Courses: make([]CourseResult, 0, t.CourseCount()),
	}

	for si, sem := range t.Semesters {
		for ci, c := range sem.Courses {
			cr := CourseResult{
				Semester:      si,
				Index:         ci,
				USCreditHours: c.CreditHours * multiplier,
			}

			point, ok := grades[c.Grade]
			if !ok {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Kind:       MissingGradeMapping,
					Transcript: t.Title,
					Scale:      t.ScaleName,
					Semester:   sem.Name,
					Course:     c.Name,
					Grade:      c.Grade,
					Message:    fmt.Sprintf("no mapping for grade %q", c.Grade),
				})
				res.Courses = append(res.Courses, cr)
				continue
			}

			cr.Mapped = true
			res.Points += point * cr.USCreditHours
			res.TotalCredits += cr.USCreditHours

			letter, err := LetterForPoint(point)
			if err != nil {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Kind:       UnconvertibleGradePoint,
					Transcript: t.Title,
					Scale:      t.ScaleName,
					Semester:   sem.Name,
					Course:     c.Name,
					Grade:      c.Grade,
					Message:    err.Error(),
				})
			}
			cr.USGrade = letter
			res.Courses = append(res.Courses, cr)
		}
	}

	if res.TotalCredits > 0 {
		res.GPA = res.Points / res.TotalCredits
	}
	return res
}
