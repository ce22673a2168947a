package gpa

import "fmt"

type DiagnosticKind string

const (
	// MissingGradeMapping: a course grade has no entry in its transcript's grading scale. The course is skipped.
	MissingGradeMapping DiagnosticKind = "missing_grade_mapping"
	// UnconvertibleGradePoint: a mapped grade point has no US letter. The course counts but its letter is left empty.
	UnconvertibleGradePoint DiagnosticKind = "unconvertible_grade_point"
	// UnknownScale: a transcript references a grading scale that does not exist.
	UnknownScale DiagnosticKind = "unknown_scale"
	// UnrecognizedLevel: a transcript's scale level is neither High School nor University.
	// Such transcripts are left out of both level totals.
	UnrecognizedLevel DiagnosticKind = "unrecognized_level"
)

// Diagnostic reports a course or transcript that could not be fully processed.
// Diagnostics never abort a computation.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	Transcript string         `json:"transcript"`
	Scale      string         `json:"scale,omitempty"`
	Semester   string         `json:"semester,omitempty"`
	Course     string         `json:"course,omitempty"`
	Grade      string         `json:"grade,omitempty"`
	Message    string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Course != "" {
		return fmt.Sprintf("%s: transcript %q, semester %q, course %q: %s", d.Kind, d.Transcript, d.Semester, d.Course, d.Message)
	}
	return fmt.Sprintf("%s: transcript %q: %s", d.Kind, d.Transcript, d.Message)
}
