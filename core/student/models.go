package student

import (
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
)

const dateLayout = "2006-01-02"

type Student struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	DOB       time.Time `json:"dob"` // zero when unknown
	Term      string    `json:"term"`
	HSGPA     float64   `json:"hs_gpa"`
	HSCredits float64   `json:"hs_credits"`
	// UniGPA and UniCredits are nil when the student has no University transcript.
	UniGPA      *float64         `json:"uni_gpa"`
	UniCredits  *float64         `json:"uni_credits"`
	Transcripts []gpa.Transcript `json:"transcripts"`
	CreatedAt   time.Time        `json:"created_at"` // UTC
	UpdatedAt   time.Time        `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// ScaleNames returns the distinct grading scales referenced by the student's transcripts.
func (s Student) ScaleNames() []string {
	return scaleNames(s.Transcripts)
}

func (s *Student) applyRollup(res gpa.Result) {
	s.HSGPA = res.HighSchool.GPA
	s.HSCredits = res.HighSchool.Credits
	s.UniGPA, s.UniCredits = nil, nil
	if res.University != nil {
		uniGPA, uniCredits := res.University.GPA, res.University.Credits
		s.UniGPA, s.UniCredits = &uniGPA, &uniCredits
	}
}

func scaleNames(transcripts []gpa.Transcript) []string {
	seen := make(map[string]bool, len(transcripts))
	names := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		if !seen[t.ScaleName] {
			seen[t.ScaleName] = true
			names = append(names, t.ScaleName)
		}
	}
	return names
}

type CourseInput struct {
	ID          string  `json:"id" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,notblank,max=200"`
	Grade       string  `json:"grade" validate:"required,notblank,max=20"`
	CreditHours float64 `json:"credit_hours" validate:"gte=0"`
}

type SemesterInput struct {
	Name    string        `json:"name" validate:"required,notblank,max=100"`
	Courses []CourseInput `json:"courses" validate:"dive"`
}

type TranscriptInput struct {
	ID        string `json:"id" validate:"omitempty,uuid"`
	Title     string `json:"title" validate:"required,notblank,max=200"`
	Country   string `json:"country" validate:"required,notblank,max=100"`
	ScaleName string `json:"scale_name" validate:"required,notblank"`
	// Multiplier defaults when omitted; invalid values are normalised to 1.0.
	Multiplier float64         `json:"multiplier"`
	Semesters  []SemesterInput `json:"semesters" validate:"dive"`
}

func (ti *TranscriptInput) clean() {
	ti.Title = core.CleanString(ti.Title)
	ti.Country = core.CleanString(ti.Country)
	ti.ScaleName = core.CleanString(ti.ScaleName)
	for si := range ti.Semesters {
		sem := &ti.Semesters[si]
		sem.Name = core.CleanString(sem.Name)
		for ci := range sem.Courses {
			sem.Courses[ci].Name = core.CleanString(sem.Courses[ci].Name)
			sem.Courses[ci].Grade = core.CleanString(sem.Courses[ci].Grade)
		}
	}
}

func (ti TranscriptInput) transcript(defaultMultiplier float64) gpa.Transcript {
	m := ti.Multiplier
	if m == 0 {
		m = defaultMultiplier
	}
	t := gpa.Transcript{
		ID:         ti.ID,
		Title:      ti.Title,
		Country:    ti.Country,
		ScaleName:  ti.ScaleName,
		Multiplier: gpa.NormalizeMultiplier(m),
		Semesters:  make([]gpa.Semester, 0, len(ti.Semesters)),
	}
	for _, sem := range ti.Semesters {
		courses := make([]gpa.Course, 0, len(sem.Courses))
		for _, c := range sem.Courses {
			courses = append(courses, gpa.Course{ID: c.ID, Name: c.Name, Grade: c.Grade, CreditHours: c.CreditHours})
		}
		t.Semesters = append(t.Semesters, gpa.Semester{Name: sem.Name, Courses: courses})
	}
	return t
}

// NewStudent contains information needed to create a new Student, or to replace one.
type NewStudent struct {
	FirstName   string            `json:"first_name" validate:"required,notblank,max=100"`
	LastName    string            `json:"last_name" validate:"required,notblank,max=100"`
	DOB         string            `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Term        string            `json:"term" validate:"max=50"`
	Transcripts []TranscriptInput `json:"transcripts" validate:"dive"`
}

// UpdateStudent replaces a Student's details and its whole transcript set.
// Transcripts and courses keep their identity when their ID is sent back.
type UpdateStudent = NewStudent

func (ns *NewStudent) Validate(v *core.Validator) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.DOB = core.CleanString(ns.DOB)
	ns.Term = core.CleanString(ns.Term)
	for i := range ns.Transcripts {
		ns.Transcripts[i].clean()
	}
	return v.Validate(ns)
}

// clearIDs drops client IDs: a new student owns no transcript nor course yet.
func (ns *NewStudent) clearIDs() {
	for ti := range ns.Transcripts {
		t := &ns.Transcripts[ti]
		t.ID = ""
		for si := range t.Semesters {
			for ci := range t.Semesters[si].Courses {
				t.Semesters[si].Courses[ci].ID = ""
			}
		}
	}
}

// checkIDs makes sure every transcript and course ID sent back belongs to `old`, once.
func (ns NewStudent) checkIDs(old Student) error {
	transcripts := make(map[string]bool, len(old.Transcripts))
	courses := make(map[string]bool)
	for _, t := range old.Transcripts {
		transcripts[t.ID] = true
		for _, sem := range t.Semesters {
			for _, c := range sem.Courses {
				courses[c.ID] = true
			}
		}
	}

	seen := make(map[string]bool)
	var flds []core.FieldError
	check := func(id, field string, known map[string]bool) {
		switch {
		case id == "":
		case !known[id]:
			flds = append(flds, core.FieldError{Field: field, Error: ErrForeignID.Error()})
		case seen[id]:
			flds = append(flds, core.FieldError{Field: field, Error: ErrDuplicateID.Error()})
		}
		seen[id] = true
	}
	for ti, t := range ns.Transcripts {
		tField := "transcripts[" + strconv.Itoa(ti) + "]"
		check(t.ID, tField+".id", transcripts)
		for si, sem := range t.Semesters {
			for ci, c := range sem.Courses {
				check(c.ID, tField+".semesters["+strconv.Itoa(si)+"].courses["+strconv.Itoa(ci)+"].id", courses)
			}
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (ns NewStudent) student(defaultMultiplier float64) Student {
	st := Student{
		FirstName:   ns.FirstName,
		LastName:    ns.LastName,
		Term:        ns.Term,
		Transcripts: make([]gpa.Transcript, 0, len(ns.Transcripts)),
	}
	if ns.DOB != "" {
		st.DOB, _ = time.Parse(dateLayout, ns.DOB) // validated
	}
	for _, ti := range ns.Transcripts {
		st.Transcripts = append(st.Transcripts, ti.transcript(defaultMultiplier))
	}
	return st
}

// ComputeInput is a standalone transcript set to run a rollup on, nothing is stored.
type ComputeInput struct {
	Transcripts []TranscriptInput `json:"transcripts" validate:"required,min=1,dive"`
}

func (ci *ComputeInput) Validate(v *core.Validator) error {
	for i := range ci.Transcripts {
		ci.Transcripts[i].clean()
	}
	return v.Validate(ci)
}

type EvenWeightInput struct {
	TranscriptIDs []string `json:"transcript_ids" validate:"required,min=2,unique,dive,required"`
}

// QueryFilter applies AND on its non-empty fields.
// Search is a case-insensitive match on the first or last name.
type QueryFilter struct {
	Search    string
	ScaleName string
}
