package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	"github.com/trezcool/credeval/services/logger"
)

// NewConfig returns a test configuration; nothing is read from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:  "Credeval",
		Env:      "TEST",
		Debug:    true,
		TestMode: true,
		GPA:      core.GPAConfig{DefaultMultiplier: 1.0},
	}
}

// NewLogger returns a logger that discards everything.
func NewLogger() core.Logger {
	return logsvc.NewLogger(io.Discard, NewConfig())
}

// CreateScale stores a grading scale; `grades` maps local grades to US letters.
func CreateScale(t *testing.T, repo scale.Repository, name, country, level string, grades map[string]string) scale.GradingScale {
	t.Helper()

	mappings := make([]scale.Mapping, 0, len(grades))
	for local, letter := range grades {
		point, err := gpa.PointForLetter(letter)
		if err != nil {
			t.Fatalf("CreateScale() failed: %v", err)
		}
		mappings = append(mappings, scale.Mapping{LocalGrade: local, USLetter: letter, USPoint: point})
	}
	now := time.Now().UTC()
	sc, err := repo.CreateScale(context.Background(), scale.GradingScale{
		Name:      name,
		Country:   country,
		Level:     level,
		Mappings:  mappings,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateScale() failed: %v", err)
	}
	return sc
}

// Transcript builds a single-semester transcript.
func Transcript(title, scaleName string, multiplier float64, courses ...gpa.Course) gpa.Transcript {
	return gpa.Transcript{
		Title:      title,
		Country:    "Testland",
		ScaleName:  scaleName,
		Multiplier: multiplier,
		Semesters:  []gpa.Semester{{Name: "Semester 1", Courses: courses}},
	}
}

func Course(name, grade string, credits float64) gpa.Course {
	return gpa.Course{Name: name, Grade: grade, CreditHours: credits}
}

// CreateStudent stores a student as is; no GPA is computed.
func CreateStudent(t *testing.T, repo student.Repository, first, last string, transcripts ...gpa.Transcript) student.Student {
	t.Helper()

	now := time.Now().UTC()
	st, err := repo.CreateStudent(context.Background(), student.Student{
		FirstName:   first,
		LastName:    last,
		Term:        "Fall 2021",
		Transcripts: transcripts,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}
