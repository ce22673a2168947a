package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	"github.com/trezcool/credeval/storage/database/inmem"
	"github.com/trezcool/credeval/tests"
)

type fixture struct {
	svc       *student.Service
	scaleSvc  *scale.Service
	repo      student.Repository
	scaleRepo scale.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.Open()
	validator := core.NewValidator()
	logger := testutil.NewLogger()

	f := fixture{repo: inmemdb.NewStudentRepository(db), scaleRepo: inmemdb.NewScaleRepository(db)}
	f.scaleSvc = scale.NewService(f.scaleRepo, validator, logger)
	f.svc = student.NewService(f.repo, f.scaleSvc, validator, logger, testutil.NewConfig())

	testutil.CreateScale(t, f.scaleRepo, "US HS", scale.CountryAll, gpa.LevelHighSchool, map[string]string{"A": "A", "B": "B", "C": "C"})
	testutil.CreateScale(t, f.scaleRepo, "France Univ", "France", gpa.LevelUniversity, map[string]string{"TB": "A", "B": "B", "P": "C"})
	testutil.CreateScale(t, f.scaleRepo, "Germany Abitur", "Germany", gpa.LevelHighSchool, map[string]string{"1": "A", "2": "B"})
	return f
}

func transcriptInput(title, scaleName string, multiplier float64, courses ...student.CourseInput) student.TranscriptInput {
	return student.TranscriptInput{
		Title: title, Country: "Somewhere", ScaleName: scaleName, Multiplier: multiplier,
		Semesters: []student.SemesterInput{{Name: "Fall", Courses: courses}},
	}
}

func courseInput(name, grade string, credits float64) student.CourseInput {
	return student.CourseInput{Name: name, Grade: grade, CreditHours: credits}
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		input      student.NewStudent
		wantFields []string
		check      func(t *testing.T, st student.Student)
	}{
		{name: "empty", input: student.NewStudent{}, wantFields: []string{"first_name", "last_name"}},
		{
			name: "bad dob and nested fields",
			input: student.NewStudent{
				FirstName: "Ada", LastName: "Obi", DOB: "31/12/2001",
				Transcripts: []student.TranscriptInput{
					transcriptInput("", "US HS", 1, courseInput("Math", " ", -1)),
				},
			},
			wantFields: []string{
				"dob", "transcripts[0].title",
				"transcripts[0].semesters[0].courses[0].grade", "transcripts[0].semesters[0].courses[0].credit_hours",
			},
		},
		{
			name:  "no transcripts",
			input: student.NewStudent{FirstName: "Ada", LastName: "Obi", DOB: "2001-12-31"},
			check: func(t *testing.T, st student.Student) {
				assert.Equal(t, 2001, st.DOB.Year())
				assert.Zero(t, st.HSGPA)
				assert.Nil(t, st.UniGPA)
			},
		},
		{
			name: "gpa computed on save",
			input: student.NewStudent{
				FirstName: " Ada ", LastName: "Obi", Term: "Fall 2022",
				Transcripts: []student.TranscriptInput{
					transcriptInput("High school", "US HS", 0, courseInput("Math", "A", 3)),
					transcriptInput("Licence", "France Univ", 1, courseInput("Physique", "B", 4), courseInput("Chimie", "Z", 2)),
				},
			},
			check: func(t *testing.T, st student.Student) {
				assert.Equal(t, "Ada", st.FirstName)
				assert.Equal(t, 4.0, st.HSGPA)
				assert.Equal(t, 3.0, st.HSCredits)
				require.NotNil(t, st.UniGPA)
				assert.Equal(t, 3.0, *st.UniGPA)
				assert.Equal(t, 4.0, *st.UniCredits)

				require.Len(t, st.Transcripts, 2)
				assert.Equal(t, 1.0, st.Transcripts[0].Multiplier) // defaulted
				assert.NotEmpty(t, st.Transcripts[0].ID)
				courses := st.Transcripts[1].Semesters[0].Courses
				assert.Equal(t, "B", courses[0].USGrade)
				assert.Equal(t, "", courses[1].USGrade) // unmapped
			},
		},
		{
			name: "negative multiplier normalised",
			input: student.NewStudent{
				FirstName: "Bo", LastName: "Li",
				Transcripts: []student.TranscriptInput{transcriptInput("T", "Germany Abitur", -2, courseInput("Deutsch", "2", 6))},
			},
			check: func(t *testing.T, st student.Student) {
				assert.Equal(t, 1.0, st.Transcripts[0].Multiplier)
				assert.Equal(t, 6.0, st.HSCredits)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := f.svc.Create(ctx, tt.input)
			if len(tt.wantFields) > 0 {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				require.True(t, ok, "want *core.ValidationError, got %v", err)
				flds := vErr.FieldMap()
				for _, fld := range tt.wantFields {
					assert.Contains(t, flds, fld)
				}
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, st.ID)
			tt.check(t, st)
		})
	}
}

func TestService_UpdateTranscriptIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	create := func(first string) student.Student {
		st, err := f.svc.Create(ctx, student.NewStudent{
			FirstName: first, LastName: "Obi",
			Transcripts: []student.TranscriptInput{transcriptInput("High school", "US HS", 1, courseInput("Math", "A", 3), courseInput("Art", "B", 3))},
		})
		require.NoError(t, err)
		return st
	}
	ada, bo := create("Ada"), create("Bo")

	// sentBack rebuilds `st`'s transcript as an update input, keeping the stored IDs.
	sentBack := func(st student.Student) student.UpdateStudent {
		tr := st.Transcripts[0]
		in := transcriptInput(tr.Title, tr.ScaleName, tr.Multiplier)
		in.ID = tr.ID
		for _, c := range tr.Semesters[0].Courses {
			ci := courseInput(c.Name, c.Grade, c.CreditHours)
			ci.ID = c.ID
			in.Semesters[0].Courses = append(in.Semesters[0].Courses, ci)
		}
		return student.UpdateStudent{FirstName: st.FirstName, LastName: st.LastName, Transcripts: []student.TranscriptInput{in}}
	}

	tests := []struct {
		name      string
		input     func() student.UpdateStudent
		wantField string
		wantMsg   string
	}{
		{
			name: "not a uuid",
			input: func() student.UpdateStudent {
				in := sentBack(ada)
				in.Transcripts[0].ID = "x"
				return in
			},
			wantField: "transcripts[0].id",
			wantMsg:   "UUID",
		},
		{
			name: "transcript of another student",
			input: func() student.UpdateStudent {
				in := sentBack(ada)
				in.Transcripts[0].ID = bo.Transcripts[0].ID
				return in
			},
			wantField: "transcripts[0].id",
			wantMsg:   student.ErrForeignID.Error(),
		},
		{
			name: "course of another student",
			input: func() student.UpdateStudent {
				in := sentBack(ada)
				in.Transcripts[0].Semesters[0].Courses[1].ID = bo.Transcripts[0].Semesters[0].Courses[0].ID
				return in
			},
			wantField: "transcripts[0].semesters[0].courses[1].id",
			wantMsg:   student.ErrForeignID.Error(),
		},
		{
			name: "duplicate course",
			input: func() student.UpdateStudent {
				in := sentBack(ada)
				in.Transcripts[0].Semesters[0].Courses[1].ID = in.Transcripts[0].Semesters[0].Courses[0].ID
				return in
			},
			wantField: "transcripts[0].semesters[0].courses[1].id",
			wantMsg:   student.ErrDuplicateID.Error(),
		},
		{name: "ids kept", input: func() student.UpdateStudent { return sentBack(ada) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := f.svc.Update(ctx, ada.ID, tt.input())
			if tt.wantField != "" {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				require.True(t, ok, "want *core.ValidationError, got %v", err)
				assert.Contains(t, vErr.FieldMap()[tt.wantField], tt.wantMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ada.Transcripts[0].ID, st.Transcripts[0].ID)
			assert.ElementsMatch(t, ada.Transcripts[0].Semesters[0].Courses, st.Transcripts[0].Semesters[0].Courses)
		})
	}

	t.Run("ids dropped on create", func(t *testing.T) {
		in := sentBack(bo)
		st, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
		assert.NotEqual(t, bo.Transcripts[0].ID, st.Transcripts[0].ID)
		assert.NotEqual(t, bo.Transcripts[0].Semesters[0].Courses[0].ID, st.Transcripts[0].Semesters[0].Courses[0].ID)
	})
}

func TestService_ComputeGPA(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// stored without any computation
	st := testutil.CreateStudent(t, f.repo, "Kofi", "Mensah",
		testutil.Transcript("Abitur", "Germany Abitur", 0.5, testutil.Course("Chemie", "2", 6)),
		testutil.Transcript("Unknown", "Atlantis", 1, testutil.Course("Magic", "A", 3)),
	)

	_, _, err := f.svc.ComputeGPA(ctx, "nope")
	assert.Equal(t, student.ErrNotFound, err)

	updated, res, err := f.svc.ComputeGPA(ctx, st.ID)
	require.NoError(t, err)

	assert.Equal(t, 3.0, res.HighSchool.GPA)
	assert.Equal(t, 3.0, res.HighSchool.Credits)
	assert.Equal(t, 9.0, res.HighSchool.Points)
	assert.Nil(t, res.University)
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, gpa.UnknownScale, res.Diagnostics[0].Kind)
	assert.Equal(t, gpa.MissingGradeMapping, res.Diagnostics[1].Kind)

	assert.Equal(t, 3.0, updated.HSGPA)
	c := updated.Transcripts[0].Semesters[0].Courses[0]
	assert.Equal(t, "B", c.USGrade)
	assert.Equal(t, 3.0, c.USCreditHours)

	stored, err := f.repo.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, stored.Transcripts[0].GPA)
	assert.Equal(t, 3.0, stored.Transcripts[0].TotalCredits)
}

func TestService_Compute(t *testing.T) {
	f := setup(t)

	transcripts, res, err := f.svc.Compute(context.Background(), student.ComputeInput{
		Transcripts: []student.TranscriptInput{
			transcriptInput("HS", "US HS", 1, courseInput("Math", "A", 3)),
			transcriptInput("Uni", "France Univ", 1, courseInput("Physique", "B", 4)),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.HighSchool.GPA)
	require.NotNil(t, res.University)
	assert.Equal(t, 3.0, res.University.GPA)
	assert.Equal(t, "A", transcripts[0].Semesters[0].Courses[0].USGrade)

	_, _, err = f.svc.Compute(context.Background(), student.ComputeInput{})
	assert.True(t, core.IsValidationError(err))
}

func TestService_EvenWeight(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	st, err := f.svc.Create(ctx, student.NewStudent{
		FirstName: "Ana", LastName: "Silva",
		Transcripts: []student.TranscriptInput{
			transcriptInput("HS 1", "US HS", 1, courseInput("a", "A", 4), courseInput("b", "B", 6)),
			transcriptInput("HS 2", "Germany Abitur", 1, courseInput("c", "1", 5), courseInput("d", "2", 15)),
			transcriptInput("Uni", "France Univ", 1, courseInput("e", "TB", 3)),
		},
	})
	require.NoError(t, err)
	hs1, hs2, uni := st.Transcripts[0].ID, st.Transcripts[1].ID, st.Transcripts[2].ID

	tests := []struct {
		name      string
		ids       []string
		wantErr   error
		wantValid bool
	}{
		{name: "single", ids: []string{hs1}, wantValid: true},
		{name: "duplicates", ids: []string{hs1, hs1}, wantValid: true},
		{name: "unknown transcript", ids: []string{hs1, "nope"}, wantErr: student.ErrTranscriptNotFound},
		{name: "mixed levels", ids: []string{hs1, uni}, wantErr: student.ErrMixedLevels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.EvenWeight(ctx, st.ID, student.EvenWeightInput{TranscriptIDs: tt.ids})
			if tt.wantValid {
				assert.True(t, core.IsValidationError(err), "got %v", err)
				return
			}
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}

	updated, factors, err := f.svc.EvenWeight(ctx, st.ID, student.EvenWeightInput{TranscriptIDs: []string{hs1, hs2}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.5, 0.75}, factors, 1e-9)

	credits := func(tr gpa.Transcript) []float64 {
		var c []float64
		for _, sem := range tr.Semesters {
			for _, course := range sem.Courses {
				c = append(c, course.CreditHours)
			}
		}
		return c
	}
	assert.Equal(t, []float64{6, 9}, credits(updated.Transcripts[0]))
	assert.Equal(t, []float64{3.75, 11.25}, credits(updated.Transcripts[1]))
	assert.Equal(t, []float64{3}, credits(updated.Transcripts[2]))
	// (4*6 + 3*9 + 4*3.75 + 3*11.25) / 30
	assert.InDelta(t, 3.325, updated.HSGPA, 1e-9)
	assert.Equal(t, 30.0, updated.HSCredits)
}

func TestService_QueryAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateStudent(t, f.repo, "Amara", "Okafor")
	testutil.CreateStudent(t, f.repo, "Marta", "Amaral", testutil.Transcript("T", "US HS", 1))
	zed := testutil.CreateStudent(t, f.repo, "Zed", "Zulu")

	names := func(students []student.Student) []string {
		n := make([]string, 0, len(students))
		for _, s := range students {
			n = append(n, s.FullName())
		}
		return n
	}

	tests := []struct {
		name   string
		filter *student.QueryFilter
		want   []string
	}{
		{name: "all, by last name", want: []string{"Marta Amaral", "Amara Okafor", "Zed Zulu"}},
		{name: "search first or last name", filter: &student.QueryFilter{Search: " AMAR"}, want: []string{"Marta Amaral", "Amara Okafor"}},
		{name: "no match", filter: &student.QueryFilter{Search: "xyz"}, want: []string{}},
		{name: "by scale", filter: &student.QueryFilter{ScaleName: "US HS"}, want: []string{"Marta Amaral"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	require.NoError(t, f.svc.Delete(ctx, zed.ID))
	_, err := f.svc.Get(ctx, zed.ID)
	assert.Equal(t, student.ErrNotFound, err)
	assert.Equal(t, student.ErrNotFound, f.svc.Delete(ctx, zed.ID))
}

func TestService_OnScaleChanged(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	unsubscribe := f.scaleSvc.Subscribe(f.svc.OnScaleChanged)
	defer unsubscribe()

	st, err := f.svc.Create(ctx, student.NewStudent{
		FirstName: "Lea", LastName: "Roux",
		Transcripts: []student.TranscriptInput{transcriptInput("Licence", "France Univ", 1, courseInput("Maths", "P", 3))},
	})
	require.NoError(t, err)
	require.Equal(t, 2.0, *st.UniGPA)

	fr, err := f.scaleSvc.GetByName(ctx, "France Univ")
	require.NoError(t, err)
	_, err = f.scaleSvc.Update(ctx, fr.ID, scale.NewGradingScale{
		Name: "France Université", Country: "France", Level: gpa.LevelUniversity,
		Mappings: []scale.NewMapping{{LocalGrade: "P", USLetter: "B-"}},
	})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "France Université", got.Transcripts[0].ScaleName)
	require.NotNil(t, got.UniGPA)
	assert.InDelta(t, 2.7, *got.UniGPA, 1e-9)
	assert.Equal(t, "B-", got.Transcripts[0].Semesters[0].Courses[0].USGrade)
}
