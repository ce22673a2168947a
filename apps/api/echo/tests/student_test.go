package tests

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	"github.com/trezcool/credeval/tests"
)

var usGrades = map[string]string{"A": "A", "B": "B", "C": "C"}

func transcriptInput(title, scaleName string, courses ...student.CourseInput) student.TranscriptInput {
	return student.TranscriptInput{
		Title:     title,
		Country:   "Testland",
		ScaleName: scaleName,
		Semesters: []student.SemesterInput{{Name: "Semester 1", Courses: courses}},
	}
}

func courseInput(name, grade string, credits float64) student.CourseInput {
	return student.CourseInput{Name: name, Grade: grade, CreditHours: credits}
}

func Test_studentApi_create(t *testing.T) {
	srv := setup(t)
	testutil.CreateScale(t, scaleRepo, "US Standard", scale.CountryAll, gpa.LevelHighSchool, usGrades)

	tests := []httpTest{
		{
			name:     "names required",
			body:     marchallObj(t, student.NewStudent{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"first_name": "this field is required", "last_name": "this field is required"}),
		},
		{
			name: "invalid transcript",
			body: marchallObj(t, student.NewStudent{
				FirstName:   "Ada",
				LastName:    "Lovelace",
				Transcripts: []student.TranscriptInput{transcriptInput("", "US Standard", courseInput("Math", "A", 3))},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"transcripts[0].title": "this field is required"}),
		},
		{
			name: "valid",
			body: marchallObj(t, student.NewStudent{
				FirstName: "Ada",
				LastName:  "Lovelace",
				DOB:       "2004-12-10",
				Transcripts: []student.TranscriptInput{
					transcriptInput("Grade 10", "US Standard", courseInput("Math", "A", 3), courseInput("History", "B", 3)),
				},
			}),
			wantCode: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, "/v1/students", tt.body)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var st student.Student
				unmarshallObj(t, rec, &st)
				assert.NotEmpty(t, st.ID)
				assert.Equal(t, 3.5, st.HSGPA)
				assert.Equal(t, 6.0, st.HSCredits)
				assert.Nil(t, st.UniGPA)
				require.Len(t, st.Transcripts, 1)
				assert.Equal(t, 3.5, st.Transcripts[0].GPA)
				assert.Equal(t, 1.0, st.Transcripts[0].Multiplier)
			}
		})
	}
}

func Test_studentApi_queryRetrieveDelete(t *testing.T) {
	srv := setup(t)
	ada := testutil.CreateStudent(t, studentRepo, "Ada", "Lovelace")
	alan := testutil.CreateStudent(t, studentRepo, "Alan", "Turing")
	notFound := marchallObj(t, httpErr{Error: student.ErrNotFound.Error()})

	listed := func(sts ...student.Student) []byte {
		for i := range sts {
			sts[i].Transcripts = nil
		}
		return marchallObj(t, sts)
	}
	path := func(search string) string {
		v := make(url.Values)
		v.Add("search", search)
		return "/v1/students?" + v.Encode()
	}

	tests := []httpTest{
		{name: "query all", method: http.MethodGet, path: "/v1/students", wantCode: http.StatusOK, wantData: listed(ada, alan)},
		{name: "search=TUR", method: http.MethodGet, path: path("TUR"), wantCode: http.StatusOK, wantData: listed(alan)},
		{name: "search (unknown)", method: http.MethodGet, path: path("lol"), wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "retrieve (unknown)", method: http.MethodGet, path: "/v1/students/lol", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "retrieve", method: http.MethodGet, path: "/v1/students/" + ada.ID, wantCode: http.StatusOK, wantData: marchallObj(t, ada)},
		{name: "delete", method: http.MethodDelete, path: "/v1/students/" + ada.ID, wantCode: http.StatusNoContent},
		{name: "retrieve (deleted)", method: http.MethodGet, path: "/v1/students/" + ada.ID, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "delete (unknown)", method: http.MethodDelete, path: "/v1/students/lol", wantCode: http.StatusNotFound, wantData: notFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, do(srv, tt.method, tt.path))
		})
	}
}

func Test_studentApi_update(t *testing.T) {
	srv := setup(t)
	testutil.CreateScale(t, scaleRepo, "US Standard", scale.CountryAll, gpa.LevelHighSchool, usGrades)
	ada := testutil.CreateStudent(t, studentRepo, "Ada", "Lovelace")

	body := marchallObj(t, student.UpdateStudent{
		FirstName:   "Augusta Ada",
		LastName:    "King",
		Transcripts: []student.TranscriptInput{transcriptInput("Grade 11", "US Standard", courseInput("Math", "C", 4))},
	})

	rec := do(srv, http.MethodPut, "/v1/students/"+ada.ID, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var st student.Student
	unmarshallObj(t, rec, &st)
	assert.Equal(t, ada.ID, st.ID)
	assert.Equal(t, "Augusta Ada King", st.FullName())
	assert.Equal(t, 2.0, st.HSGPA)
	assert.Equal(t, 4.0, st.HSCredits)
}

func Test_studentApi_computeGPA(t *testing.T) {
	srv := setup(t)
	testutil.CreateScale(t, scaleRepo, "US Standard", scale.CountryAll, gpa.LevelHighSchool, usGrades)
	testutil.CreateScale(t, scaleRepo, "UK Honours", "United Kingdom", gpa.LevelUniversity, map[string]string{"First": "A", "2:1": "B+"})
	st := testutil.CreateStudent(t, studentRepo, "Ada", "Lovelace",
		testutil.Transcript("Grade 12", "US Standard", 1, testutil.Course("Math", "A", 3), testutil.Course("Art", "Z", 3)),
		testutil.Transcript("Year 1", "UK Honours", 1, testutil.Course("Logic", "2:1", 10)),
	)

	t.Run("unknown student", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/students/lol/gpa")
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: student.ErrNotFound.Error()})}, rec)
	})

	t.Run("recompute", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/students/"+st.ID+"/gpa")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Student student.Student `json:"student"`
			Result  gpa.Result      `json:"result"`
		}
		unmarshallObj(t, rec, &resp)
		assert.Equal(t, 4.0, resp.Student.HSGPA)
		assert.Equal(t, 3.0, resp.Student.HSCredits)
		require.NotNil(t, resp.Student.UniGPA)
		assert.InDelta(t, 3.3, *resp.Student.UniGPA, 1e-9)
		require.NotNil(t, resp.Result.University)
		assert.Equal(t, 10.0, resp.Result.University.Credits)
		require.Len(t, resp.Result.Diagnostics, 1)
		assert.Equal(t, gpa.MissingGradeMapping, resp.Result.Diagnostics[0].Kind)
		assert.Equal(t, "Z", resp.Result.Diagnostics[0].Grade)

		stored, err := studentRepo.GetStudent(ctx(), st.ID)
		require.NoError(t, err)
		assert.Equal(t, 4.0, stored.HSGPA)
	})
}

func Test_studentApi_evenWeight(t *testing.T) {
	srv := setup(t)
	testutil.CreateScale(t, scaleRepo, "US Standard", scale.CountryAll, gpa.LevelHighSchool, usGrades)
	testutil.CreateScale(t, scaleRepo, "UK Honours", "United Kingdom", gpa.LevelUniversity, map[string]string{"First": "A"})
	st := testutil.CreateStudent(t, studentRepo, "Ada", "Lovelace",
		testutil.Transcript("Grade 11", "US Standard", 1, testutil.Course("Math", "A", 3)),
		testutil.Transcript("Grade 12", "US Standard", 1, testutil.Course("Math", "B", 6)),
		testutil.Transcript("Year 1", "UK Honours", 1, testutil.Course("Logic", "First", 10)),
	)
	t1, t2, uni := st.Transcripts[0].ID, st.Transcripts[1].ID, st.Transcripts[2].ID
	path := "/v1/students/" + st.ID + "/even-weight"
	body := func(ids ...string) []byte { return marchallObj(t, student.EvenWeightInput{TranscriptIDs: ids}) }

	tests := []httpTest{
		{name: "too few transcripts", body: body(t1), wantCode: http.StatusBadRequest},
		{
			name: "unknown transcript", body: body(t1, "lol"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: student.ErrTranscriptNotFound.Error()}),
		},
		{
			name: "mixed levels", body: body(t1, uni), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: student.ErrMixedLevels.Error()}),
		},
		{name: "valid", body: body(t1, t2), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, path, tt.body)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp struct {
					Student student.Student `json:"student"`
					Factors []float64       `json:"factors"`
				}
				unmarshallObj(t, rec, &resp)
				assert.Equal(t, []float64{1.5, 0.75}, resp.Factors)
				assert.Equal(t, 3.5, resp.Student.HSGPA)
				assert.Equal(t, 9.0, resp.Student.HSCredits)
			}
		})
	}
}

func Test_studentApi_export(t *testing.T) {
	srv := setup(t)
	testutil.CreateScale(t, scaleRepo, "US Standard", scale.CountryAll, gpa.LevelHighSchool, usGrades)
	st := testutil.CreateStudent(t, studentRepo, "Ada", "Lovelace",
		testutil.Transcript("Grade 12", "US Standard", 1, testutil.Course("Math", "A", 3)),
	)
	path := func(id, level string) string {
		v := make(url.Values)
		if level != "" {
			v.Add("level", level)
		}
		return "/v1/students/" + id + "/export?" + v.Encode()
	}

	tests := []httpTest{
		{
			name: "level required", path: path(st.ID, ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"level": "this field is required"}),
		},
		{
			name: "invalid level", path: path(st.ID, "College"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"level": "must be one of: High School, University"}),
		},
		{
			name: "unknown student", path: path("lol", gpa.LevelHighSchool), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: student.ErrNotFound.Error()}),
		},
		{name: "valid", path: path(st.ID, gpa.LevelHighSchool), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodGet, tt.path)
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="Ada_Lovelace_HighSchool.xlsx"`, rec.Header().Get("Content-Disposition"))
			assert.NotZero(t, rec.Body.Len())
		})
	}
}

func Test_gpaApi_compute(t *testing.T) {
	srv := setup(t)
	testutil.CreateScale(t, scaleRepo, "US Standard", scale.CountryAll, gpa.LevelHighSchool, usGrades)

	t.Run("transcripts required", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/gpa", marchallObj(t, student.ComputeInput{}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"transcripts": "this field is required"}),
		}, rec)
	})

	t.Run("compute", func(t *testing.T) {
		in := student.ComputeInput{Transcripts: []student.TranscriptInput{
			transcriptInput("Grade 9", "US Standard", courseInput("Math", "A", 2), courseInput("Art", "C", 2)),
		}}
		in.Transcripts[0].Multiplier = 2
		rec := do(srv, http.MethodPost, "/v1/gpa", marchallObj(t, in))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Transcripts []gpa.Transcript `json:"transcripts"`
			Result      gpa.Result       `json:"result"`
		}
		unmarshallObj(t, rec, &resp)
		require.Len(t, resp.Transcripts, 1)
		assert.Equal(t, 3.0, resp.Transcripts[0].GPA)
		assert.Equal(t, 8.0, resp.Transcripts[0].TotalCredits)
		assert.Equal(t, 3.0, resp.Result.HighSchool.GPA)
		assert.Nil(t, resp.Result.University)

		students, err := studentRepo.QueryStudents(ctx(), nil)
		require.NoError(t, err)
		assert.Empty(t, students)
	})
}
