package dig_container

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	rediscache "github.com/trezcool/credeval/storage/cache/redis"
	"github.com/trezcool/credeval/storage/database/inmem"
	"github.com/trezcool/credeval/tests"
)

func newCachedStorage(t *testing.T) *Storage {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db := inmemdb.Open()
	st := &Storage{Students: inmemdb.NewStudentRepository(db)}
	st.Cache = rediscache.NewScaleRepository(inmemdb.NewScaleRepository(db), client, time.Hour, testutil.NewLogger())
	st.Scales = st.Cache
	st.closers = append(st.closers, client)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func Test_subscribe(t *testing.T) {
	tests := []struct {
		name    string
		update  scale.NewGradingScale
		wantGPA float64
		wantUS  string
	}{
		{
			name: "mappings changed, same name",
			update: scale.NewGradingScale{Name: "FR", Country: "France", Level: gpa.LevelUniversity,
				Mappings: []scale.NewMapping{{LocalGrade: "P", USLetter: "A"}}},
			wantGPA: 4.0,
			wantUS:  "A",
		},
		{
			name: "renamed",
			update: scale.NewGradingScale{Name: "France", Country: "France", Level: gpa.LevelUniversity,
				Mappings: []scale.NewMapping{{LocalGrade: "P", USLetter: "B"}}},
			wantGPA: 3.0,
			wantUS:  "B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			conf := testutil.NewConfig()
			logger := testutil.NewLogger()
			validator := core.NewValidator()
			st := newCachedStorage(t)
			scaleSvc := scale.NewService(st.Scales, validator, logger)
			studentSvc := student.NewService(st.Students, newScaleResolver(scaleSvc), validator, logger, conf)
			subscribe(scaleSvc, studentSvc, st)

			fr, err := scaleSvc.Create(ctx, scale.NewGradingScale{
				Name: "FR", Country: "France", Level: gpa.LevelUniversity,
				Mappings: []scale.NewMapping{{LocalGrade: "P", USLetter: "C"}},
			})
			require.NoError(t, err)
			stu, err := studentSvc.Create(ctx, student.NewStudent{
				FirstName: "Lea", LastName: "Roux",
				Transcripts: []student.TranscriptInput{{
					Title: "Licence", Country: "France", ScaleName: "FR",
					Semesters: []student.SemesterInput{{Name: "S1", Courses: []student.CourseInput{{Name: "Maths", Grade: "P", CreditHours: 3}}}},
				}},
			})
			require.NoError(t, err)
			require.NotNil(t, stu.UniGPA)
			require.Equal(t, 2.0, *stu.UniGPA)

			_, err = scaleSvc.Update(ctx, fr.ID, tt.update)
			require.NoError(t, err)

			got, err := studentSvc.Get(ctx, stu.ID)
			require.NoError(t, err)
			require.NotNil(t, got.UniGPA)
			assert.Equal(t, tt.wantGPA, *got.UniGPA)
			assert.Equal(t, tt.update.Name, got.Transcripts[0].ScaleName)
			assert.Equal(t, tt.wantUS, got.Transcripts[0].Semesters[0].Courses[0].USGrade)
		})
	}
}
