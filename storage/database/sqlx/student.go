package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/student"
)

type (
	studentRow struct {
		ID         string       `db:"id"`
		FirstName  string       `db:"first_name"`
		LastName   string       `db:"last_name"`
		DOB        null.Time    `db:"dob"`
		Term       string       `db:"term"`
		HSGPA      float64      `db:"hs_gpa"`
		HSCredits  float64      `db:"hs_credits"`
		UniGPA     null.Float64 `db:"uni_gpa"`
		UniCredits null.Float64 `db:"uni_credits"`
		CreatedAt  time.Time    `db:"created_at"`
		UpdatedAt  time.Time    `db:"updated_at"`
	}

	transcriptRow struct {
		ID           string  `db:"id"`
		StudentID    string  `db:"student_id"`
		Title        string  `db:"title"`
		Country      string  `db:"country"`
		ScaleName    string  `db:"scale_name"`
		Multiplier   float64 `db:"multiplier"`
		GPA          float64 `db:"gpa"`
		TotalCredits float64 `db:"total_credits"`
		Position     int     `db:"position"`
	}

	courseRow struct {
		ID            string      `db:"id"`
		TranscriptID  string      `db:"transcript_id"`
		Semester      string      `db:"semester"`
		Name          string      `db:"name"`
		Grade         string      `db:"grade"`
		CreditHours   float64     `db:"credit_hours"`
		USGrade       null.String `db:"us_grade"`
		USCreditHours float64     `db:"us_credit_hours"`
		Position      int         `db:"position"`
	}
)

const (
	studentColumns    = "id, first_name, last_name, dob, term, hs_gpa, hs_credits, uni_gpa, uni_credits, created_at, updated_at"
	transcriptColumns = "id, student_id, title, country, scale_name, multiplier, gpa, total_credits, position"
	courseColumns     = "id, transcript_id, semester, name, grade, credit_hours, us_grade, us_credit_hours, position"
)

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) toRow(st student.Student) studentRow {
	return studentRow{
		ID:         st.ID,
		FirstName:  st.FirstName,
		LastName:   st.LastName,
		DOB:        null.NewTime(st.DOB, !st.DOB.IsZero()),
		Term:       st.Term,
		HSGPA:      st.HSGPA,
		HSCredits:  st.HSCredits,
		UniGPA:     null.Float64FromPtr(st.UniGPA),
		UniCredits: null.Float64FromPtr(st.UniCredits),
		CreatedAt:  st.CreatedAt.UTC(),
		UpdatedAt:  st.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) fromRow(row studentRow) student.Student {
	return student.Student{
		ID:         row.ID,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		DOB:        row.DOB.Time,
		Term:       row.Term,
		HSGPA:      row.HSGPA,
		HSCredits:  row.HSCredits,
		UniGPA:     row.UniGPA.Ptr(),
		UniCredits: row.UniCredits.Ptr(),
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

// trapNoRowsErr maps "no rows" to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) insertTranscripts(ctx context.Context, tx *sqlx.Tx, st student.Student) error {
	if len(st.Transcripts) == 0 {
		return nil
	}

	transcripts := make([]transcriptRow, 0, len(st.Transcripts))
	var courses []courseRow
	for ti, t := range st.Transcripts {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		transcripts = append(transcripts, transcriptRow{
			ID:           t.ID,
			StudentID:    st.ID,
			Title:        t.Title,
			Country:      t.Country,
			ScaleName:    t.ScaleName,
			Multiplier:   t.Multiplier,
			GPA:          t.GPA,
			TotalCredits: t.TotalCredits,
			Position:     ti,
		})

		var pos int
		for _, sem := range t.Semesters {
			for _, c := range sem.Courses {
				if c.ID == "" {
					c.ID = uuid.New().String()
				}
				courses = append(courses, courseRow{
					ID:            c.ID,
					TranscriptID:  t.ID,
					Semester:      sem.Name,
					Name:          c.Name,
					Grade:         c.Grade,
					CreditHours:   c.CreditHours,
					USGrade:       null.NewString(c.USGrade, c.USGrade != ""),
					USCreditHours: c.USCreditHours,
					Position:      pos,
				})
				pos++
			}
		}
	}

	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO transcript (`+transcriptColumns+`)
		VALUES (:id, :student_id, :title, :country, :scale_name, :multiplier, :gpa, :total_credits, :position)`, transcripts)
	if err != nil {
		return errors.Wrap(err, "inserting transcripts")
	}
	if len(courses) == 0 {
		return nil
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :transcript_id, :semester, :name, :grade, :credit_hours, :us_grade, :us_credit_hours, :position)`, courses)
	return errors.Wrap(err, "inserting courses")
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = uuid.New().String()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO student (`+studentColumns+`)
			VALUES (:id, :first_name, :last_name, :dob, :term, :hs_gpa, :hs_credits, :uni_gpa, :uni_credits, :created_at, :updated_at)`,
			repo.toRow(st))
		if err != nil {
			return errors.Wrap(err, "inserting student")
		}
		return repo.insertTranscripts(ctx, tx, st)
	})
	if err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, st.ID)
}

func (repo studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if _, err := uuid.Parse(st.ID); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			UPDATE student
			SET first_name = :first_name, last_name = :last_name, dob = :dob, term = :term,
				hs_gpa = :hs_gpa, hs_credits = :hs_credits, uni_gpa = :uni_gpa, uni_credits = :uni_credits,
				updated_at = :updated_at
			WHERE id = :id`, repo.toRow(st))
		if err != nil {
			return errors.Wrap(err, "updating student")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "updating student")
		} else if n == 0 {
			return student.ErrNotFound
		}

		// courses go with their transcript (ON DELETE CASCADE); IDs are kept on re-insert
		if _, err = tx.ExecContext(ctx, "DELETE FROM transcript WHERE student_id = $1", st.ID); err != nil {
			return errors.Wrap(err, "deleting transcripts")
		}
		return repo.insertTranscripts(ctx, tx, st)
	})
	if err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, st.ID)
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM student WHERE id = $1", id); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	st := repo.fromRow(row)

	var tRows []transcriptRow
	err := repo.db.SelectContext(ctx, &tRows,
		"SELECT "+transcriptColumns+" FROM transcript WHERE student_id = $1 ORDER BY position", id)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "querying transcripts")
	}
	st.Transcripts = make([]gpa.Transcript, 0, len(tRows))
	if len(tRows) == 0 {
		return st, nil
	}

	ids := make([]string, 0, len(tRows))
	for _, t := range tRows {
		ids = append(ids, t.ID)
	}
	q, args, err := in(repo.db, "SELECT "+courseColumns+" FROM course WHERE transcript_id IN (?) ORDER BY position", ids)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "querying courses")
	}
	var cRows []courseRow
	if err = repo.db.SelectContext(ctx, &cRows, q, args...); err != nil {
		return student.Student{}, errors.Wrap(err, "querying courses")
	}
	byTranscript := make(map[string][]courseRow, len(tRows))
	for _, c := range cRows {
		byTranscript[c.TranscriptID] = append(byTranscript[c.TranscriptID], c)
	}

	for _, t := range tRows {
		st.Transcripts = append(st.Transcripts, gpa.Transcript{
			ID:           t.ID,
			Title:        t.Title,
			Country:      t.Country,
			ScaleName:    t.ScaleName,
			Multiplier:   t.Multiplier,
			GPA:          t.GPA,
			TotalCredits: t.TotalCredits,
			Semesters:    semesters(byTranscript[t.ID]),
		})
	}
	return st, nil
}

// semesters groups course rows by semester name, semesters sorted by name.
func semesters(rows []courseRow) []gpa.Semester {
	bySemester := make(map[string][]gpa.Course)
	var names []string
	for _, r := range rows {
		if _, ok := bySemester[r.Semester]; !ok {
			names = append(names, r.Semester)
		}
		bySemester[r.Semester] = append(bySemester[r.Semester], gpa.Course{
			ID:            r.ID,
			Name:          r.Name,
			Grade:         r.Grade,
			CreditHours:   r.CreditHours,
			USGrade:       r.USGrade.String,
			USCreditHours: r.USCreditHours,
		})
	}
	sort.Strings(names)

	sems := make([]gpa.Semester, 0, len(names))
	for _, name := range names {
		sems = append(sems, gpa.Semester{Name: name, Courses: bySemester[name]})
	}
	return sems
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter) ([]student.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			where = append(where, "(first_name ILIKE "+p+" OR last_name ILIKE "+p+")")
		}
		if filter.ScaleName != "" {
			where = append(where, "id IN (SELECT student_id FROM transcript WHERE scale_name = "+arg(filter.ScaleName)+")")
		}
	}

	q := "SELECT " + studentColumns + " FROM student"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	ordering := []core.DBOrdering{{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	q += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, repo.fromRow(r))
	}
	return students, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return student.ErrNotFound
	}
	// transcripts and courses are removed by ON DELETE CASCADE
	res, err := repo.db.ExecContext(ctx, "DELETE FROM student WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting student")
	} else if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo studentRepository) RenameScale(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := repo.db.ExecContext(ctx, "UPDATE transcript SET scale_name = $2 WHERE scale_name = $1", oldName, newName)
	if err != nil {
		return 0, errors.Wrap(err, "renaming transcript grading scale")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "renaming transcript grading scale")
}
