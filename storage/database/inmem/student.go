package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

// copyStudent deep-copies `st` so that stored records never share slices with callers.
func copyStudent(st student.Student) student.Student {
	if st.UniGPA != nil {
		v := *st.UniGPA
		st.UniGPA = &v
	}
	if st.UniCredits != nil {
		v := *st.UniCredits
		st.UniCredits = &v
	}
	transcripts := make([]gpa.Transcript, 0, len(st.Transcripts))
	for _, t := range st.Transcripts {
		semesters := make([]gpa.Semester, 0, len(t.Semesters))
		for _, sem := range t.Semesters {
			semesters = append(semesters, gpa.Semester{Name: sem.Name, Courses: append([]gpa.Course(nil), sem.Courses...)})
		}
		t.Semesters = semesters
		transcripts = append(transcripts, t)
	}
	st.Transcripts = transcripts
	return st
}

// normalize assigns missing IDs and merges same-named semesters, sorted by name.
func normalize(st *student.Student) {
	for ti := range st.Transcripts {
		t := &st.Transcripts[ti]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}

		bySemester := make(map[string][]gpa.Course)
		var names []string
		for _, sem := range t.Semesters {
			if _, ok := bySemester[sem.Name]; !ok {
				names = append(names, sem.Name)
				bySemester[sem.Name] = nil
			}
			for _, c := range sem.Courses {
				if c.ID == "" {
					c.ID = uuid.New().String()
				}
				bySemester[sem.Name] = append(bySemester[sem.Name], c)
			}
		}
		sort.Strings(names)

		t.Semesters = make([]gpa.Semester, 0, len(names))
		for _, name := range names {
			t.Semesters = append(t.Semesters, gpa.Semester{Name: name, Courses: bySemester[name]})
		}
	}
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	st = copyStudent(st)
	st.ID = uuid.New().String()
	normalize(&st)
	repo.db.table[st.ID] = &st
	return copyStudent(st), nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[st.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	st = copyStudent(st)
	normalize(&st)
	repo.db.table[st.ID] = &st
	return copyStudent(st), nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[id]; ok {
		return copyStudent(*st), nil
	}
	return student.Student{}, student.ErrNotFound
}

func usesScale(st *student.Student, name string) bool {
	for _, t := range st.Transcripts {
		if t.ScaleName == name {
			return true
		}
	}
	return false
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.table))
	for _, st := range repo.db.table {
		if filter != nil {
			if s := strings.ToLower(filter.Search); s != "" &&
				!strings.Contains(strings.ToLower(st.FirstName), s) &&
				!strings.Contains(strings.ToLower(st.LastName), s) {
				continue
			}
			if filter.ScaleName != "" && !usesScale(st, filter.ScaleName) {
				continue
			}
		}
		s := copyStudent(*st)
		s.Transcripts = nil
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})
	return students, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *studentRepository) RenameScale(_ context.Context, oldName, newName string) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for _, st := range repo.db.table {
		for i := range st.Transcripts {
			if st.Transcripts[i].ScaleName == oldName {
				st.Transcripts[i].ScaleName = newName
				n++
			}
		}
	}
	return n, nil
}
