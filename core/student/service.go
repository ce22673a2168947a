package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
)

var (
	// errors
	ErrNotFound           = errors.New("student not found")
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrMixedLevels        = errors.New("transcripts must all use grading scales of the same level")
	ErrForeignID          = errors.New("does not belong to this student")
	ErrDuplicateID        = errors.New("is used more than once")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CreateStudent stores the student with its transcripts and courses. IDs are assigned.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		// UpdateStudent replaces the student's fields and transcript set. Transcripts and courses
		// keep their ID when set; missing ones are created and leftovers deleted.
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		// GetStudent returns the student with its transcripts, semesters grouped by name and sorted.
		GetStudent(ctx context.Context, id string) (Student, error)
		// QueryStudents returns students without their transcripts, ordered by last then first name.
		QueryStudents(ctx context.Context, filter *QueryFilter) ([]Student, error)
		// DeleteStudent deletes the student, its transcripts and their courses.
		DeleteStudent(ctx context.Context, id string) error
		// RenameScale points every transcript graded with `oldName` to `newName`.
		RenameScale(ctx context.Context, oldName, newName string) (int64, error)
	}

	// ScaleResolver resolves grading scales by name; unknown names are left out.
	ScaleResolver interface {
		Scales(ctx context.Context, names ...string) (gpa.Scales, error)
	}

	Service struct {
		repo              Repository
		scales            ScaleResolver
		validator         *core.Validator
		logger            core.Logger
		defaultMultiplier float64
	}
)

func NewService(repo Repository, scales ScaleResolver, validator *core.Validator, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:              repo,
		scales:            scales,
		validator:         validator,
		logger:            logger,
		defaultMultiplier: gpa.NormalizeMultiplier(conf.GPA.DefaultMultiplier),
	}
}

// rollup computes every transcript against its grading scale, writes the figures back
// onto the transcripts and logs the diagnostics.
func (svc *Service) rollup(ctx context.Context, transcripts []gpa.Transcript) (gpa.Result, error) {
	scales, err := svc.scales.Scales(ctx, scaleNames(transcripts)...)
	if err != nil {
		return gpa.Result{}, errors.Wrap(err, "resolving grading scales")
	}

	res := gpa.Rollup(transcripts, scales)
	for i := range transcripts {
		transcripts[i].Apply(res.Transcripts[i])
	}
	for _, d := range res.Diagnostics {
		svc.logger.Warn(d.String(), map[string]interface{}{"kind": d.Kind, "scale": d.Scale, "grade": d.Grade})
	}
	return res, nil
}

func (svc *Service) compute(ctx context.Context, st *Student) (gpa.Result, error) {
	res, err := svc.rollup(ctx, st.Transcripts)
	if err != nil {
		return gpa.Result{}, err
	}
	st.applyRollup(res)
	return res, nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validator); err != nil {
		return Student{}, err
	}

	ns.clearIDs()
	st := ns.student(svc.defaultMultiplier)
	if _, err := svc.compute(ctx, &st); err != nil {
		return Student{}, err
	}
	now := nowFunc()
	st.CreatedAt, st.UpdatedAt = now, now
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	old, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err = us.Validate(svc.validator); err != nil {
		return Student{}, err
	}
	if err = us.checkIDs(old); err != nil {
		return Student{}, err
	}

	st := us.student(svc.defaultMultiplier)
	st.ID = id
	if _, err = svc.compute(ctx, &st); err != nil {
		return Student{}, err
	}
	st.CreatedAt, st.UpdatedAt = old.CreatedAt, nowFunc()
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Student, error) {
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
		filter.ScaleName = core.CleanString(filter.ScaleName)
	}
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// ComputeGPA recomputes and stores every transcript GPA and the student's rollup figures.
func (svc *Service) ComputeGPA(ctx context.Context, id string) (Student, gpa.Result, error) {
	st, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, gpa.Result{}, err
	}
	res, err := svc.compute(ctx, &st)
	if err != nil {
		return Student{}, gpa.Result{}, err
	}
	st.UpdatedAt = nowFunc()
	if st, err = svc.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, gpa.Result{}, err
	}
	return st, res, nil
}

// Compute runs a rollup over a standalone transcript set. Nothing is stored.
func (svc *Service) Compute(ctx context.Context, ci ComputeInput) ([]gpa.Transcript, gpa.Result, error) {
	if err := ci.Validate(svc.validator); err != nil {
		return nil, gpa.Result{}, err
	}

	transcripts := make([]gpa.Transcript, 0, len(ci.Transcripts))
	for _, ti := range ci.Transcripts {
		transcripts = append(transcripts, ti.transcript(svc.defaultMultiplier))
	}
	res, err := svc.rollup(ctx, transcripts)
	if err != nil {
		return nil, gpa.Result{}, err
	}
	return transcripts, res, nil
}

// EvenWeight rescales the course credits of the selected transcripts so that they weigh the same,
// then recomputes and stores the student. It returns the scale factor applied to each selected transcript.
func (svc *Service) EvenWeight(ctx context.Context, id string, in EvenWeightInput) (Student, []float64, error) {
	if err := svc.validator.Validate(in); err != nil {
		return Student{}, nil, err
	}
	st, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, nil, err
	}

	index := make(map[string]int, len(st.Transcripts))
	for i, t := range st.Transcripts {
		index[t.ID] = i
	}
	selected := make([]*gpa.Transcript, 0, len(in.TranscriptIDs))
	var names []string
	for _, tid := range in.TranscriptIDs {
		i, ok := index[tid]
		if !ok {
			return Student{}, nil, errors.Wrapf(ErrTranscriptNotFound, "%q", tid)
		}
		selected = append(selected, &st.Transcripts[i])
		names = append(names, st.Transcripts[i].ScaleName)
	}

	scales, err := svc.scales.Scales(ctx, names...)
	if err != nil {
		return Student{}, nil, errors.Wrap(err, "resolving grading scales")
	}
	var level string
	for i, t := range selected {
		sc, ok := scales[t.ScaleName]
		if !ok || !gpa.IsLevel(sc.Level) || (i > 0 && sc.Level != level) {
			return Student{}, nil, ErrMixedLevels
		}
		level = sc.Level
	}

	factors, err := gpa.EvenWeight(selected)
	if err != nil {
		return Student{}, nil, err
	}
	if _, err = svc.compute(ctx, &st); err != nil {
		return Student{}, nil, err
	}
	st.UpdatedAt = nowFunc()
	if st, err = svc.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, nil, err
	}
	return st, factors, nil
}

// OnScaleChanged keeps stored students in line with a grading scale change:
// transcripts follow a renamed scale and every affected student is recomputed.
func (svc *Service) OnScaleChanged(ctx context.Context, ev scale.Event) {
	name := ev.Scale.Name
	if ev.Kind == scale.Updated && ev.OldName != ev.Scale.Name {
		if _, err := svc.repo.RenameScale(ctx, ev.OldName, ev.Scale.Name); err != nil {
			svc.logger.Error("renaming transcript grading scale", err)
			return
		}
	}

	students, err := svc.repo.QueryStudents(ctx, &QueryFilter{ScaleName: name})
	if err != nil {
		svc.logger.Error("querying students by grading scale", err)
		return
	}
	for _, s := range students {
		if _, _, err = svc.ComputeGPA(ctx, s.ID); err != nil {
			svc.logger.Error("recomputing student GPA", err, map[string]interface{}{"student": s.ID})
		}
	}
}
