package scale

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
)

var (
	// errors
	ErrNotFound       = errors.New("grading scale not found")
	ErrScaleExists    = errors.New("a grading scale with this name already exists")
	ErrDuplicateGrade = errors.New("local grade is mapped more than once")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

// minSuggestionRatio is the lowest difflib similarity for a name to be suggested.
const minSuggestionRatio = 0.6

type (
	Repository interface {
		CreateScale(ctx context.Context, sc GradingScale) (GradingScale, error)
		// UpdateScale replaces the scale's fields and its whole mapping set.
		UpdateScale(ctx context.Context, sc GradingScale) (GradingScale, error)
		DeleteScale(ctx context.Context, id string) error
		GetScale(ctx context.Context, filter GetFilter) (GradingScale, error)
		QueryScales(ctx context.Context, filter *QueryFilter) ([]GradingScale, error)
		// Countries lists distinct scale countries, CountryAll excluded, sorted.
		Countries(ctx context.Context) ([]string, error)
		// GradeMap returns the mapping table of the scale named `name`, or ErrNotFound.
		GradeMap(ctx context.Context, name string) (gpa.GradeMap, error)
	}

	Service struct {
		repo      Repository
		validator *core.Validator
		logger    core.Logger
		listeners listeners
	}
)

func NewService(repo Repository, validator *core.Validator, logger core.Logger) *Service {
	return &Service{repo: repo, validator: validator, logger: logger}
}

// Subscribe registers `fn` to be called after every committed scale change.
// The returned func unregisters it; calling it more than once is a no-op.
func (svc *Service) Subscribe(fn Listener) (unsubscribe func()) {
	return svc.listeners.add(fn)
}

func (svc *Service) checkUniqueness(ctx context.Context, name, excludedID string) error {
	existing, err := svc.repo.GetScale(ctx, GetFilter{Name: name})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}
	if existing.ID != excludedID {
		return core.NewValidationError(ErrScaleExists, core.FieldError{Field: "name", Error: ErrScaleExists.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewGradingScale) (GradingScale, error) {
	if err := ns.Validate(svc.validator); err != nil {
		return GradingScale{}, err
	}
	if err := svc.checkUniqueness(ctx, ns.Name, ""); err != nil {
		return GradingScale{}, err
	}

	now := nowFunc()
	sc, err := svc.repo.CreateScale(ctx, GradingScale{
		Name:      ns.Name,
		Country:   ns.Country,
		Level:     ns.Level,
		Mappings:  ns.mappings(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return GradingScale{}, err
	}
	svc.listeners.notify(ctx, Event{Kind: Created, Scale: sc, OldName: sc.Name})
	return sc, nil
}

func (svc *Service) Update(ctx context.Context, id string, us NewGradingScale) (GradingScale, error) {
	old, err := svc.repo.GetScale(ctx, GetFilter{ID: id})
	if err != nil {
		return GradingScale{}, err
	}
	if err = us.Validate(svc.validator); err != nil {
		return GradingScale{}, err
	}
	if err = svc.checkUniqueness(ctx, us.Name, id); err != nil {
		return GradingScale{}, err
	}

	sc, err := svc.repo.UpdateScale(ctx, GradingScale{
		ID:        id,
		Name:      us.Name,
		Country:   us.Country,
		Level:     us.Level,
		Mappings:  us.mappings(),
		CreatedAt: old.CreatedAt,
		UpdatedAt: nowFunc(),
	})
	if err != nil {
		return GradingScale{}, err
	}
	svc.listeners.notify(ctx, Event{Kind: Updated, Scale: sc, OldName: old.Name})
	return sc, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	sc, err := svc.repo.GetScale(ctx, GetFilter{ID: id})
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteScale(ctx, id); err != nil {
		return err
	}
	svc.listeners.notify(ctx, Event{Kind: Deleted, Scale: sc, OldName: sc.Name})
	return nil
}

func (svc *Service) Get(ctx context.Context, id string) (GradingScale, error) {
	return svc.repo.GetScale(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByName(ctx context.Context, name string) (GradingScale, error) {
	return svc.repo.GetScale(ctx, GetFilter{Name: core.CleanString(name)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]GradingScale, error) {
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
		filter.Country = core.CleanString(filter.Country)
		filter.Level = core.CleanString(filter.Level)
	}
	return svc.repo.QueryScales(ctx, filter)
}

func (svc *Service) Countries(ctx context.Context) ([]string, error) {
	return svc.repo.Countries(ctx)
}

// GradeMap returns the mapping table of the scale named `name`.
// An unknown scale yields an empty map: every course graded with it counts as unmapped.
func (svc *Service) GradeMap(ctx context.Context, name string) (gpa.GradeMap, error) {
	m, err := svc.repo.GradeMap(ctx, name)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			svc.logger.Warn("grading scale not found", map[string]interface{}{"scale": name})
			return gpa.GradeMap{}, nil
		}
		return nil, err
	}
	return m, nil
}

// Scales resolves the named scales for a rollup. Unknown names are left out of the result.
func (svc *Service) Scales(ctx context.Context, names ...string) (gpa.Scales, error) {
	scales := make(gpa.Scales, len(names))
	for _, name := range names {
		if _, ok := scales[name]; ok {
			continue
		}
		sc, err := svc.repo.GetScale(ctx, GetFilter{Name: name})
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue
			}
			return nil, err
		}
		grades, err := svc.GradeMap(ctx, name)
		if err != nil {
			return nil, err
		}
		scales[name] = gpa.Scale{Name: sc.Name, Level: sc.Level, Grades: grades}
	}
	return scales, nil
}

// Suggest returns existing scale names close to `name`, best match first.
func (svc *Service) Suggest(ctx context.Context, name string) ([]string, error) {
	all, err := svc.repo.QueryScales(ctx, nil)
	if err != nil {
		return nil, err
	}

	type match struct {
		name  string
		ratio float64
	}
	var matches []match
	matcher := difflib.NewMatcher(nil, nil)
	matcher.SetSeq2(splitChars(strings.ToLower(name)))
	for _, sc := range all {
		matcher.SetSeq1(splitChars(strings.ToLower(sc.Name)))
		if r := matcher.Ratio(); r >= minSuggestionRatio {
			matches = append(matches, match{name: sc.Name, ratio: r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ratio > matches[j].ratio })

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.name)
	}
	return names, nil
}

func splitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}
