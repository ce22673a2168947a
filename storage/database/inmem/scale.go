package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
)

type scaleRepository struct {
	db *scaleTable
}

var _ scale.Repository = (*scaleRepository)(nil) // interface compliance check

func NewScaleRepository(db *DB) *scaleRepository {
	return &scaleRepository{db: db.scale}
}

func copyScale(sc scale.GradingScale) scale.GradingScale {
	sc.Mappings = append([]scale.Mapping(nil), sc.Mappings...)
	return sc
}

func (repo *scaleRepository) findByName(name string) (*scale.GradingScale, bool) {
	for _, sc := range repo.db.table {
		if sc.Name == name {
			return sc, true
		}
	}
	return nil, false
}

func (repo *scaleRepository) CreateScale(_ context.Context, sc scale.GradingScale) (scale.GradingScale, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.findByName(sc.Name); ok {
		return scale.GradingScale{}, scale.ErrScaleExists
	}
	sc.ID = uuid.New().String()
	stored := copyScale(sc)
	repo.db.table[sc.ID] = &stored
	return copyScale(sc), nil
}

func (repo *scaleRepository) UpdateScale(_ context.Context, sc scale.GradingScale) (scale.GradingScale, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sc.ID]; !ok {
		return scale.GradingScale{}, scale.ErrNotFound
	}
	if other, ok := repo.findByName(sc.Name); ok && other.ID != sc.ID {
		return scale.GradingScale{}, scale.ErrScaleExists
	}
	stored := copyScale(sc)
	repo.db.table[sc.ID] = &stored
	return copyScale(sc), nil
}

func (repo *scaleRepository) DeleteScale(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return scale.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *scaleRepository) GetScale(_ context.Context, filter scale.GetFilter) (scale.GradingScale, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if sc, ok := repo.db.table[filter.ID]; ok {
			return copyScale(*sc), nil
		}
		return scale.GradingScale{}, scale.ErrNotFound
	}
	if sc, ok := repo.findByName(filter.Name); ok && filter.Name != "" {
		return copyScale(*sc), nil
	}
	return scale.GradingScale{}, scale.ErrNotFound
}

func (repo *scaleRepository) QueryScales(_ context.Context, filter *scale.QueryFilter) ([]scale.GradingScale, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	scales := make([]scale.GradingScale, 0, len(repo.db.table))
	for _, sc := range repo.db.table {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(sc.Name), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.Country != "" && !sc.AppliesTo(filter.Country) {
				continue
			}
			if filter.Level != "" && sc.Level != filter.Level {
				continue
			}
		}
		scales = append(scales, copyScale(*sc))
	}
	sort.Slice(scales, func(i, j int) bool { return scales[i].Name < scales[j].Name })
	return scales, nil
}

func (repo *scaleRepository) Countries(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	countries := make([]string, 0)
	for _, sc := range repo.db.table {
		if sc.Country == scale.CountryAll || seen[sc.Country] {
			continue
		}
		seen[sc.Country] = true
		countries = append(countries, sc.Country)
	}
	sort.Strings(countries)
	return countries, nil
}

func (repo *scaleRepository) GradeMap(_ context.Context, name string) (gpa.GradeMap, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sc, ok := repo.findByName(name); ok {
		return sc.GradeMap(), nil
	}
	return nil, scale.ErrNotFound
}
