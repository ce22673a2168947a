package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
)

type (
	scaleRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		Country   string    `db:"country"`
		Level     string    `db:"level"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	mappingRow struct {
		ScaleID    string  `db:"scale_id"`
		LocalGrade string  `db:"local_grade"`
		USLetter   string  `db:"us_letter"`
		USPoint    float64 `db:"us_point"`
		Position   int     `db:"position"`
	}
)

const scaleColumns = "id, name, country, level, created_at, updated_at"

type scaleRepository struct {
	db core.DB
}

var _ scale.Repository = (*scaleRepository)(nil) // interface compliance check

func NewScaleRepository(db core.DB) *scaleRepository {
	return &scaleRepository{db: db}
}

func (repo scaleRepository) toRow(sc scale.GradingScale) scaleRow {
	return scaleRow{
		ID:        sc.ID,
		Name:      sc.Name,
		Country:   sc.Country,
		Level:     sc.Level,
		CreatedAt: sc.CreatedAt.UTC(),
		UpdatedAt: sc.UpdatedAt.UTC(),
	}
}

func (repo scaleRepository) fromRow(row scaleRow, mappings []mappingRow) scale.GradingScale {
	sc := scale.GradingScale{
		ID:        row.ID,
		Name:      row.Name,
		Country:   row.Country,
		Level:     row.Level,
		Mappings:  make([]scale.Mapping, 0, len(mappings)),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	for _, m := range mappings {
		sc.Mappings = append(sc.Mappings, scale.Mapping{LocalGrade: m.LocalGrade, USLetter: m.USLetter, USPoint: m.USPoint})
	}
	return sc
}

// trapNoRowsErr maps "no rows" to scale.ErrNotFound
func (repo scaleRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return scale.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo scaleRepository) insertMappings(ctx context.Context, tx *sqlx.Tx, sc scale.GradingScale) error {
	if len(sc.Mappings) == 0 {
		return nil
	}
	rows := make([]mappingRow, 0, len(sc.Mappings))
	for i, m := range sc.Mappings {
		rows = append(rows, mappingRow{ScaleID: sc.ID, LocalGrade: m.LocalGrade, USLetter: m.USLetter, USPoint: m.USPoint, Position: i})
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO grading_scale_mapping (scale_id, local_grade, us_letter, us_point, position)
		VALUES (:scale_id, :local_grade, :us_letter, :us_point, :position)`, rows)
	return errors.Wrap(err, "inserting grading scale mappings")
}

func (repo scaleRepository) CreateScale(ctx context.Context, sc scale.GradingScale) (scale.GradingScale, error) {
	sc.ID = uuid.New().String()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO grading_scale (`+scaleColumns+`)
			VALUES (:id, :name, :country, :level, :created_at, :updated_at)`, repo.toRow(sc))
		if err != nil {
			if isUniqueViolation(err) {
				return scale.ErrScaleExists
			}
			return errors.Wrap(err, "inserting grading scale")
		}
		return repo.insertMappings(ctx, tx, sc)
	})
	if err != nil {
		return scale.GradingScale{}, err
	}
	return repo.GetScale(ctx, scale.GetFilter{ID: sc.ID})
}

func (repo scaleRepository) UpdateScale(ctx context.Context, sc scale.GradingScale) (scale.GradingScale, error) {
	if _, err := uuid.Parse(sc.ID); err != nil {
		return scale.GradingScale{}, scale.ErrNotFound
	}
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			UPDATE grading_scale
			SET name = :name, country = :country, level = :level, updated_at = :updated_at
			WHERE id = :id`, repo.toRow(sc))
		if err != nil {
			if isUniqueViolation(err) {
				return scale.ErrScaleExists
			}
			return errors.Wrap(err, "updating grading scale")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "updating grading scale")
		} else if n == 0 {
			return scale.ErrNotFound
		}

		if _, err = tx.ExecContext(ctx, "DELETE FROM grading_scale_mapping WHERE scale_id = $1", sc.ID); err != nil {
			return errors.Wrap(err, "deleting grading scale mappings")
		}
		return repo.insertMappings(ctx, tx, sc)
	})
	if err != nil {
		return scale.GradingScale{}, err
	}
	return repo.GetScale(ctx, scale.GetFilter{ID: sc.ID})
}

func (repo scaleRepository) DeleteScale(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return scale.ErrNotFound
	}
	// mappings are removed by ON DELETE CASCADE
	res, err := repo.db.ExecContext(ctx, "DELETE FROM grading_scale WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting grading scale")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting grading scale")
	} else if n == 0 {
		return scale.ErrNotFound
	}
	return nil
}

func (repo scaleRepository) mappings(ctx context.Context, ids ...string) (map[string][]mappingRow, error) {
	byScale := make(map[string][]mappingRow, len(ids))
	if len(ids) == 0 {
		return byScale, nil
	}
	q, args, err := in(repo.db, `
		SELECT scale_id, local_grade, us_letter, us_point, position
		FROM grading_scale_mapping
		WHERE scale_id IN (?)
		ORDER BY scale_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying grading scale mappings")
	}
	var rows []mappingRow
	if err = repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying grading scale mappings")
	}
	for _, r := range rows {
		byScale[r.ScaleID] = append(byScale[r.ScaleID], r)
	}
	return byScale, nil
}

func (repo scaleRepository) GetScale(ctx context.Context, filter scale.GetFilter) (scale.GradingScale, error) {
	var (
		row scaleRow
		err error
	)
	if filter.ID != "" {
		if _, err = uuid.Parse(filter.ID); err != nil {
			return scale.GradingScale{}, scale.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT "+scaleColumns+" FROM grading_scale WHERE id = $1", filter.ID)
	} else if filter.Name != "" {
		err = repo.db.GetContext(ctx, &row, "SELECT "+scaleColumns+" FROM grading_scale WHERE name = $1", filter.Name)
	} else {
		return scale.GradingScale{}, scale.ErrNotFound
	}
	if err != nil {
		return scale.GradingScale{}, repo.trapNoRowsErr(err, "getting grading scale")
	}

	mappings, err := repo.mappings(ctx, row.ID)
	if err != nil {
		return scale.GradingScale{}, err
	}
	return repo.fromRow(row, mappings[row.ID]), nil
}

func (repo scaleRepository) QueryScales(ctx context.Context, filter *scale.QueryFilter) ([]scale.GradingScale, error) {
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
			where = append(where, "name ILIKE "+arg("%"+filter.Search+"%"))
		}
		if filter.Country != "" {
			where = append(where, "(LOWER(country) = LOWER("+arg(filter.Country)+") OR country = "+arg(scale.CountryAll)+")")
		}
		if filter.Level != "" {
			where = append(where, "level = "+arg(filter.Level))
		}
	}

	q := "SELECT " + scaleColumns + " FROM grading_scale"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.DBOrdering{Field: "name", Ascending: true}.String()

	var rows []scaleRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying grading scales")
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	mappings, err := repo.mappings(ctx, ids...)
	if err != nil {
		return nil, err
	}

	scales := make([]scale.GradingScale, 0, len(rows))
	for _, r := range rows {
		scales = append(scales, repo.fromRow(r, mappings[r.ID]))
	}
	return scales, nil
}

func (repo scaleRepository) Countries(ctx context.Context) ([]string, error) {
	countries := make([]string, 0)
	err := repo.db.SelectContext(ctx, &countries,
		"SELECT DISTINCT country FROM grading_scale WHERE country <> $1 ORDER BY country", scale.CountryAll)
	if err != nil {
		return nil, errors.Wrap(err, "querying countries")
	}
	return countries, nil
}

func (repo scaleRepository) GradeMap(ctx context.Context, name string) (gpa.GradeMap, error) {
	var id string
	if err := repo.db.GetContext(ctx, &id, "SELECT id FROM grading_scale WHERE name = $1", name); err != nil {
		return nil, repo.trapNoRowsErr(err, "getting grading scale")
	}
	mappings, err := repo.mappings(ctx, id)
	if err != nil {
		return nil, err
	}
	grades := make(gpa.GradeMap, len(mappings[id]))
	for _, m := range mappings[id] {
		grades[m.LocalGrade] = m.USPoint
	}
	return grades, nil
}
