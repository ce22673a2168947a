package scale

import (
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
)

// CountryAll marks a grading scale usable for transcripts from any country.
const CountryAll = "All"

type Mapping struct {
	LocalGrade string  `json:"local_grade"`
	USLetter   string  `json:"us_letter"`
	USPoint    float64 `json:"us_point"`
}

type GradingScale struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Level     string    `json:"level"`
	Mappings  []Mapping `json:"mappings"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// GradeMap returns the scale's local grade -> US grade point table.
func (sc GradingScale) GradeMap() gpa.GradeMap {
	m := make(gpa.GradeMap, len(sc.Mappings))
	for _, mp := range sc.Mappings {
		m[mp.LocalGrade] = mp.USPoint
	}
	return m
}

// AppliesTo reports whether the scale can grade transcripts from `country`.
func (sc GradingScale) AppliesTo(country string) bool {
	return sc.Country == CountryAll || strings.EqualFold(sc.Country, country)
}

// NewMapping is a mapping row as submitted. The US grade point is derived from the letter.
type NewMapping struct {
	LocalGrade string `json:"local_grade" validate:"required,notblank,max=20"`
	USLetter   string `json:"us_letter" validate:"required,usletter"`
}

// NewGradingScale contains information needed to create or fully replace a GradingScale.
type NewGradingScale struct {
	Name     string       `json:"name" validate:"required,notblank,max=100"`
	Country  string       `json:"country" validate:"required,notblank,max=100"`
	Level    string       `json:"level" validate:"required,level"`
	Mappings []NewMapping `json:"mappings" validate:"required,min=1,dive"`
}

func (ns *NewGradingScale) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Country = core.CleanString(ns.Country)
	ns.Level = core.CleanString(ns.Level)
	for i := range ns.Mappings {
		ns.Mappings[i].LocalGrade = core.CleanString(ns.Mappings[i].LocalGrade)
		ns.Mappings[i].USLetter = strings.ToUpper(core.CleanString(ns.Mappings[i].USLetter))
	}
}

// Validate cleans and validates the input. Uniqueness of the scale name is checked by the Service.
func (ns *NewGradingScale) Validate(v *core.Validator) error {
	ns.clean()
	if err := v.Validate(ns); err != nil {
		return err
	}

	seen := make(map[string]bool, len(ns.Mappings))
	var flds []core.FieldError
	for i, mp := range ns.Mappings {
		if seen[mp.LocalGrade] {
			flds = append(flds, core.FieldError{
				Field: "mappings[" + strconv.Itoa(i) + "].local_grade",
				Error: ErrDuplicateGrade.Error(),
			})
		}
		seen[mp.LocalGrade] = true
	}
	if len(flds) > 0 {
		return core.NewValidationError(ErrDuplicateGrade, flds...)
	}
	return nil
}

func (ns NewGradingScale) mappings() []Mapping {
	mappings := make([]Mapping, 0, len(ns.Mappings))
	for _, mp := range ns.Mappings {
		point, _ := gpa.PointForLetter(mp.USLetter) // validated
		mappings = append(mappings, Mapping{LocalGrade: mp.LocalGrade, USLetter: mp.USLetter, USPoint: point})
	}
	return mappings
}

// QueryFilter applies AND on its non-empty fields.
// Country also matches scales of country CountryAll; Search is a case-insensitive match on the name.
type QueryFilter struct {
	Search  string
	Country string
	Level   string
}

// GetFilter looks a scale up by ID or, if ID is empty, by exact name.
type GetFilter struct {
	ID   string
	Name string
}
