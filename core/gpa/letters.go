package gpa

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

var ErrUnknownLetter = errors.New("unknown US letter grade")

// grade points are kept in tenths so that lookups never compare floats.
type letterPoint struct {
	letter string
	tenths int
}

// usGrades is the fixed US letter table, 4.0 scale.
var usGrades = []letterPoint{
	{"A", 40},
	{"A-", 37},
	{"B+", 33},
	{"B", 30},
	{"B-", 27},
	{"C+", 23},
	{"C", 20},
	{"C-", 17},
	{"D+", 13},
	{"D", 10},
	{"D-", 7},
	{"F", 0},
}

// pointEpsilon absorbs binary round-trip noise (eg. 3.3 read back as 3.2999999999999998).
const pointEpsilon = 1e-9

// UnconvertibleGradePointError is returned when a grade point has no US letter equivalent.
type UnconvertibleGradePointError struct {
	Point float64
}

func (err *UnconvertibleGradePointError) Error() string {
	return fmt.Sprintf("grade value %v has no letter equivalent", err.Point)
}

// Letters returns the US letter grades from highest to lowest.
func Letters() []string {
	letters := make([]string, 0, len(usGrades))
	for _, g := range usGrades {
		letters = append(letters, g.letter)
	}
	return letters
}

// PointForLetter returns the grade point of a US letter grade.
func PointForLetter(letter string) (float64, error) {
	for _, g := range usGrades {
		if g.letter == letter {
			return float64(g.tenths) / 10, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownLetter, "%q", letter)
}

// LetterForPoint returns the US letter whose grade point is exactly `point`, at tenth precision.
func LetterForPoint(point float64) (string, error) {
	scaled := point * 10
	tenths := math.Round(scaled)
	if math.IsNaN(scaled) || math.Abs(scaled-tenths) > pointEpsilon {
		return "", &UnconvertibleGradePointError{Point: point}
	}
	for _, g := range usGrades {
		if g.tenths == int(tenths) {
			return g.letter, nil
		}
	}
	return "", &UnconvertibleGradePointError{Point: point}
}
