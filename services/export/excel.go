package exportsvc

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
)

const (
	sheetName  = "Calculator Data"
	dateLayout = "2006-01-02"
	gpaFormat  = "0.000"
)

var ErrNoSheet = errors.New("spreadsheet does not contain any sheets")

type styles struct {
	bold, header, number int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		s   styles
		err error
	)
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D3D3D3"}},
	})
	if err != nil {
		return s, err
	}
	numFmt := gpaFormat
	s.number, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	return s, err
}

// sheet tracks the cursor while writing rows top to bottom.
type sheet struct {
	f      *excelize.File
	styles styles
	row    int
	err    error
}

func (s *sheet) cell(col int, v interface{}) {
	if s.err != nil {
		return
	}
	var name string
	if name, s.err = excelize.CoordinatesToCellName(col, s.row); s.err == nil {
		s.err = s.f.SetCellValue(sheetName, name, v)
	}
}

func (s *sheet) style(fromCol, toCol, style int) {
	if s.err != nil {
		return
	}
	from, _ := excelize.CoordinatesToCellName(fromCol, s.row)
	to, _ := excelize.CoordinatesToCellName(toCol, s.row)
	s.err = s.f.SetCellStyle(sheetName, from, to, style)
}

func (s *sheet) merge(fromCol, toCol int) {
	if s.err != nil {
		return
	}
	from, _ := excelize.CoordinatesToCellName(fromCol, s.row)
	to, _ := excelize.CoordinatesToCellName(toCol, s.row)
	s.err = s.f.MergeCell(sheetName, from, to)
}

// label writes a bold label and its value on the current row, then moves down.
func (s *sheet) label(text string, v interface{}) {
	s.cell(1, text)
	if v != nil {
		s.cell(2, v)
	}
	s.style(1, 1, s.styles.bold)
	s.row++
}

// WriteTranscripts writes an .xlsx report of the student's transcripts whose grading scale is
// of level `level`, followed by the student's GPA figures.
func WriteTranscripts(w io.Writer, st student.Student, scales gpa.Scales, level string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	stls, err := newStyles(f)
	if err != nil {
		return errors.Wrap(err, "creating styles")
	}
	s := &sheet{f: f, styles: stls, row: 1}

	s.label("Name:", st.FullName())
	dob := ""
	if !st.DOB.IsZero() {
		dob = st.DOB.Format(dateLayout)
	}
	s.label("DOB:", dob)
	s.label("Application Term:", st.Term)

	var num int
	for _, t := range st.Transcripts {
		if !strings.EqualFold(scales[t.ScaleName].Level, level) {
			continue
		}
		num++
		s.row++
		title := fmt.Sprintf("Transcript %d:", num)
		if t.Title != fmt.Sprintf("Transcript %d", num) {
			s.label(title, t.Title)
		} else {
			s.label(title, nil)
		}
		s.label("Country:", t.Country)
		s.label("Grading Scale:", t.ScaleName)

		for col, h := range []string{"Course Name", "Local Grade", "US Grade", "Credit Hours", "US Credit Hours"} {
			s.cell(col+1, h)
		}
		s.style(1, 5, s.styles.header)
		s.row++

		for _, sem := range t.Semesters {
			s.cell(1, sem.Name)
			s.merge(1, 5)
			s.style(1, 5, s.styles.bold)
			s.row++
			for _, c := range sem.Courses {
				s.cell(1, c.Name)
				s.cell(2, c.Grade)
				s.cell(3, c.USGrade)
				s.cell(4, c.CreditHours)
				s.cell(5, c.USCreditHours)
				s.row++
			}
		}
		s.label("Multiplier:", t.Multiplier)
		s.label("GPA:", t.GPA)
	}

	s.row++
	s.cell(2, st.HSGPA)
	s.style(2, 2, s.styles.number)
	s.label("High School GPA:", nil)
	if st.UniGPA != nil {
		s.cell(2, *st.UniGPA)
		s.style(2, 2, s.styles.number)
		s.label("University GPA:", nil)
	}
	if s.err != nil {
		return errors.Wrap(s.err, "writing sheet")
	}

	_ = f.SetColWidth(sheetName, "A", "A", 30)
	_ = f.SetColWidth(sheetName, "B", "E", 16)
	if _, err = f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing spreadsheet")
	}
	return nil
}

// ReadMappings reads a grading scale's mapping table from the first sheet of an .xlsx file:
// local grade in column A, US letter in column B. The first row is a header; blank rows are skipped.
func ReadMappings(r io.Reader) ([]scale.NewMapping, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", name)
	}

	mappings := make([]scale.NewMapping, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		var local, letter string
		if len(row) > 0 {
			local = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			letter = strings.TrimSpace(row[1])
		}
		if local == "" && letter == "" {
			continue
		}
		mappings = append(mappings, scale.NewMapping{LocalGrade: local, USLetter: letter})
	}
	return mappings, nil
}
