package gpa

import "fmt"

type (
	LevelTotal struct {
		GPA     float64 `json:"gpa"`
		Credits float64 `json:"credits"`
		Points  float64 `json:"points"`
	}

	Result struct {
		HighSchool LevelTotal `json:"high_school"`
		// University is nil when no University-level transcript was processed.
		University  *LevelTotal        `json:"university,omitempty"`
		Transcripts []TranscriptResult `json:"transcripts"`
		Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
	}
)

// Rollup aggregates every transcript with its grading scale and combines the results
// into High School and University totals. Transcripts are not modified.
//
// A transcript whose scale is unknown is treated as having no mappings. A transcript
// whose scale level is not recognised still gets its own GPA but is left out of both totals.
func Rollup(transcripts []Transcript, scales Scales) Result {
	var (
		res        = Result{Transcripts: make([]TranscriptResult, 0, len(transcripts))}
		university LevelTotal
		uniSeen    bool
	)

	for _, t := range transcripts {
		scale, ok := scales[t.ScaleName]
		if !ok {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind:       UnknownScale,
				Transcript: t.Title,
				Scale:      t.ScaleName,
				Message:    fmt.Sprintf("grading scale %q not found", t.ScaleName),
			})
		}

		tr := Aggregate(t, scale.Grades, t.Multiplier)
		tr.Level = scale.Level
		res.Diagnostics = append(res.Diagnostics, tr.Diagnostics...)

		switch scale.Level {
		case LevelHighSchool:
			res.HighSchool.Points += tr.Points
			res.HighSchool.Credits += tr.TotalCredits
		case LevelUniversity:
			uniSeen = true
			university.Points += tr.Points
			university.Credits += tr.TotalCredits
		default:
			if ok {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Kind:       UnrecognizedLevel,
					Transcript: t.Title,
					Scale:      t.ScaleName,
					Message:    fmt.Sprintf("level %q is not counted towards any GPA", scale.Level),
				})
			}
		}
		res.Transcripts = append(res.Transcripts, tr)
	}

	if res.HighSchool.Credits > 0 {
		res.HighSchool.GPA = res.HighSchool.Points / res.HighSchool.Credits
	}
	if uniSeen {
		if university.Credits > 0 {
			university.GPA = university.Points / university.Credits
		}
		res.University = &university
	}
	return res
}
