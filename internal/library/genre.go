package library

// TempoRange is the [Low, High] competition tempo range for a dance genre,
// in measures per minute.
type TempoRange struct {
	Low, High float64
}

// competitionTempoRanges gives the fixed set of dance genres named in
//, approximating the ranges used for competition dancing.
// Unknown genre codes fall back to UnknownRange in
// CompetitionTempoRangeForGenre.
var competitionTempoRanges = map[string]TempoRange{
	"SW": {27, 30}, // Slow Waltz
	"TG": {31, 33}, // Tango
	"VW": {58, 60}, // Viennese Waltz
	"SF": {28, 30}, // Slowfox
	"QS": {50, 52}, // Quickstep
	"SB": {50, 52}, // Samba
	"CH": {30, 32}, // Cha Cha
	"RU": {25, 27}, // Rumba
	"PD": {60, 62}, // Paso Doble
	"JI": {42, 44}, // Jive
	"PO": {58, 60}, // Polka
}

// UnknownRange is returned for genre codes outside the fixed set.
var UnknownRange = TempoRange{Low: 0, High: 65535}

// CompetitionTempoRangeForGenre returns the competition tempo range for the
// given genre code, or UnknownRange if the genre isn't recognized.
func CompetitionTempoRangeForGenre(genre string) TempoRange {
	if r, ok := competitionTempoRanges[genre]; ok {
		return r
	}
	return UnknownRange
}

// slowGenres lists the genres for which TempoDetector's MPM adjustment
// tries dividing by 3 rather than halving step 5.
var slowGenres = map[string]bool{"SW": true, "VW": true, "BL": true}

// IsSlowGenre reports whether genre uses the divide-by-3-family adjustment.
func IsSlowGenre(genre string) bool { return slowGenres[genre] }
