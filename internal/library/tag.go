// Package library holds the song entity and its shared-data model: the
// file-indexed Song and the content-addressed SongSharedData that multiple
// duplicate files can point at and §4.6.
package library

import "github.com/madmaxoft/skautan-go/internal/dated"

// Tag holds the four dated fields common to the manual, ID3, and
// filename-derived tag sources named in.
type Tag struct {
	Author dated.Optional[string]
	Title dated.Optional[string]
	Genre dated.Optional[string]
	MeasuresPerMinute dated.Optional[float64]
}

// firstNonEmptyString returns the first of a, b, c that holds a non-empty value.
func firstNonEmptyString(a, b, c dated.Optional[string]) string {
	for _, o := range []dated.Optional[string]{a, b, c} {
		if v, ok := o.Get(); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstPresentFloat(a, b, c dated.Optional[float64]) float64 {
	for _, o := range []dated.Optional[float64]{a, b, c} {
		if v, ok := o.Get(); ok {
			return v
		}
	}
	return 0
}
