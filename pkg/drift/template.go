package drift

import (
	"encoding/csv"
	"io"
)

// Two 3I/ATLAS positions, 2025-10-01 and 2025-10-04. The velocity on both
// rows is the mean over the interval.
var exampleRows = [][]string{
	{"2025-10-01T00:00:00", "3421139.8668", "1354419.9695", "-255898992.3378", "-32.8040", "45.2158", "39.1585"},
	{"2025-10-04T00:00:00", "-5081661.3522", "13074361.3016", "-245749113.0194", "-32.8040", "45.2158", "39.1585"},
}

// WriteTemplate writes an input CSV header for profile. With example set,
// two sample rows follow the header.
func WriteTemplate(w io.Writer, profile Profile, example bool) error {
	cols := profile.Columns()

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	if example {
		for _, row := range exampleRows {
			if err := cw.Write(row[:len(cols)]); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
