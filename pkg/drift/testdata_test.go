package drift

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const atlasCSV = `datetime_iso,X_km,Y_km,Z_km,VX_kms,VY_kms,VZ_kms
2025-10-01T00:00:00,3421139.8668,1354419.9695,-255898992.3378,-32.8040,45.2158,39.1585
2025-10-04T00:00:00,-5081661.3522,13074361.3016,-245749113.0194,-32.8040,45.2158,39.1585
`

// mustTable parses an inline CSV fixture.
func mustTable(t *testing.T, csv string) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

// alongX builds a table whose radial distance grows linearly from r0 in steps
// of dr, one sample per day starting 2025-10-01, on the X axis.
func alongX(t *testing.T, r0, dr float64, n int) *Table {
	t.Helper()
	var b strings.Builder
	b.WriteString("datetime_iso,X_km,Y_km,Z_km\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "2025-10-%02d,%s,0,0\n", 1+i, formatFloat(r0+float64(i)*dr))
	}
	return mustTable(t, b.String())
}
