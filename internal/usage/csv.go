package usage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// usageColumns are the header names the utility has used for the gallons
// column, in the order we try them. The portal has changed its CSV schema
// before; new variants go here.
var usageColumns = []string{"Usage", "Usage (Gallons)", "Gallons"}

// parseLatestUsage reads the account CSV and returns the gallons figure from
// the last (most recent) row plus the total row count. An empty CSV or a
// schema with no recognizable usage column is an error.
func parseLatestUsage(r io.Reader) (gallons float64, rows int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return 0, 0, fmt.Errorf("usage: csv contained no rows")
	}
	if err != nil {
		return 0, 0, fmt.Errorf("usage: read csv header: %w", err)
	}

	col := -1
	for _, want := range usageColumns {
		for i, name := range header {
			if name == want {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return 0, 0, fmt.Errorf("usage: unknown csv schema: %v", header)
	}

	var last []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("usage: read csv row: %w", err)
		}
		last = rec
		rows++
	}
	if rows == 0 {
		return 0, 0, fmt.Errorf("usage: csv contained no rows")
	}
	if col >= len(last) {
		return 0, 0, fmt.Errorf("usage: last row is missing the usage column")
	}

	gallons, err = strconv.ParseFloat(last[col], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("usage: parse gallons %q: %w", last[col], err)
	}
	return gallons, rows, nil
}
