package timeseries

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Load reads a two-column (time, price) CSV file. A non-numeric first row
// is treated as a header and skipped. Rows repeating the previous
// timestamp are dropped, keeping the first occurrence, since exchange
// exports frequently carry duplicate ticks.
func Load(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open observation file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var times, prices []float64
	for i, rec := range records {
		t, errT := strconv.ParseFloat(rec[0], 64)
		p, errP := strconv.ParseFloat(rec[1], 64)
		if errT != nil || errP != nil {
			if i == 0 {
				// header row
				continue
			}
			return nil, errors.Errorf("%s: row %d is not numeric: %q", path, i+1, rec)
		}
		if len(times) > 0 && t == times[len(times)-1] {
			continue
		}
		times = append(times, t)
		prices = append(prices, p)
	}

	s, err := New(times, prices)
	return s, errors.Wrapf(err, "validate %s", path)
}
