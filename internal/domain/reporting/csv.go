package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV renders the report as CSV with a Date,Count header, one row
// per day.
func WriteCSV(w io.Writer, reports []*DayReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Count"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range reports {
		if err := cw.Write([]string{r.Date, fmt.Sprintf("%d", r.VisitCount)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
