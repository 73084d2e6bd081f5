package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

var csvHeader = []string{"ip", "mac", "hostname", "manufacturer", "response_time_ms", "web_service", "reachable", "seen_at"}

// WriteCSV emits one row per device. Optional fields stay empty rather than
// getting placeholder text, so a re-import round-trips cleanly.
func WriteCSV(w io.Writer, recs []types.DeviceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range recs {
		row := []string{
			rec.Host.String(),
			rec.MAC,
			rec.Hostname,
			rec.Manufacturer,
			formatMillis(rec.ResponseTime),
			rec.WebService,
			strconv.FormatBool(rec.Reachable),
			formatTime(rec.SeenAt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", rec.Host, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV. Rows with an unparsable IP are
// rejected; optional columns tolerate being empty or missing.
func ReadCSV(r io.Reader) ([]types.DeviceRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if isHeader(rows[0]) {
		rows = rows[1:]
	}

	recs := make([]types.DeviceRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		host, err := netip.ParseAddr(row[0])
		if err != nil {
			return nil, fmt.Errorf("csv row %d: bad ip %q: %w", i+1, row[0], err)
		}
		rec := types.DeviceRecord{Host: host}
		if v := field(row, 1); v != "" {
			rec.MAC = v
		}
		rec.Hostname = field(row, 2)
		rec.Manufacturer = field(row, 3)
		if v := field(row, 4); v != "" {
			ms, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d: bad response time %q: %w", i+1, v, err)
			}
			rec.ResponseTime = time.Duration(ms * float64(time.Millisecond))
		}
		rec.WebService = field(row, 5)
		if v := field(row, 6); v != "" {
			rec.Reachable, _ = strconv.ParseBool(v)
		}
		if v := field(row, 7); v != "" {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				rec.SeenAt = ts
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isHeader(row []string) bool {
	return len(row) > 0 && row[0] == "ip"
}

func formatMillis(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
