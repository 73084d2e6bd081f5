package export

import (
	"bytes"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

func TestWriteCSVAbsentFieldsStayEmpty(t *testing.T) {
	recs := []types.DeviceRecord{
		{
			Host:         netip.MustParseAddr("192.168.1.1"),
			MAC:          "AA:BB:CC:00:11:22",
			Reachable:    true,
			ResponseTime: 5 * time.Millisecond,
			Hostname:     "gw.lan",
			Manufacturer: "Acme",
			WebService:   "http://192.168.1.1",
			SeenAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		// Host that answered but where every enrichment lookup failed.
		{
			Host:      netip.MustParseAddr("192.168.1.2"),
			Reachable: true,
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[2] != "192.168.1.2,,,,,,true," {
		t.Fatalf("absent fields must stay empty, got %q", lines[2])
	}
}

func TestReadCSVRoundTrip(t *testing.T) {
	orig := []types.DeviceRecord{
		{
			Host:         netip.MustParseAddr("10.0.0.1"),
			MAC:          "AA:BB:CC:00:11:22",
			Reachable:    true,
			ResponseTime: 1500 * time.Microsecond,
			Hostname:     "server.lan",
			SeenAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, orig); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Host != orig[0].Host || got[0].MAC != orig[0].MAC || got[0].Hostname != orig[0].Hostname {
		t.Fatalf("round trip mismatch: %+v", got[0])
	}
	if got[0].ResponseTime != orig[0].ResponseTime {
		t.Fatalf("response time mismatch: %s != %s", got[0].ResponseTime, orig[0].ResponseTime)
	}
	if !got[0].SeenAt.Equal(orig[0].SeenAt) {
		t.Fatalf("seen_at mismatch: %s != %s", got[0].SeenAt, orig[0].SeenAt)
	}
}

func TestReadCSVRejectsBadIP(t *testing.T) {
	in := "ip,mac\nnot-an-ip,AA:BB:CC:00:11:22\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Fatalf("expected error for bad ip")
	}
}

func TestReadCSVWithoutHeader(t *testing.T) {
	in := "10.0.0.9,,myhost\n"
	recs, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(recs) != 1 || recs[0].Hostname != "myhost" {
		t.Fatalf("unexpected records %+v", recs)
	}
}
