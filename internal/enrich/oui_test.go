package enrich

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOUILookupNormalizesFormats(t *testing.T) {
	db := NewOUIDB()

	cases := []struct {
		mac  string
		want string
	}{
		{"b8:27:eb:12:34:56", "Raspberry Pi Foundation"},
		{"B8-27-EB-AA-BB-CC", "Raspberry Pi Foundation"},
		{"b827.eb99.0001", "Raspberry Pi Foundation"},
		{"00:00:00:00:00:00", ""},
		{"short", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := db.Lookup(tc.mac); got != tc.want {
			t.Fatalf("Lookup(%q) = %q, want %q", tc.mac, got, tc.want)
		}
	}
}

func TestOUILoadFileMergesAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manuf")
	content := "# comment line\n" +
		"AA:BB:CC\tAcme\tAcme Widget Co\n" +
		"B8:27:EB\tRPiRebrand\n" +
		"00:11:22:33/28\tMasked\n" +
		"\n" +
		"garbage\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manuf: %v", err)
	}

	db := NewOUIDB()
	if err := db.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if got := db.Lookup("aa:bb:cc:00:00:01"); got != "Acme Widget Co" {
		t.Fatalf("expected long name, got %q", got)
	}
	if got := db.Lookup("b8:27:eb:00:00:01"); got != "RPiRebrand" {
		t.Fatalf("expected file to override seed, got %q", got)
	}
	if got := db.Lookup("00:11:22:00:00:01"); got != "Masked" {
		t.Fatalf("expected masked prefix trimmed to OUI, got %q", got)
	}
}

func TestOUILoadFileMissing(t *testing.T) {
	db := NewOUIDB()
	if err := db.LoadFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
