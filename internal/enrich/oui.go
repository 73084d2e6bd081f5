package enrich

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Seed table so vendor lookup works without any external file. A fuller
// database in Wireshark manuf format can be layered on with LoadFile.
var ouiSeed = map[string]string{
	"001A11": "Google",
	"3C22FB": "Apple",
	"843A4B": "Apple",
	"F0B429": "Xiaomi",
	"B827EB": "Raspberry Pi Foundation",
	"DCA632": "Raspberry Pi Trading",
	"E45F01": "Raspberry Pi Trading",
	"00155D": "Microsoft",
	"3497F6": "ASUSTek",
	"04D9F5": "ASUSTek",
	"9C5C8E": "ASUSTek",
	"18E829": "Ubiquiti",
	"F09FC2": "Ubiquiti",
	"744D28": "Routerboard.com",
	"000C29": "VMware",
	"005056": "VMware",
	"525400": "QEMU/KVM",
	"BC2411": "Hewlett Packard",
	"D89EF3": "Dell",
	"F8BC12": "Dell",
	"001B63": "Apple",
	"A4B1C1": "Samsung",
	"E8508B": "Samsung",
	"FCFBFB": "Cisco",
	"00E04C": "Realtek",
	"B0BE76": "TP-Link",
	"50C7BF": "TP-Link",
	"C05627": "Belkin",
	"94103E": "Belkin",
	"A020A6": "Espressif",
	"2462AB": "Espressif",
	"BCDDC2": "Espressif",
	"001788": "Philips Lighting",
	"ECB5FA": "Philips Lighting",
	"D073D5": "LIFX",
	"44650D": "Amazon Technologies",
	"FCA183": "Amazon Technologies",
	"74C246": "Amazon Technologies",
	"18B430": "Nest Labs",
	"641666": "Nest Labs",
	"B85F98": "Sonos",
	"949F3E": "Sonos",
	"0003E3": "Cisco",
	"28C68E": "Netgear",
	"A040A0": "Netgear",
	"C89E43": "Netgear",
	"001132": "Synology",
	"0011D8": "ASUSTek",
	"000D3A": "Microsoft",
	"7CD30A": "Intel",
	"606720": "Intel",
	"8C8CAA": "Intel",
}

// OUIDB maps the first three octets of a MAC address to a manufacturer name.
type OUIDB struct {
	prefixes map[string]string
}

func NewOUIDB() *OUIDB {
	db := &OUIDB{prefixes: make(map[string]string, len(ouiSeed))}
	for k, v := range ouiSeed {
		db.prefixes[k] = v
	}
	return db
}

// LoadFile merges entries from a Wireshark-style manuf file: one
// "prefix<TAB>short-name[<TAB>long-name]" entry per line, '#' comments.
// Loaded entries override the seed table.
func (db *OUIDB) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open oui file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		prefix := normalizePrefix(fields[0])
		if prefix == "" {
			continue
		}
		name := fields[1]
		// Prefer the long name when the manuf file carries one.
		if len(fields) >= 3 {
			name = strings.Join(fields[2:], " ")
		}
		db.prefixes[prefix] = name
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read oui file: %w", err)
	}
	return nil
}

// Lookup returns the manufacturer for a MAC address, or "" when unknown.
func (db *OUIDB) Lookup(mac string) string {
	prefix := normalizePrefix(mac)
	if prefix == "" {
		return ""
	}
	return db.prefixes[prefix]
}

func normalizePrefix(mac string) string {
	mac = strings.ToUpper(strings.TrimSpace(mac))
	mac = strings.NewReplacer(":", "", "-", "", ".", "").Replace(mac)
	// Wireshark manuf entries may carry a /28 or /36 mask; plain OUI only.
	if i := strings.IndexByte(mac, '/'); i >= 0 {
		mac = mac[:i]
	}
	if len(mac) < 6 {
		return ""
	}
	return mac[:6]
}
