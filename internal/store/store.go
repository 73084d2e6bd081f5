package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

var ErrProfileNotFound = errors.New("profile not found")

// Annotation is the user-supplied overlay for one device. It survives
// rescans: keyed by MAC when known, by IP otherwise.
type Annotation struct {
	Key          string    `json:"key"`
	FriendlyName string    `json:"friendly_name,omitempty"`
	Profile      string    `json:"profile,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnnotationKey picks the stable identity for a device record.
func AnnotationKey(rec types.DeviceRecord) string {
	if rec.MAC != "" {
		return rec.MAC
	}
	return rec.Host.String()
}

// Store persists device annotations and named device-set profiles in SQLite.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect store %q: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS annotations (
			key TEXT PRIMARY KEY,
			friendly_name TEXT NOT NULL DEFAULT '',
			profile TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			name TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profile_hosts (
			profile TEXT NOT NULL,
			host TEXT NOT NULL,
			PRIMARY KEY (profile, host),
			FOREIGN KEY (profile) REFERENCES profiles(name) ON DELETE CASCADE
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// SaveAnnotation upserts the overlay for one device key.
func (s *Store) SaveAnnotation(a Annotation) error {
	if a.Key == "" {
		return errors.New("annotation key is required")
	}
	_, err := s.db.Exec(
		`INSERT INTO annotations (key, friendly_name, profile, notes, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			friendly_name = excluded.friendly_name,
			profile = excluded.profile,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		a.Key, a.FriendlyName, a.Profile, a.Notes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save annotation %q: %w", a.Key, err)
	}
	return nil
}

// Annotation fetches the overlay for one key. ok is false when none exists.
func (s *Store) Annotation(key string) (Annotation, bool, error) {
	var a Annotation
	row := s.db.QueryRow(
		`SELECT key, friendly_name, profile, notes, updated_at FROM annotations WHERE key = ?`, key)
	if err := row.Scan(&a.Key, &a.FriendlyName, &a.Profile, &a.Notes, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Annotation{}, false, nil
		}
		return Annotation{}, false, fmt.Errorf("load annotation %q: %w", key, err)
	}
	return a, true, nil
}

// Annotations loads every overlay, keyed for merge against scan output.
func (s *Store) Annotations() (map[string]Annotation, error) {
	rows, err := s.db.Query(`SELECT key, friendly_name, profile, notes, updated_at FROM annotations`)
	if err != nil {
		return nil, fmt.Errorf("load annotations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Annotation)
	for rows.Next() {
		var a Annotation
		if err := rows.Scan(&a.Key, &a.FriendlyName, &a.Profile, &a.Notes, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan annotation row: %w", err)
		}
		out[a.Key] = a
	}
	return out, rows.Err()
}

func (s *Store) DeleteAnnotation(key string) error {
	_, err := s.db.Exec(`DELETE FROM annotations WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete annotation %q: %w", key, err)
	}
	return nil
}

// SaveProfile stores a named set of hosts, replacing any previous set under
// the same name.
func (s *Store) SaveProfile(name string, hosts []string) error {
	if name == "" {
		return errors.New("profile name is required")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save profile %q: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO profiles (name, created_at) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("save profile %q: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM profile_hosts WHERE profile = ?`, name); err != nil {
		return fmt.Errorf("save profile %q: %w", name, err)
	}
	for _, host := range hosts {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO profile_hosts (profile, host) VALUES (?, ?)`, name, host); err != nil {
			return fmt.Errorf("save profile %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// Profile returns the hosts saved under name.
func (s *Store) Profile(name string) ([]string, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM profiles WHERE name = ?`, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	rows, err := s.db.Query(`SELECT host FROM profile_hosts WHERE profile = ? ORDER BY host`, name)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// Profiles lists saved profile names.
func (s *Store) Profiles() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan profile name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) DeleteProfile(name string) error {
	res, err := s.db.Exec(`DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	if _, err := s.db.Exec(`DELETE FROM profile_hosts WHERE profile = ?`, name); err != nil {
		return fmt.Errorf("delete profile hosts %q: %w", name, err)
	}
	return nil
}

// AnnotatedDevice is a DeviceRecord with its user overlay attached.
type AnnotatedDevice struct {
	types.DeviceRecord
	FriendlyName string `json:"friendly_name,omitempty"`
	Profile      string `json:"profile,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Overlay attaches stored annotations to scan output.
func (s *Store) Overlay(recs []types.DeviceRecord) ([]AnnotatedDevice, error) {
	annotations, err := s.Annotations()
	if err != nil {
		return nil, err
	}
	out := make([]AnnotatedDevice, 0, len(recs))
	for _, rec := range recs {
		dev := AnnotatedDevice{DeviceRecord: rec}
		if a, ok := annotations[AnnotationKey(rec)]; ok {
			dev.FriendlyName = a.FriendlyName
			dev.Profile = a.Profile
			dev.Notes = a.Notes
		}
		out = append(out, dev)
	}
	return out, nil
}
