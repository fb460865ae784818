package palettegen

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Erusel/palettegen/palette"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a named palette or group does not exist
	ErrNotFound = errors.New("palettegen: not found")
	// ErrExists is returned when creating a group that already exists
	ErrExists = errors.New("palettegen: already exists")
	// ErrDefaultPalette is returned when deleting the default source palette
	ErrDefaultPalette = errors.New("palettegen: cannot delete the default source palette")
	// ErrEmptyName is returned for a blank palette or group name
	ErrEmptyName = errors.New("palettegen: empty name")
)

const schemaVersion = 1

type queryer interface {
	Exec(string, ...interface{}) (sql.Result, error)
	Query(string, ...interface{}) (*sql.Rows, error)
	QueryRow(string, ...interface{}) *sql.Row
}

// PaletteDB stores source palettes and groups of target palettes in a
// sqlite database.
type PaletteDB struct {
	db *sql.DB
}

// NewPaletteDB opens or creates the database in file. A newly created
// database is seeded with palette.Default.
func NewPaletteDB(file string) (*PaletteDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS source_palette (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, colors TEXT NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS palette_group (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS target_palette (id INTEGER PRIMARY KEY NOT NULL, group_id INTEGER NOT NULL, name TEXT NOT NULL, colors TEXT NOT NULL, UNIQUE(group_id, name), FOREIGN KEY(group_id) REFERENCES palette_group(id) ON DELETE CASCADE)"); err != nil {
		db.Close()
		return nil, err
	}

	pdb := &PaletteDB{
		db: db,
	}

	if err := pdb.seed(); err != nil {
		db.Close()
		return nil, err
	}

	return pdb, nil
}

// seed loads the default palettes the first time the database is opened.
// user_version records that it has happened so palettes removed later stay
// removed.
func (db *PaletteDB) seed() error {
	var version int
	if err := db.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version >= schemaVersion {
		return nil
	}

	// Databases from before user_version was set keep what they have
	var n int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM source_palette").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if err := db.Import(palette.Default(), true); err != nil {
			return err
		}
	}

	_, err := db.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

// Close closes the underlying database.
func (db *PaletteDB) Close() error {
	return db.db.Close()
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func encodeColors(p palette.Palette) (string, error) {
	if p == nil {
		p = palette.Palette{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeColors(s string) (palette.Palette, error) {
	var p palette.Palette
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (db *PaletteDB) withTx(fn func(*sql.Tx) error) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanPalettes(rows *sql.Rows) (map[string]palette.Palette, error) {
	defer rows.Close()

	palettes := make(map[string]palette.Palette)
	for rows.Next() {
		var name, colors string
		if err := rows.Scan(&name, &colors); err != nil {
			return nil, err
		}
		p, err := decodeColors(colors)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", name, err)
		}
		palettes[name] = p
	}
	return palettes, rows.Err()
}

// SourcePalettes returns every source palette keyed by name.
func (db *PaletteDB) SourcePalettes() (map[string]palette.Palette, error) {
	rows, err := db.db.Query("SELECT name, colors FROM source_palette")
	if err != nil {
		return nil, err
	}
	return scanPalettes(rows)
}

// SourcePalette returns the named source palette.
func (db *PaletteDB) SourcePalette(name string) (palette.Palette, error) {
	var colors string
	switch err := db.db.QueryRow("SELECT colors FROM source_palette WHERE name = ?", name).Scan(&colors); err {
	case sql.ErrNoRows:
		return nil, fmt.Errorf("%w: source palette %q", ErrNotFound, name)
	case nil:
		return decodeColors(colors)
	default:
		return nil, err
	}
}

func addSourcePalette(q queryer, name string, p palette.Palette) error {
	colors, err := encodeColors(p)
	if err != nil {
		return err
	}
	if _, err := q.Exec("INSERT INTO source_palette (name, colors) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET colors = excluded.colors", name, colors); err != nil {
		return err
	}
	return nil
}

// AddSourcePalette stores p under name, replacing any existing palette with
// the same name.
func (db *PaletteDB) AddSourcePalette(name string, p palette.Palette) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	return addSourcePalette(db.db, name, p)
}

// DeleteSourcePalette removes the named source palette. The default palette
// cannot be removed.
func (db *PaletteDB) DeleteSourcePalette(name string) error {
	if name == palette.DefaultSource {
		return ErrDefaultPalette
	}
	result, err := db.db.Exec("DELETE FROM source_palette WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: source palette %q", ErrNotFound, name)
	}
	return nil
}

// Groups returns the name of every group, sorted.
func (db *PaletteDB) Groups() ([]string, error) {
	rows, err := db.db.Query("SELECT name FROM palette_group ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		groups = append(groups, name)
	}
	return groups, rows.Err()
}

func groupID(q queryer, name string) (int64, error) {
	var id int64
	switch err := q.QueryRow("SELECT id FROM palette_group WHERE name = ?", name).Scan(&id); err {
	case sql.ErrNoRows:
		return 0, fmt.Errorf("%w: group %q", ErrNotFound, name)
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

func addGroup(q queryer, name string) (int64, error) {
	id, err := groupID(q, name)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, ErrNotFound):
		result, err := q.Exec("INSERT INTO palette_group (name) VALUES (?)", name)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	default:
		return 0, err
	}
}

// AddGroup creates an empty group.
func (db *PaletteDB) AddGroup(name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if _, err := groupID(db.db, name); err == nil {
		return fmt.Errorf("%w: group %q", ErrExists, name)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err = addGroup(db.db, name)
	return err
}

// RenameGroup renames a group keeping its palettes.
func (db *PaletteDB) RenameGroup(from, to string) error {
	to, err := cleanName(to)
	if err != nil {
		return err
	}
	return db.withTx(func(tx *sql.Tx) error {
		id, err := groupID(tx, from)
		if err != nil {
			return err
		}
		if other, err := groupID(tx, to); err == nil {
			if other == id {
				return nil
			}
			return fmt.Errorf("%w: group %q", ErrExists, to)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		_, err = tx.Exec("UPDATE palette_group SET name = ? WHERE id = ?", to, id)
		return err
	})
}

// DeleteGroup removes a group and every palette in it.
func (db *PaletteDB) DeleteGroup(name string) error {
	result, err := db.db.Exec("DELETE FROM palette_group WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: group %q", ErrNotFound, name)
	}
	return nil
}

// Palettes returns the target palettes in group keyed by name.
func (db *PaletteDB) Palettes(group string) (map[string]palette.Palette, error) {
	id, err := groupID(db.db, group)
	if err != nil {
		return nil, err
	}
	rows, err := db.db.Query("SELECT name, colors FROM target_palette WHERE group_id = ?", id)
	if err != nil {
		return nil, err
	}
	return scanPalettes(rows)
}

func addPalette(q queryer, group int64, name string, p palette.Palette) error {
	colors, err := encodeColors(p)
	if err != nil {
		return err
	}
	if _, err := q.Exec("INSERT INTO target_palette (group_id, name, colors) VALUES (?, ?, ?) ON CONFLICT(group_id, name) DO UPDATE SET colors = excluded.colors", group, name, colors); err != nil {
		return err
	}
	return nil
}

// AddPalette stores p as name in group, creating the group if needed and
// replacing any palette of the same name in it.
func (db *PaletteDB) AddPalette(group, name string, p palette.Palette) error {
	group, err := cleanName(group)
	if err != nil {
		return err
	}
	if name, err = cleanName(name); err != nil {
		return err
	}
	return db.withTx(func(tx *sql.Tx) error {
		id, err := addGroup(tx, group)
		if err != nil {
			return err
		}
		return addPalette(tx, id, name, p)
	})
}

// UpdatePalette replaces the colors of an existing palette.
func (db *PaletteDB) UpdatePalette(group, name string, p palette.Palette) error {
	colors, err := encodeColors(p)
	if err != nil {
		return err
	}
	return db.withTx(func(tx *sql.Tx) error {
		id, err := groupID(tx, group)
		if err != nil {
			return err
		}
		result, err := tx.Exec("UPDATE target_palette SET colors = ? WHERE group_id = ? AND name = ?", colors, id, name)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("%w: palette %q in group %q", ErrNotFound, name, group)
		}
		return nil
	})
}

// DeletePalette removes a palette from group.
func (db *PaletteDB) DeletePalette(group, name string) error {
	return db.withTx(func(tx *sql.Tx) error {
		id, err := groupID(tx, group)
		if err != nil {
			return err
		}
		result, err := tx.Exec("DELETE FROM target_palette WHERE group_id = ? AND name = ?", id, name)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("%w: palette %q in group %q", ErrNotFound, name, group)
		}
		return nil
	})
}

// CopyPalette copies a palette into another existing group, as newName if
// that is not empty. An existing palette of the same name is replaced.
func (db *PaletteDB) CopyPalette(from, name, to, newName string) error {
	if strings.TrimSpace(newName) == "" {
		newName = name
	}
	newName, err := cleanName(newName)
	if err != nil {
		return err
	}
	return db.withTx(func(tx *sql.Tx) error {
		src, err := groupID(tx, from)
		if err != nil {
			return err
		}
		dst, err := groupID(tx, to)
		if err != nil {
			return err
		}

		var colors string
		switch err := tx.QueryRow("SELECT colors FROM target_palette WHERE group_id = ? AND name = ?", src, name).Scan(&colors); err {
		case sql.ErrNoRows:
			return fmt.Errorf("%w: palette %q in group %q", ErrNotFound, name, from)
		case nil:
		default:
			return err
		}

		_, err = tx.Exec("INSERT INTO target_palette (group_id, name, colors) VALUES (?, ?, ?) ON CONFLICT(group_id, name) DO UPDATE SET colors = excluded.colors", dst, newName, colors)
		return err
	})
}

// Export returns the entire contents of the database.
func (db *PaletteDB) Export() (*palette.Document, error) {
	doc := palette.NewDocument()

	sources, err := db.SourcePalettes()
	if err != nil {
		return nil, err
	}
	doc.SourcePalettes = sources

	rows, err := db.db.Query("SELECT g.name, t.name, t.colors FROM palette_group AS g LEFT JOIN target_palette AS t ON t.group_id = g.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var group string
		var name, colors sql.NullString
		if err := rows.Scan(&group, &name, &colors); err != nil {
			return nil, err
		}
		if _, ok := doc.Groups[group]; !ok {
			doc.Groups[group] = make(map[string]palette.Palette)
		}
		// Empty groups produce a single row of NULLs
		if !name.Valid {
			continue
		}
		p, err := decodeColors(colors.String)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", name.String, err)
		}
		doc.Groups[group][name.String] = p
	}

	return doc, rows.Err()
}

// Import adds the contents of doc to the database. With merge set, entries
// in doc replace those of the same name and everything else is kept,
// otherwise the database is emptied first.
func (db *PaletteDB) Import(doc *palette.Document, merge bool) error {
	return db.withTx(func(tx *sql.Tx) error {
		if !merge {
			if _, err := tx.Exec("DELETE FROM target_palette"); err != nil {
				return err
			}
			if _, err := tx.Exec("DELETE FROM palette_group"); err != nil {
				return err
			}
			if _, err := tx.Exec("DELETE FROM source_palette"); err != nil {
				return err
			}
		}

		for _, name := range sortedKeys(doc.SourcePalettes) {
			if _, err := cleanName(name); err != nil {
				return err
			}
			if err := addSourcePalette(tx, name, doc.SourcePalettes[name]); err != nil {
				return err
			}
		}

		groups := make([]string, 0, len(doc.Groups))
		for group := range doc.Groups {
			groups = append(groups, group)
		}
		sort.Strings(groups)

		for _, group := range groups {
			if _, err := cleanName(group); err != nil {
				return err
			}
			id, err := addGroup(tx, group)
			if err != nil {
				return err
			}
			palettes := doc.Groups[group]
			for _, name := range sortedKeys(palettes) {
				if _, err := cleanName(name); err != nil {
					return err
				}
				if err := addPalette(tx, id, name, palettes[name]); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// ImportJSON reads a palette document from file and imports it.
func (db *PaletteDB) ImportJSON(file string, merge bool) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := palette.Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	return db.Import(doc, merge)
}

func sortedKeys(m map[string]palette.Palette) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
