package palette

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errNotDocument = errors.New("palette: no source_palettes, target_palettes or palette_groups")

// Document is the exported form of a palette store. Groups maps a group
// name to the target palettes it holds, keyed by palette name.
//
// Two JSON layouts are understood. The grouped layout nests the palettes
// directly:
//
//	{"source_palettes": {"Default": ["#FBFBFB", ...]},
//	 "palette_groups": {"Cool Tones": {"Purple": ["#B23CED", ...]}}}
//
// The older flat layout keeps target palettes in their own object and lists
// names per group:
//
//	{"source_palettes": {...},
//	 "target_palettes": {"Purple": [...]},
//	 "palette_groups": {"Cool Tones": ["Purple"]}}
//
// Either is accepted by UnmarshalJSON, MarshalJSON always writes the grouped
// layout.
type Document struct {
	SourcePalettes map[string]Palette
	Groups         map[string]map[string]Palette
}

type groupedDocument struct {
	SourcePalettes map[string]Palette            `json:"source_palettes"`
	PaletteGroups  map[string]map[string]Palette `json:"palette_groups"`
}

type rawDocument struct {
	SourcePalettes map[string]Palette         `json:"source_palettes"`
	TargetPalettes map[string]Palette         `json:"target_palettes"`
	PaletteGroups  map[string]json.RawMessage `json:"palette_groups"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		SourcePalettes: make(map[string]Palette),
		Groups:         make(map[string]map[string]Palette),
	}
}

// MarshalJSON implements json.Marshaler
func (d Document) MarshalJSON() ([]byte, error) {
	// Empty maps rather than null so the output always imports again
	g := groupedDocument{
		SourcePalettes: d.SourcePalettes,
		PaletteGroups:  make(map[string]map[string]Palette, len(d.Groups)),
	}
	if g.SourcePalettes == nil {
		g.SourcePalettes = map[string]Palette{}
	}
	for name, palettes := range d.Groups {
		if palettes == nil {
			palettes = map[string]Palette{}
		}
		g.PaletteGroups[name] = palettes
	}
	return json.Marshal(g)
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw rawDocument
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.SourcePalettes == nil && raw.TargetPalettes == nil && raw.PaletteGroups == nil {
		return errNotDocument
	}

	doc := NewDocument()
	for name, p := range raw.SourcePalettes {
		doc.SourcePalettes[name] = p
	}

	for group, r := range raw.PaletteGroups {
		r = bytes.TrimSpace(r)
		if len(r) == 0 {
			continue
		}
		palettes := make(map[string]Palette)
		switch r[0] {
		case '{':
			if err := json.Unmarshal(r, &palettes); err != nil {
				return fmt.Errorf("palette: group %q: %w", group, err)
			}
		case '[':
			var names []string
			if err := json.Unmarshal(r, &names); err != nil {
				return fmt.Errorf("palette: group %q: %w", group, err)
			}
			for _, name := range names {
				if p, ok := raw.TargetPalettes[name]; ok {
					palettes[name] = p
				}
			}
		case 'n': // null
		default:
			return fmt.Errorf("palette: group %q: unexpected %q", group, r[0])
		}
		doc.Groups[group] = palettes
	}

	*d = *doc
	return nil
}

// Decode reads a JSON document from r.
func Decode(r io.Reader) (*Document, error) {
	doc := new(Document)
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode writes d to w as indented JSON.
func (d *Document) Encode(w io.Writer) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(d)
}
