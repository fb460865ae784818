/*
Package palettegen is a library for producing recolored variants of
textures from palettes kept in a sqlite database.

Every image is recolored once for each selected target palette, mapping the
colors of a source palette onto it, and written as <name>_<palette>.png.
Optionally an emissive texture holding only the recolored pixels is written
alongside as <name>_<palette>_emissive.png.
*/
package palettegen

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Erusel/palettegen/palette"
	"github.com/sirupsen/logrus"
)

const defaultWorkers = 10

// Generator runs batches of recolors against a PaletteDB.
type Generator struct {
	db     *PaletteDB
	logger *logrus.Logger
}

// New returns a Generator using the palettes in db.
func New(db *PaletteDB, logger *logrus.Logger) *Generator {
	return &Generator{
		db:     db,
		logger: logger,
	}
}

// Options controls a single Generate run.
type Options struct {
	// Input is either a single image or a directory, in which case every
	// image directly inside it is processed
	Input string
	// Output is the directory images are written to
	Output string
	// Zip, if set, is an archive every image is also written to
	Zip string
	// Source names the source palette, palette.DefaultSource if empty
	Source string
	// Groups restricts the target palettes to these groups, all groups if
	// empty
	Groups []string
	// Emissive enables writing emissive textures
	Emissive bool
	// Workers is the number of images processed concurrently
	Workers int
}

// Summary reports the outcome of a Generate run.
type Summary struct {
	Images  int
	Failed  int
	// Skipped counts images left out because another image in the same
	// directory would produce the same output names
	Skipped int
	Files   int
}

type target struct {
	group   string
	name    string
	palette palette.Palette
}

func (g *Generator) sourcePalette(name string) (palette.Palette, error) {
	if name != "" {
		return g.db.SourcePalette(name)
	}

	p, err := g.db.SourcePalette(palette.DefaultSource)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return p, err
	}

	// Fall back to whatever comes first
	sources, err := g.db.SourcePalettes()
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no source palettes", ErrNotFound)
	}
	return sources[sortedKeys(sources)[0]], nil
}

// targets returns the palettes in groups ordered by name. Palette names
// double as output filenames so where two groups share a name the later
// group wins.
func (g *Generator) targets(groups []string) ([]target, error) {
	if len(groups) == 0 {
		var err error
		if groups, err = g.db.Groups(); err != nil {
			return nil, err
		}
	} else {
		groups = append([]string(nil), groups...)
	}
	sort.Strings(groups)

	byName := make(map[string]target)
	for _, group := range groups {
		palettes, err := g.db.Palettes(group)
		if err != nil {
			return nil, err
		}
		for name, p := range palettes {
			if prev, ok := byName[name]; ok && prev.group != group {
				g.logger.WithFields(logrus.Fields{
					"palette": name,
					"group":   group,
					"shadows": prev.group,
				}).Warn("Palette name used by more than one group")
			}
			byName[name] = target{group: group, name: name, palette: p}
		}
	}

	targets := make([]target, 0, len(byName))
	for _, t := range byName {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].name < targets[j].name })

	return targets, nil
}
