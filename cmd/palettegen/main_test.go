package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Erusel/palettegen/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	out := new(bytes.Buffer)
	app.Writer = out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"palettegen", "--db", db}, args...))
	return out.String(), err
}

func TestPaletteCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")

	_, err := run(t, db, "group", "add", "Neon")
	require.NoError(t, err)

	_, err = run(t, db, "palette", "add", "Neon", "Glow", "#00ff00", "00EE00")
	require.NoError(t, err)

	out, err := run(t, db, "palette", "list", "Neon")
	require.NoError(t, err)
	assert.Equal(t, "Glow: #00FF00 #00EE00\n", out)

	_, err = run(t, db, "palette", "copy", "Neon", "Glow", "Cool Tones", "Bright")
	require.NoError(t, err)

	_, err = run(t, db, "group", "rename", "Cool Tones", "Cool")
	require.NoError(t, err)

	out, err = run(t, db, "group", "list")
	require.NoError(t, err)
	assert.Equal(t, "All Colors (3 palettes)\nCool (2 palettes)\nNeon (1 palettes)\nWarm Tones (2 palettes)\n", out)

	_, err = run(t, db, "source", "add", "Mine", "#010203")
	require.NoError(t, err)

	out, err = run(t, db, "source", "list")
	require.NoError(t, err)
	assert.Equal(t, "Default: #FBFBFB #CAC1D1 #9788A2 #6A5976\nMine: #010203\n", out)

	out, err = run(t, db, "export")
	require.NoError(t, err)
	doc, err := palette.Decode(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, palette.Palette{{0, 0xff, 0}, {0, 0xee, 0}}, doc.Groups["Cool"]["Bright"])

	// Export then re-import in replace mode
	file := filepath.Join(t.TempDir(), "palettes.json")
	_, err = run(t, db, "export", file)
	require.NoError(t, err)
	_, err = run(t, db, "group", "delete", "Neon")
	require.NoError(t, err)
	_, err = run(t, db, "import", "--replace", file)
	require.NoError(t, err)
	out, err = run(t, db, "palette", "list", "Neon")
	require.NoError(t, err)
	assert.Equal(t, "Glow: #00FF00 #00EE00\n", out)
}

func TestCommandErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")

	for _, args := range [][]string{
		{"palette", "add", "Neon"},
		{"palette", "add", "Neon", "Glow", "#nothex"},
		{"palette", "update", "Missing", "Glow", "#000000"},
		{"source", "delete", palette.DefaultSource},
		{"group", "add", "All Colors"},
		{"colors"},
		{"import", filepath.Join(t.TempDir(), "missing.json")},
	} {
		_, err := run(t, db, args...)
		var ec cli.ExitCoder
		if assert.ErrorAs(t, err, &ec, "%v", args) {
			assert.Equal(t, 1, ec.ExitCode())
		}
	}
}

func TestRecolorCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "generated")

	m := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	m.SetNRGBA(0, 0, color.NRGBA{251, 251, 251, 255})
	m.SetNRGBA(1, 0, color.NRGBA{251, 251, 251, 255})
	f, err := os.Create(filepath.Join(input, "sword.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, m))
	require.NoError(t, f.Close())

	out, err := run(t, db, "recolor", "-o", output, "-g", "Warm Tones", "-e", input)
	require.NoError(t, err)
	assert.Equal(t, "1 image(s) recolored, 0 failed, 4 file(s) written\n", out)

	for _, name := range []string{"sword_Magenta.png", "sword_Magenta_emissive.png", "sword_Pink.png", "sword_Pink_emissive.png"} {
		assert.FileExists(t, filepath.Join(output, name))
	}

	out, err = run(t, db, "colors", filepath.Join(output, "sword_Pink.png"))
	require.NoError(t, err)
	assert.Equal(t, "#FF42B5\t2\n", out)
}

func TestRecolorWithoutDefaultSource(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")
	input := t.TempDir()
	output := t.TempDir()

	doc := filepath.Join(t.TempDir(), "palettes.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{
  "source_palettes": {"Mine": ["#FBFBFB"]},
  "palette_groups": {"G": {"P": ["#010203"]}}
}`), 0644))
	_, err := run(t, db, "import", "--replace", doc)
	require.NoError(t, err)

	m := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	m.SetNRGBA(0, 0, color.NRGBA{251, 251, 251, 255})
	f, err := os.Create(filepath.Join(input, "sword.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, m))
	require.NoError(t, f.Close())

	out, err := run(t, db, "recolor", "-o", output, input)
	require.NoError(t, err)
	assert.Equal(t, "1 image(s) recolored, 0 failed, 1 file(s) written\n", out)

	out, err = run(t, db, "colors", filepath.Join(output, "sword_P.png"))
	require.NoError(t, err)
	assert.Equal(t, "#010203\t1\n", out)

	// Naming a missing source is still an error
	_, err = run(t, db, "recolor", "-o", output, "-s", palette.DefaultSource, input)
	assert.Error(t, err)
}
