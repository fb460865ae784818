package palette

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tables := []struct {
		in  string
		out Color
		err bool
	}{
		{"#FBFBFB", Color{251, 251, 251}, false},
		{"cac1d1", Color{202, 193, 209}, false},
		{"#9788a2", Color{151, 136, 162}, false},
		{" #6A5976 ", Color{106, 89, 118}, false},
		{"#000000", Color{}, false},
		{"#FFF", Color{}, true},
		{"#GGGGGG", Color{}, true},
		{"", Color{}, true},
		{"#1234567", Color{}, true},
	}

	for _, table := range tables {
		t.Run(table.in, func(t *testing.T) {
			c, err := ParseColor(table.in)
			if table.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, table.out, c)
		})
	}
}

func TestColorHex(t *testing.T) {
	assert.Equal(t, "#B23CED", Color{178, 60, 237}.Hex())
	assert.Equal(t, "#00000A", Color{0, 0, 10}.Hex())
	assert.Equal(t, uint32(0xb23ced), Color{178, 60, 237}.Packed())
}

func TestPaletteJSON(t *testing.T) {
	p, err := ParsePalette([]string{"#b23ced", "8734C3"})
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `["#B23CED","#8734C3"]`, string(b))

	var q Palette
	require.NoError(t, json.Unmarshal([]byte(`["#b23ced","#8734c3"]`), &q))
	assert.Equal(t, p, q)

	assert.Error(t, json.Unmarshal([]byte(`["nope"]`), &q))
}

func TestDecodeGrouped(t *testing.T) {
	in := `{
  "source_palettes": {"Default": ["#FBFBFB", "#cac1d1"]},
  "palette_groups": {
    "Tropimon": {"light_gray": ["#112233", "#445566"]},
    "Saturated": {"light_gray": ["#FF0000", "#00FF00"]},
    "Empty": {}
  }
}`
	doc, err := Decode(strings.NewReader(in))
	require.NoError(t, err)

	want := &Document{
		SourcePalettes: map[string]Palette{
			"Default": {{251, 251, 251}, {202, 193, 209}},
		},
		Groups: map[string]map[string]Palette{
			"Tropimon":  {"light_gray": {{0x11, 0x22, 0x33}, {0x44, 0x55, 0x66}}},
			"Saturated": {"light_gray": {{0xff, 0, 0}, {0, 0xff, 0}}},
			"Empty":     {},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFlat(t *testing.T) {
	in := `{
  "source_palettes": {"Default": ["#FBFBFB"]},
  "target_palettes": {"Purple": ["#B23CED"], "Pink": ["#FF42B5"]},
  "palette_groups": {"Cool Tones": ["Purple", "Missing"], "All": ["Purple", "Pink"]}
}`
	doc, err := Decode(strings.NewReader(in))
	require.NoError(t, err)

	want := &Document{
		SourcePalettes: map[string]Palette{"Default": {{251, 251, 251}}},
		Groups: map[string]map[string]Palette{
			"Cool Tones": {"Purple": {{178, 60, 237}}},
			"All":        {"Purple": {{178, 60, 237}}, "Pink": {{255, 66, 181}}},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, in := range []string{
		`{}`,
		`{"unrelated": 1}`,
		`not json`,
		`{"palette_groups": {"g": 42}}`,
		`{"source_palettes": {"Default": ["#XYZXYZ"]}}`,
	} {
		_, err := Decode(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	doc := Default()

	b := new(bytes.Buffer)
	require.NoError(t, doc.Encode(b))
	assert.Contains(t, b.String(), `"#FBFBFB"`)
	assert.Contains(t, b.String(), "\n  \"palette_groups\"")
	assert.NotContains(t, b.String(), "target_palettes")

	got, err := Decode(b)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeNilMaps(t *testing.T) {
	b, err := json.Marshal(Document{Groups: map[string]map[string]Palette{"g": nil}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source_palettes":{},"palette_groups":{"g":{}}}`, string(b))
}

func TestDefault(t *testing.T) {
	doc := Default()
	assert.Equal(t, Palette{{251, 251, 251}, {202, 193, 209}, {151, 136, 162}, {106, 89, 118}}, doc.SourcePalettes[DefaultSource])
	assert.Len(t, doc.Groups["All Colors"], 3)
	assert.Equal(t, doc.Groups["All Colors"]["Purple"], doc.Groups["Cool Tones"]["Purple"])
}
