package palette

// DefaultSource is the name of the source palette every store starts with.
const DefaultSource = "Default"

func mustParse(s ...string) Palette {
	p, err := ParsePalette(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the built-in palettes a new store is seeded with.
func Default() *Document {
	purple := mustParse("#B23CED", "#8734C3", "#672FA0", "#582888")
	magenta := mustParse("#ED3CED", "#B634C3", "#8D2FA0", "#782888")
	pink := mustParse("#FF42B5", "#D53DA2", "#A33788", "#8B2F74")

	return &Document{
		SourcePalettes: map[string]Palette{
			// Light gray, light purple-gray, medium purple-gray, dark purple-gray
			DefaultSource: mustParse("#FBFBFB", "#CAC1D1", "#9788A2", "#6A5976"),
		},
		Groups: map[string]map[string]Palette{
			"All Colors": {
				"Purple":  purple,
				"Magenta": magenta,
				"Pink":    pink,
			},
			"Warm Tones": {
				"Magenta": magenta,
				"Pink":    pink,
			},
			"Cool Tones": {
				"Purple": purple,
			},
		},
	}
}
