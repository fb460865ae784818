package palettegen

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".gif":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

func isImage(file string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(file))]
	return ok
}

// ReadImage decodes the image in file, returning it along with the name of
// its format.
func ReadImage(file string) (image.Image, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", file, err)
	}
	return m, format, nil
}

func encodePNG(w io.Writer, m image.Image) error {
	e := png.Encoder{
		CompressionLevel: png.BestCompression,
	}
	return e.Encode(w, m)
}
