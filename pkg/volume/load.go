package volume

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"

	"mrilevelset/internal/monitoring"
	"mrilevelset/pkg/grid"
)

var sliceExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// LoadDirectory reads every PNG, JPEG and TIFF image in dir as one slice.
// Files are ordered by the number embedded in their name. 16-bit grayscale
// images keep their full range; everything else is converted to 8-bit gray.
func LoadDirectory(dir string, meta Metadata) (*Stack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading slice directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sliceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrNoSlices, dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})

	slices := make([]*grid.Intensity, 0, len(files))
	for _, name := range files {
		s, err := loadSlice(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}
		slices = append(slices, s)
	}

	stack, err := NewStack(slices, meta)
	if err != nil {
		return nil, err
	}
	for i, name := range files {
		stack.info[i].Filename = name
	}

	w, h := stack.Dimensions()
	monitoring.Logf("Loaded %d slices with dimensions %dx%d", len(slices), w, h)
	return stack, nil
}

// extractNumber returns the digits of a filename as a number, 0 if there are none
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

func loadSlice(path string) (*grid.Intensity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// FromImage converts a decoded image to an intensity slice
func FromImage(img image.Image) *grid.Intensity {
	b := img.Bounds()
	s := grid.New[int](b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			px, py := b.Min.X+x, b.Min.Y+y
			var v int
			switch im := img.(type) {
			case *image.Gray16:
				v = int(im.Gray16At(px, py).Y)
			case *image.Gray:
				v = int(im.GrayAt(px, py).Y)
			default:
				v = int(color.GrayModel.Convert(img.At(px, py)).(color.Gray).Y)
			}
			s.Set(x, y, v)
		}
	}
	return s
}
