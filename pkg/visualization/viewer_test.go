package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"mrilevelset/pkg/grid"
)

// testStack creates depth slices of a bright square and masks covering it
func testStack(width, height, depth int) ([]*grid.Intensity, []*grid.Mask) {
	slices := make([]*grid.Intensity, depth)
	masks := make([]*grid.Mask, depth)
	for z := 0; z < depth; z++ {
		s := grid.New[int](width, height)
		m := grid.New[uint8](width, height)
		for y := 2; y < height-2; y++ {
			for x := 2; x < width-2; x++ {
				s.Set(x, y, 1000)
				m.Set(x, y, grid.Foreground)
			}
		}
		slices[z] = s
		masks[z] = m
	}
	return slices, masks
}

// TestNewViewer verifies that a new viewer is created with the correct dimensions
func TestNewViewer(t *testing.T) {
	slices, masks := testStack(10, 8, 5)

	viewer, err := NewViewer(slices, masks[:3])
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if viewer.width != 10 || viewer.height != 8 || viewer.depth != 5 {
		t.Errorf("Expected 10x8x5, got %dx%dx%d", viewer.width, viewer.height, viewer.depth)
	}
	if viewer.maxIntensity != 1000 {
		t.Errorf("Expected max intensity 1000, got %d", viewer.maxIntensity)
	}
	if viewer.masks[4] != nil {
		t.Error("Expected missing masks to be nil")
	}

	if _, err := NewViewer(nil, nil); err == nil {
		t.Error("Expected error for empty stack")
	}
	if _, err := NewViewer(slices[:1], masks); err == nil {
		t.Error("Expected error for more masks than slices")
	}
	if _, err := NewViewer(slices[:1], []*grid.Mask{grid.New[uint8](3, 3)}); err == nil {
		t.Error("Expected error for mismatched mask size")
	}
}

// TestOverlay verifies that contour pixels are drawn on top of the slice
func TestOverlay(t *testing.T) {
	slices, masks := testStack(10, 10, 2)
	viewer, err := NewViewer(slices, masks[:1])
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	img, err := viewer.Overlay(0)
	if err != nil {
		t.Fatalf("Failed to render overlay: %v", err)
	}
	if got := img.RGBAAt(2, 5); got != ContourColor {
		t.Errorf("Expected contour colour at the square edge, got %v", got)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("Expected white interior, got %v", got)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("Expected black background, got %v", got)
	}

	plain, err := viewer.Overlay(1)
	if err != nil {
		t.Fatalf("Failed to render overlay: %v", err)
	}
	if got := plain.RGBAAt(2, 5); got == ContourColor {
		t.Error("Expected no contour on a slice without mask")
	}

	if _, err := viewer.Overlay(2); err == nil {
		t.Error("Expected error for out of range slice")
	}
}

// TestExtractSlice verifies reslicing of the mask stack along each axis
func TestExtractSlice(t *testing.T) {
	slices, masks := testStack(10, 8, 5)
	masks[3] = nil
	viewer, err := NewViewer(slices, masks)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	tests := []struct {
		axis          string
		position      int
		width, height int
	}{
		{"x", 5, 5, 8},
		{"y", 4, 10, 5},
		{"z", 2, 10, 8},
	}
	for _, tt := range tests {
		img, err := viewer.ExtractSlice(tt.axis, tt.position)
		if err != nil {
			t.Fatalf("Failed to extract %s slice: %v", tt.axis, err)
		}
		b := img.Bounds()
		if b.Dx() != tt.width || b.Dy() != tt.height {
			t.Errorf("Axis %s: expected %dx%d, got %dx%d", tt.axis, tt.width, tt.height, b.Dx(), b.Dy())
		}
	}

	xs, _ := viewer.ExtractSlice("x", 5)
	if xs.GrayAt(0, 4).Y != grid.Foreground {
		t.Error("Expected foreground from slice 0 in the x reslice")
	}
	if xs.GrayAt(3, 4).Y != grid.Background {
		t.Error("Expected background where the mask is missing")
	}

	for _, bad := range []struct {
		axis string
		pos  int
	}{{"x", 10}, {"y", 8}, {"z", 5}, {"z", -1}, {"w", 0}} {
		if _, err := viewer.ExtractSlice(bad.axis, bad.pos); err == nil {
			t.Errorf("Expected error for axis %s position %d", bad.axis, bad.pos)
		}
	}
}

// TestSaveOverlays verifies that overlays and masks are written to disk
func TestSaveOverlays(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir := t.TempDir()
	slices, masks := testStack(6, 6, 3)
	masks[1] = nil
	viewer, err := NewViewer(slices, masks)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if err := viewer.SaveOverlays(tempDir); err != nil {
		t.Fatalf("Failed to save overlays: %v", err)
	}
	for z := 0; z < 3; z++ {
		if _, err := os.Stat(filepath.Join(tempDir, fmt.Sprintf("overlay_%03d.png", z))); err != nil {
			t.Errorf("Expected overlay %d: %v", z, err)
		}
	}
	if _, err := os.Stat(filepath.Join(tempDir, "mask_001.png")); !os.IsNotExist(err) {
		t.Error("Expected no mask image for an unsegmented slice")
	}

	jpg := filepath.Join(tempDir, "mask.jpg")
	if err := SaveImage(MaskImage(masks[0]), jpg); err != nil {
		t.Fatalf("Failed to save jpeg: %v", err)
	}
	if _, err := os.Stat(jpg); err != nil {
		t.Errorf("Saved file does not exist: %s", jpg)
	}
}

// TestSaveSliceSequence verifies that a sequence of reslices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	slices, masks := testStack(5, 5, 3)
	viewer, err := NewViewer(slices, masks)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	outputDir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	for z := 0; z < 3; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}

// TestPlotConvergence verifies that the area plot is rendered
func TestPlotConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping plot rendering in short mode")
	}

	filename := filepath.Join(t.TempDir(), "convergence.png")
	histories := map[int][]int{
		0: {100, 140, 170, 180, 178, 181},
		1: {90, 120, 150},
		2: nil,
	}
	if err := PlotConvergence(histories, filename); err != nil {
		t.Fatalf("Failed to plot: %v", err)
	}
	if info, err := os.Stat(filename); err != nil || info.Size() == 0 {
		t.Errorf("Expected a non-empty plot file: %v", err)
	}

	if err := PlotConvergence(nil, filename); err == nil {
		t.Error("Expected error for empty histories")
	}
}
