package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 50 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func storedBounds(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestIngestBoundsSquare(t *testing.T) {
	dir := t.TempDir()

	filename, err := Ingest(pngBytes(t, 2000, 2000), "upload.png", dir, 125, 125)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".png"))
	assert.NotContains(t, filename, "upload")

	w, h := storedBounds(t, filepath.Join(dir, filename))
	assert.LessOrEqual(t, w, 125)
	assert.LessOrEqual(t, h, 125)
	assert.Equal(t, w, h) // square source keeps a square aspect
}

func TestIngestPreservesAspectRatio(t *testing.T) {
	dir := t.TempDir()

	filename, err := Ingest(pngBytes(t, 2000, 1000), "wide.png", dir, 125, 125)
	require.NoError(t, err)

	w, h := storedBounds(t, filepath.Join(dir, filename))
	assert.Equal(t, 125, w)
	// 2:1 source within rounding
	assert.InDelta(t, 62, h, 1)
}

func TestIngestDoesNotUpscale(t *testing.T) {
	dir := t.TempDir()

	filename, err := Ingest(pngBytes(t, 50, 40), "small.png", dir, 125, 125)
	require.NoError(t, err)

	w, h := storedBounds(t, filepath.Join(dir, filename))
	assert.Equal(t, 50, w)
	assert.Equal(t, 40, h)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()

	_, err := Ingest(strings.NewReader("this is not an image"), "notes.txt", dir, 125, 125)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestNormalizesExtension(t *testing.T) {
	dir := t.TempDir()

	// PNG content with a misleading extension gets the decoded format's one.
	filename, err := Ingest(pngBytes(t, 10, 10), "sneaky.exe", dir, 125, 125)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".png"))
}

func TestSupersede(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.jpg")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))

	Supersede("old.jpg", dir, "defaultpp.jpg")
	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
}

func TestSupersedeSparesSentinel(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, "defaultpp.jpg")
	require.NoError(t, os.WriteFile(sentinel, []byte("x"), 0o644))

	Supersede("defaultpp.jpg", dir, "defaultpp.jpg")
	_, err := os.Stat(sentinel)
	assert.NoError(t, err)
}

func TestSupersedeToleratesMissingFile(t *testing.T) {
	// Only logged; must not panic or abort anything.
	Supersede("gone.jpg", t.TempDir(), "defaultpp.jpg")
}
