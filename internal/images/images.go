// Package images stores uploaded pictures under content-random filenames,
// bounded to a maximum size. Uploaded filenames are never used for storage,
// only their extension is considered, so path traversal via crafted names is
// not possible.
package images

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// ErrUnsupportedFormat is returned when an upload cannot be decoded as an image.
var ErrUnsupportedFormat = errors.New("images: unsupported image format")

// extensions each decodable format may keep from the original filename.
var formatExts = map[string][]string{
	"jpeg": {".jpg", ".jpeg"},
	"png":  {".png"},
	"gif":  {".gif"},
}

// Ingest decodes the upload, shrinks it so neither dimension exceeds
// maxWidth x maxHeight (aspect ratio preserved, never upscaled) and writes it
// to dir under a fresh random filename. The returned filename is what the
// caller persists; the row commit should happen only after Ingest succeeds,
// an orphaned file being recoverable where a row pointing at a missing file
// is not.
func Ingest(r io.Reader, originalName, dir string, maxWidth, maxHeight uint) (string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return "", ErrUnsupportedFormat
	}

	resized := resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)

	filename := uuid.NewString() + normalizeExt(originalName, format)
	path := filepath.Join(dir, filename)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	switch format {
	case "png":
		err = png.Encode(out, resized)
	case "gif":
		err = gif.Encode(out, resized, nil)
	default:
		err = jpeg.Encode(out, resized, &jpeg.Options{Quality: 80})
	}
	if err != nil {
		// Do not leave a half-written file behind.
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode image: %w", err)
	}

	return filename, nil
}

// Supersede removes the previously stored file once a replacement is in
// place. The sentinel default image is never removed. Failures are logged
// rather than returned: the database record change is the primary effect and
// a stray file must not abort it.
func Supersede(oldFilename, dir, sentinel string) {
	if oldFilename == "" || oldFilename == sentinel {
		return
	}
	path := filepath.Join(dir, oldFilename)
	if err := os.Remove(path); err != nil {
		slog.Warn("Failed to remove superseded image", "path", path, "error", err)
	}
}

// normalizeExt keeps the original extension when it matches the decoded
// format, otherwise falls back to the format's canonical extension.
func normalizeExt(originalName, format string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	allowed := formatExts[format]
	for _, a := range allowed {
		if ext == a {
			return ext
		}
	}
	if len(allowed) > 0 {
		return allowed[0]
	}
	return ".jpg"
}
