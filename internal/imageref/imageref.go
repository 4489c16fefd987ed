// Package imageref resolves a Figure or inline Image's src/image_ref
// string to its size in points (implementing internal/layout.ImageSizer)
// and, for the PDF backend, to embeddable XObject bytes. It decodes
// local raster files relative to the document's base directory, with
// blank imports of golang.org/x/image/bmp and golang.org/x/image/webp
// alongside the standard library's image/jpeg, image/png, image/gif, so
// image.Decode recognizes whichever format a document author supplies.
package imageref

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/rbf22/compose/internal/pdfdoc"
)

// Resolver implements internal/layout.ImageSizer against files on disk,
// resolved relative to BaseDir, with decoded images cached by path since
// a figure and its width-computing pass may ask for the same size twice.
type Resolver struct {
	BaseDir string

	mu    sync.Mutex
	cache map[string]decoded
}

type decoded struct {
	img         image.Image
	widthPoints float64
	heightPoints float64
}

// pointsPerPixel assumes a document image is authored at 96 DPI, the
// common web-image default; 72 points per inch / 96 pixels per inch.
const pointsPerPixel = 72.0 / 96.0

// NewResolver returns a Resolver rooted at baseDir (typically the
// directory containing the source Markdown file).
func NewResolver(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir, cache: map[string]decoded{}}
}

// ImageSize implements internal/layout.ImageSizer.
func (r *Resolver) ImageSize(ref string) (width, height float64, err error) {
	d, err := r.load(ref)
	if err != nil {
		return 0, 0, err
	}
	return d.widthPoints, d.heightPoints, nil
}

// XObject decodes ref and returns a pdfdoc.XObject ready to embed,
// re-encoding as baseline JPEG so the writer never needs to special-case
// the source format's own compression.
func (r *Resolver) XObject(ref string, quality int) (*pdfdoc.XObject, error) {
	d, err := r.load(ref)
	if err != nil {
		return nil, err
	}
	bounds := d.img.Bounds()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, d.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imageref: encoding %s: %w", ref, err)
	}

	return &pdfdoc.XObject{
		Subtype:          "Image",
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		ColorSpace:       "DeviceRGB",
		BitsPerComponent: 8,
		Filter:           "DCTDecode",
		Data:             buf.Bytes(),
	}, nil
}

func (r *Resolver) load(ref string) (decoded, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.cache[ref]; ok {
		return d, nil
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.BaseDir, ref)
	}
	f, err := os.Open(path)
	if err != nil {
		return decoded{}, fmt.Errorf("imageref: opening %s: %w", ref, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return decoded{}, fmt.Errorf("imageref: decoding %s: %w", ref, err)
	}

	bounds := img.Bounds()
	d := decoded{
		img:          img,
		widthPoints:  float64(bounds.Dx()) * pointsPerPixel,
		heightPoints: float64(bounds.Dy()) * pointsPerPixel,
	}
	r.cache[ref] = d
	return d, nil
}
