package gallery

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPhotoWidth is used when a photo's size cannot be read.
	DefaultPhotoWidth = 1600
	// DefaultPhotoHeight is used when a photo's size cannot be read.
	DefaultPhotoHeight = 1200

	dimensionWorkers = 4
)

// ImageSize decodes only the header of the image at path.
func ImageSize(fs afero.Fs, path string) (width, height int, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return DecodeSize(f)
}

// DecodeSize reads an image header from r. GIF, JPEG and PNG are
// recognized.
func DecodeSize(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// WithDimensions fills in each group photo's pixel size by reading the
// image under publicDir. Photos that cannot be read keep their recorded
// size, or fall back to 1600x1200. warn, when non-nil, receives each
// failure.
func (s *Store) WithDimensions(ctx context.Context, fs afero.Fs, publicDir string, warn func(photo GroupPhoto, err error)) error {
	data := s.Data()
	photos := data.GroupPhotos

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(dimensionWorkers)
	for i := range photos {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ph := &photos[i]
			w, h, err := ImageSize(fs, filepath.Join(publicDir, filepath.FromSlash(ph.ImagePath)))
			if err == nil {
				ph.Width, ph.Height = w, h
				return nil
			}
			if warn != nil {
				warn(*ph, err)
			}
			if ph.Width == 0 {
				ph.Width = DefaultPhotoWidth
			}
			if ph.Height == 0 {
				ph.Height = DefaultPhotoHeight
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	data.GroupPhotos = photos
	s.replace(data)
	return nil
}
