package preload

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/warpdl/recognition/internal/gallery"
)

// Fetcher loads a single image so that later requests for it are cheap.
type Fetcher interface {
	Fetch(ctx context.Context, src string) error
}

// FileFetcher reads images from a public directory and checks that each
// one decodes.
type FileFetcher struct {
	Fs   afero.Fs
	Root string
}

func (f *FileFetcher) Fetch(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := gallery.ImageSize(f.Fs, filepath.Join(f.Root, filepath.FromSlash(src)))
	return err
}

// HTTPFetcher requests images from a running site or daemon.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src string) error {
	u := strings.TrimRight(f.BaseURL, "/") + "/" + strings.TrimLeft(src, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	_, _, err = gallery.DecodeSize(resp.Body)
	return err
}
