// Package preload warms images through the load queue, the way the page
// prefetches carousel and portrait images before they scroll into view.
package preload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/warpdl/recognition/internal/gallery"
	"github.com/warpdl/recognition/pkg/loadqueue"
	"github.com/warpdl/recognition/pkg/logger"
)

const idPrefix = "preload:"

// ErrRejected is reported in Progress for sources refused by the queue.
var ErrRejected = errors.New("rejected while scrolling")

// Result counts the outcome of a Run.
type Result struct {
	Loaded   int `json:"loaded"`
	Failed   int `json:"failed"`
	Rejected int `json:"rejected"`
}

// Progress is reported after each source finishes.
type Progress struct {
	Src   string
	Err   error
	Done  int
	Total int
}

// Preloader pushes image fetches through a load queue.
type Preloader struct {
	queue   *loadqueue.Queue
	fetcher Fetcher
	log     logger.Logger
	runMu   sync.Mutex
	runs    int
}

// New creates a Preloader. A nil log discards messages.
func New(q *loadqueue.Queue, f Fetcher, log logger.Logger) *Preloader {
	return &Preloader{queue: q, fetcher: f, log: logger.OrNop(log)}
}

// Run fetches every source through the queue and waits for them to finish.
// Sources refused by the queue while the page is scrolling count as
// rejected. Duplicate sources are fetched once. Runs on the same Preloader
// are serialized. If ctx ends first, Run returns the partial result with
// ctx's error.
func (p *Preloader) Run(ctx context.Context, srcs []string, onProgress func(Progress)) (Result, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.runs++
	prefix := fmt.Sprintf("%s%d:", idPrefix, p.runs)
	srcs = unique(srcs)
	var (
		mu   sync.Mutex
		res  Result
		done int
		wg   sync.WaitGroup
	)
	finish := func(src string, err error) {
		mu.Lock()
		if err != nil {
			res.Failed++
		} else {
			res.Loaded++
		}
		done++
		pr := Progress{Src: src, Err: err, Done: done, Total: len(srcs)}
		if onProgress != nil {
			onProgress(pr)
		}
		mu.Unlock()
	}

	for _, src := range srcs {
		src := src
		wg.Add(1)
		ok := p.queue.Enqueue(prefix+src, func(release func()) {
			go func() {
				defer wg.Done()
				err := p.fetcher.Fetch(ctx, src)
				release()
				if err != nil {
					p.log.Warning("preload: %s: %v", src, err)
				}
				finish(src, err)
			}()
		})
		if !ok {
			wg.Done()
			mu.Lock()
			res.Rejected++
			done++
			if onProgress != nil {
				onProgress(Progress{Src: src, Err: ErrRejected, Done: done, Total: len(srcs)})
			}
			mu.Unlock()
		}
	}

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		mu.Lock()
		defer mu.Unlock()
		return res, ctx.Err()
	}
	mu.Lock()
	defer mu.Unlock()
	return res, nil
}

// Sources lists the images to warm: group photos first, then individual
// portraits of visible people.
func Sources(data gallery.PeopleData) []string {
	var out []string
	for _, ph := range data.GroupPhotos {
		if ph.ImagePath != "" {
			out = append(out, ph.ImagePath)
		}
	}
	for _, p := range data.People {
		if p.Hidden || p.IndividualPhoto == nil || *p.IndividualPhoto == "" {
			continue
		}
		out = append(out, *p.IndividualPhoto)
	}
	return unique(out)
}

func unique(srcs []string) []string {
	seen := make(map[string]struct{}, len(srcs))
	out := make([]string, 0, len(srcs))
	for _, s := range srcs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
