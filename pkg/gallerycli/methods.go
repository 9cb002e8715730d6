package gallerycli

import (
	"context"

	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/internal/gallery"
)

func (c *Client) Version(ctx context.Context) (*common.VersionResult, error) {
	return invoke[common.VersionResult](ctx, c, common.METHOD_VERSION, nil)
}

// People lists visible people. An empty category lists everyone.
func (c *Client) People(ctx context.Context, category gallery.Category) (*common.PeopleResult, error) {
	return invoke[common.PeopleResult](ctx, c, common.METHOD_PEOPLE, &common.CategoryParams{Category: category})
}

func (c *Client) Person(ctx context.Context, id string) (*common.PersonResult, error) {
	return invoke[common.PersonResult](ctx, c, common.METHOD_PERSON, &common.IDParams{ID: id})
}

func (c *Client) Photos(ctx context.Context, category gallery.Category) (*common.PhotosResult, error) {
	return invoke[common.PhotosResult](ctx, c, common.METHOD_PHOTOS, &common.CategoryParams{Category: category})
}

func (c *Client) PersonImage(ctx context.Context, id string) (*gallery.ImageInfo, error) {
	return invoke[gallery.ImageInfo](ctx, c, common.METHOD_PERSON_IMAGE, &common.IDParams{ID: id})
}

func (c *Client) Validate(ctx context.Context) (*gallery.Report, error) {
	return invoke[gallery.Report](ctx, c, common.METHOD_VALIDATE, nil)
}

func (c *Client) NextLaunch(ctx context.Context) (*common.LaunchResult, error) {
	return invoke[common.LaunchResult](ctx, c, common.METHOD_LAUNCH_NEXT, nil)
}

// SetLaunch publishes ts (Unix milliseconds) as the next launch. A zero ts
// launches now and lets the daemon schedule the next one.
func (c *Client) SetLaunch(ctx context.Context, ts int64) (*common.LaunchResult, error) {
	return invoke[common.LaunchResult](ctx, c, common.METHOD_LAUNCH_SET, &common.LaunchParams{Timestamp: ts})
}

// Scroll reports a scroll event.
func (c *Client) Scroll(ctx context.Context) (*common.ScrollResult, error) {
	return invoke[common.ScrollResult](ctx, c, common.METHOD_SCROLL_EVENT, nil)
}

func (c *Client) ScrollState(ctx context.Context) (*common.ScrollResult, error) {
	return invoke[common.ScrollResult](ctx, c, common.METHOD_SCROLL_STATE, nil)
}

func (c *Client) QueueStats(ctx context.Context) (*common.QueueResult, error) {
	return invoke[common.QueueResult](ctx, c, common.METHOD_QUEUE_STATS, nil)
}

// Preload asks the daemon to warm srcs, or every referenced image when
// srcs is empty.
func (c *Client) Preload(ctx context.Context, srcs []string) (*common.PreloadResult, error) {
	return invoke[common.PreloadResult](ctx, c, common.METHOD_PRELOAD, &common.PreloadParams{Sources: srcs})
}

func (c *Client) CrashLogs(ctx context.Context) (*common.CrashLogResult, error) {
	return invoke[common.CrashLogResult](ctx, c, common.METHOD_CRASHLOG_LIST, nil)
}

func (c *Client) ClearCrashLogs(ctx context.Context) error {
	_, err := invoke[common.EmptyResult](ctx, c, common.METHOD_CRASHLOG_CLEAR, nil)
	return err
}
