package common

import (
	"github.com/warpdl/recognition/internal/crashlog"
	"github.com/warpdl/recognition/internal/gallery"
	"github.com/warpdl/recognition/internal/preload"
	"github.com/warpdl/recognition/pkg/loadqueue"
)

type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

type CategoryParams struct {
	Category gallery.Category `json:"category,omitempty"`
}

type IDParams struct {
	ID string `json:"id"`
}

type PeopleResult struct {
	People []gallery.Person `json:"people"`
}

type PersonResult struct {
	Person gallery.Person       `json:"person"`
	Image  gallery.ImageInfo    `json:"image"`
	Photos []gallery.GroupPhoto `json:"photos"`
}

// PhotoItem is a group photo with the ids of the visible people tagged in
// it.
type PhotoItem struct {
	gallery.GroupPhoto
	People []string `json:"people"`
}

type PhotosResult struct {
	Photos []PhotoItem `json:"photos"`
}

// LaunchParams sets the next launch. A zero Timestamp asks the daemon to
// schedule one itself.
type LaunchParams struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

type LaunchResult struct {
	Scheduled bool   `json:"scheduled"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Countdown string `json:"countdown,omitempty"`
}

// LaunchNotification is the payload of launch.scheduled.
type LaunchNotification struct {
	Timestamp int64 `json:"timestamp"`
}

type ScrollResult struct {
	Scrolling bool `json:"scrolling"`
}

type QueueResult struct {
	loadqueue.Stats
	Scrolling bool `json:"scrolling"`
}

type PreloadParams struct {
	// Sources defaults to every image referenced by the people data.
	Sources []string `json:"sources,omitempty"`
}

type PreloadResult struct {
	preload.Result
	Total int `json:"total"`
}

type CrashLogResult struct {
	Enabled bool             `json:"enabled"`
	Entries []crashlog.Entry `json:"entries"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}
