package server

import (
	"context"
	"errors"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/internal/crashlog"
	"github.com/warpdl/recognition/internal/gallery"
	"github.com/warpdl/recognition/internal/preload"
	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/launch"
	"github.com/warpdl/recognition/pkg/loadqueue"
	"github.com/warpdl/recognition/pkg/logger"
	"github.com/warpdl/recognition/pkg/scroll"
)

// Custom JSON-RPC error codes.
const (
	codeNotFound      = jrpc2.Code(-32001)
	codeUnavailable   = jrpc2.Code(-32002)
	codeInvalidParams = jrpc2.Code(-32602)
)

// RPCServer manages the JSON-RPC 2.0 bridge and method handlers.
type RPCServer struct {
	methods   handler.Map
	bridge    jhttp.Bridge
	notifier  *RPCNotifier
	origins   []string
	log       logger.Logger
	clock     clock.Clock
	version   common.VersionResult
	gallery   *gallery.Store
	scroll    *scroll.Manager
	queue     *loadqueue.Queue
	launches  *launch.Store
	producer  *launch.Producer
	crash     *crashlog.Logger
	preloader *preload.Preloader
}

func (rs *RPCServer) register() {
	rs.methods = handler.Map{
		string(common.METHOD_VERSION):        handler.New(rs.systemGetVersion),
		string(common.METHOD_PEOPLE):         handler.New(rs.galleryPeople),
		string(common.METHOD_PERSON):         handler.New(rs.galleryPerson),
		string(common.METHOD_PHOTOS):         handler.New(rs.galleryPhotos),
		string(common.METHOD_PERSON_IMAGE):   handler.New(rs.galleryPersonImage),
		string(common.METHOD_VALIDATE):       handler.New(rs.galleryValidate),
		string(common.METHOD_LAUNCH_NEXT):    handler.New(rs.launchNext),
		string(common.METHOD_LAUNCH_SET):     handler.New(rs.launchSet),
		string(common.METHOD_SCROLL_EVENT):   handler.New(rs.scrollEvent),
		string(common.METHOD_SCROLL_STATE):   handler.New(rs.scrollState),
		string(common.METHOD_QUEUE_STATS):    handler.New(rs.queueStats),
		string(common.METHOD_PRELOAD):        handler.New(rs.preloadRun),
		string(common.METHOD_CRASHLOG_LIST):  handler.New(rs.crashlogList),
		string(common.METHOD_CRASHLOG_CLEAR): handler.New(rs.crashlogClear),
	}
	rs.bridge = jhttp.NewBridge(rs.methods, nil)
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	v := rs.version
	return &v, nil
}

func (rs *RPCServer) galleryPeople(_ context.Context, p *common.CategoryParams) (*common.PeopleResult, error) {
	if err := checkCategory(p.Category); err != nil {
		return nil, err
	}
	return &common.PeopleResult{People: rs.gallery.People(p.Category)}, nil
}

// galleryPerson returns a person with their display image and the group
// photos they appear in.
func (rs *RPCServer) galleryPerson(_ context.Context, p *common.IDParams) (*common.PersonResult, error) {
	person, err := rs.person(p)
	if err != nil {
		return nil, err
	}
	photos := rs.gallery.GroupPhotos("")
	res := &common.PersonResult{
		Person: person,
		Image:  gallery.PersonImage(person, photos),
		Photos: []gallery.GroupPhoto{},
	}
	for _, ph := range photos {
		if _, ok := person.LocationIn(ph.ID); ok {
			res.Photos = append(res.Photos, ph)
		}
	}
	return res, nil
}

func (rs *RPCServer) galleryPhotos(_ context.Context, p *common.CategoryParams) (*common.PhotosResult, error) {
	if err := checkCategory(p.Category); err != nil {
		return nil, err
	}
	people := rs.gallery.People("")
	res := &common.PhotosResult{Photos: []common.PhotoItem{}}
	for _, ph := range rs.gallery.GroupPhotos(p.Category) {
		item := common.PhotoItem{GroupPhoto: ph, People: []string{}}
		for _, person := range gallery.PeopleInPhoto(people, ph.ID) {
			item.People = append(item.People, person.ID)
		}
		res.Photos = append(res.Photos, item)
	}
	return res, nil
}

func (rs *RPCServer) galleryPersonImage(_ context.Context, p *common.IDParams) (*gallery.ImageInfo, error) {
	person, err := rs.person(p)
	if err != nil {
		return nil, err
	}
	info := gallery.PersonImage(person, rs.gallery.GroupPhotos(""))
	return &info, nil
}

func (rs *RPCServer) galleryValidate(_ context.Context) (*gallery.Report, error) {
	rep := gallery.Validate(rs.gallery.Data())
	if rep.Issues == nil {
		rep.Issues = []gallery.Issue{}
	}
	return &rep, nil
}

func (rs *RPCServer) person(p *common.IDParams) (gallery.Person, error) {
	if p.ID == "" {
		return gallery.Person{}, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: id"}
	}
	person, err := rs.gallery.PersonByID(p.ID)
	if errors.Is(err, gallery.ErrPersonNotFound) {
		return gallery.Person{}, &jrpc2.Error{Code: codeNotFound, Message: "person not found: " + p.ID}
	}
	return person, err
}

func checkCategory(c gallery.Category) error {
	if c != "" && !c.Valid() {
		return &jrpc2.Error{Code: codeInvalidParams, Message: "invalid category: " + string(c)}
	}
	return nil
}

func (rs *RPCServer) launchNext(_ context.Context) (*common.LaunchResult, error) {
	return rs.launchResult(), nil
}

// launchSet publishes the given launch time. Without a timestamp the
// producer launches now and schedules the following launch.
func (rs *RPCServer) launchSet(_ context.Context, p *common.LaunchParams) (*common.LaunchResult, error) {
	switch {
	case p.Timestamp < 0:
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "timestamp must be positive"}
	case p.Timestamp > 0:
		rs.launches.SetNext(p.Timestamp)
	case rs.producer == nil:
		return nil, &jrpc2.Error{Code: codeUnavailable, Message: "launch scheduling is disabled"}
	default:
		rs.producer.Trigger()
	}
	return rs.launchResult(), nil
}

func (rs *RPCServer) launchResult() *common.LaunchResult {
	ts, ok := rs.launches.Next()
	if !ok {
		return &common.LaunchResult{}
	}
	remaining := time.UnixMilli(ts).Sub(rs.clock.Now())
	return &common.LaunchResult{
		Scheduled: true,
		Timestamp: ts,
		Countdown: launch.FormatCountdown(remaining),
	}
}

func (rs *RPCServer) scrollEvent(_ context.Context) (*common.ScrollResult, error) {
	rs.scroll.OnScroll()
	return &common.ScrollResult{Scrolling: rs.scroll.IsScrolling()}, nil
}

func (rs *RPCServer) scrollState(_ context.Context) (*common.ScrollResult, error) {
	return &common.ScrollResult{Scrolling: rs.scroll.IsScrolling()}, nil
}

func (rs *RPCServer) queueStats(_ context.Context) (*common.QueueResult, error) {
	return &common.QueueResult{
		Stats:     rs.queue.Stats(),
		Scrolling: rs.scroll.IsScrolling(),
	}, nil
}

// preloadRun warms images through the daemon's load queue and waits for
// the result.
func (rs *RPCServer) preloadRun(ctx context.Context, p *common.PreloadParams) (*common.PreloadResult, error) {
	srcs := p.Sources
	if len(srcs) == 0 {
		srcs = preload.Sources(rs.gallery.Data())
	}
	res, err := rs.preloader.Run(ctx, srcs, nil)
	if err != nil {
		return nil, err
	}
	return &common.PreloadResult{Result: res, Total: res.Loaded + res.Failed + res.Rejected}, nil
}

func (rs *RPCServer) crashlogList(_ context.Context) (*common.CrashLogResult, error) {
	entries := rs.crash.Entries()
	if entries == nil {
		entries = []crashlog.Entry{}
	}
	return &common.CrashLogResult{Enabled: rs.crash.Enabled(), Entries: entries}, nil
}

func (rs *RPCServer) crashlogClear(_ context.Context) (*common.EmptyResult, error) {
	rs.crash.Clear()
	return &common.EmptyResult{}, nil
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}
