package gallerycli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/spf13/afero"
	"github.com/warpdl/recognition/internal/server"
	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/launch"
)

const testSecret = "client-test-secret"

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const testPeople = `{
  "people": [
    {"id": "ada", "name": "Ada", "description": "", "category": "staff", "individualPhoto": null,
     "photoLocations": [{"photoId": "team", "x": 0, "y": 0, "width": 50, "height": 50}]},
    {"id": "bo", "name": "Bo", "description": "", "category": "interns", "individualPhoto": null, "photoLocations": []}
  ],
  "groupPhotos": [
    {"id": "team", "name": "Team", "imagePath": "/images/team.png", "category": "staff"}
  ]
}`

// startDaemon serves a real daemon over httptest on a manual clock.
func startDaemon(t *testing.T) (*server.Server, *clock.Manual, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/people.json", []byte(testPeople), 0644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatal(err)
	}
	_ = afero.WriteFile(fs, "/public/images/team.png", buf.Bytes(), 0644)

	clk := clock.NewManual(testEpoch)
	cfg := launch.DefaultConfig()
	cfg.Randomize = false
	s, err := server.New(&server.Config{
		Secret:    testSecret,
		DataFile:  "/data/people.json",
		PublicDir: "/public",
		Fs:        fs,
		Version:   "9.9.9",
		Launch:    cfg,
		Clock:     clk,
	}, nil)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hs.Close()
		s.Shutdown()
	})
	return s, clk, hs.URL
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, testSecret)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewClient_RequiresSecret(t *testing.T) {
	if _, err := NewClient("127.0.0.1:7450", ""); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:7450":         "http://127.0.0.1:7450",
		"http://localhost:7450/": "http://localhost:7450",
		"https://example.com":    "https://example.com",
	}
	for in, want := range tests {
		if got := baseURL(in); got != want {
			t.Errorf("baseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClient_Methods(t *testing.T) {
	_, clk, url := startDaemon(t)
	c := newTestClient(t, url)
	ctx := context.Background()

	v, err := c.Version(ctx)
	if err != nil || v.Version != "9.9.9" {
		t.Fatalf("Version: %+v, %v", v, err)
	}

	people, err := c.People(ctx, "")
	if err != nil || len(people.People) != 2 {
		t.Fatalf("People: %+v, %v", people, err)
	}
	staff, err := c.People(ctx, "staff")
	if err != nil || len(staff.People) != 1 {
		t.Fatalf("People(staff): %+v, %v", staff, err)
	}

	p, err := c.Person(ctx, "ada")
	if err != nil || p.Person.Name != "Ada" || p.Image.BackgroundSize != "200% 200%" {
		t.Fatalf("Person: %+v, %v", p, err)
	}
	img, err := c.PersonImage(ctx, "bo")
	if err != nil || img.Placeholder != "B" {
		t.Fatalf("PersonImage: %+v, %v", img, err)
	}

	photos, err := c.Photos(ctx, "")
	if err != nil || len(photos.Photos) != 1 || photos.Photos[0].Width != 10 {
		t.Fatalf("Photos: %+v, %v", photos, err)
	}

	rep, err := c.Validate(ctx)
	if err != nil || !rep.OK() {
		t.Fatalf("Validate: %+v, %v", rep, err)
	}

	next, err := c.NextLaunch(ctx)
	if err != nil || next.Scheduled {
		t.Fatalf("expected no launch before start, got %+v, %v", next, err)
	}
	set, err := c.SetLaunch(ctx, testEpoch.Add(time.Minute).UnixMilli())
	if err != nil || set.Countdown != "T - 01:00" {
		t.Fatalf("SetLaunch: %+v, %v", set, err)
	}

	st, err := c.Scroll(ctx)
	if err != nil || !st.Scrolling {
		t.Fatalf("Scroll: %+v, %v", st, err)
	}
	clk.Advance(time.Second)
	st, err = c.ScrollState(ctx)
	if err != nil || st.Scrolling {
		t.Fatalf("ScrollState: %+v, %v", st, err)
	}

	pre, err := c.Preload(ctx, nil)
	if err != nil || pre.Loaded != 1 || pre.Total != 1 {
		t.Fatalf("Preload: %+v, %v", pre, err)
	}
	q, err := c.QueueStats(ctx)
	if err != nil || q.Completed != 1 || q.MaxConcurrent != 3 {
		t.Fatalf("QueueStats: %+v, %v", q, err)
	}

	logs, err := c.CrashLogs(ctx)
	if err != nil || logs.Enabled || len(logs.Entries) != 0 {
		t.Fatalf("CrashLogs: %+v, %v", logs, err)
	}
	if err := c.ClearCrashLogs(ctx); err != nil {
		t.Fatalf("ClearCrashLogs: %v", err)
	}
}

func TestClient_RPCError(t *testing.T) {
	_, _, url := startDaemon(t)
	c := newTestClient(t, url)
	_, err := c.Person(context.Background(), "nobody")
	var rerr *jrpc2.Error
	if !errors.As(err, &rerr) || rerr.Code != -32001 {
		t.Fatalf("expected -32001 error, got %v", err)
	}
}

func TestClient_WrongSecret(t *testing.T) {
	_, _, url := startDaemon(t)
	c, err := NewClient(url, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Version(context.Background()); err == nil {
		t.Fatal("expected error with wrong secret")
	}
}

func TestWatch(t *testing.T) {
	s, clk, url := startDaemon(t)
	c := newTestClient(t, url)

	launches := make(chan int64, 4)
	settled := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, Handlers{
			OnLaunch:        func(ts int64) { launches <- ts },
			OnScrollSettled: func() { settled <- struct{}{} },
		})
	}()

	waitForClients(t, url)
	s.StartLaunches()
	first := testEpoch.Add(5 * time.Second).UnixMilli()
	if ts := nextLaunch(t, launches); ts != first {
		t.Fatalf("expected first launch %d, got %d", first, ts)
	}

	// The first launch may arrive twice: once as the initial state and
	// once as a push.
	clk.Advance(5 * time.Second)
	want := testEpoch.Add(65 * time.Second).UnixMilli()
	for {
		ts := nextLaunch(t, launches)
		if ts == first {
			continue
		}
		if ts != want {
			t.Fatalf("expected next launch %d, got %d", want, ts)
		}
		break
	}

	if _, err := c.Scroll(context.Background()); err != nil {
		t.Fatal(err)
	}
	clk.Advance(300 * time.Millisecond)
	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("no scroll.settled pushed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func nextLaunch(t *testing.T, ch <-chan int64) int64 {
	t.Helper()
	select {
	case ts := <-ch:
		return ts
	case <-time.After(5 * time.Second):
		t.Fatal("no launch received")
		return 0
	}
}

func waitForClients(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/healthz")
		if err == nil {
			var body struct {
				Clients int `json:"clients"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if body.Clients > 0 {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher never connected")
}
