package cmd

import (
	"bytes"
	"image"
	"image/png"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/recognition/internal/crashlog"
	"github.com/warpdl/recognition/internal/server"
	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/launch"
)

const testSecret = "cmd-test-secret"

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const testPeople = `{
  "people": [
    {"id": "ada", "name": "Ada", "description": "Flight software", "category": "staff",
     "individualPhoto": null,
     "photoLocations": [{"photoId": "team", "x": 40, "y": 25, "width": 20, "height": 50}]},
    {"id": "bo", "name": "Bo", "description": "", "category": "interns",
     "individualPhoto": "/images/bo.jpg", "photoLocations": []},
    {"id": "cy", "name": "Cy", "description": "", "category": "staff",
     "individualPhoto": null, "photoLocations": [], "hidden": true}
  ],
  "groupPhotos": [
    {"id": "team", "name": "Team", "imagePath": "/images/team.png", "category": "staff"}
  ]
}`

type testDaemon struct {
	srv   *server.Server
	clock *clock.Manual
	crash *crashlog.Logger
	url   string
}

// newTestFs returns a site with people.json and a single group photo.
// bo's individual photo is deliberately missing.
func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/site/data/people.json", []byte(testPeople), 0644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/site/public/images/team.png", buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return fs
}

// useFs points local commands at fs for the duration of the test.
func useFs(t *testing.T, fs afero.Fs) {
	t.Helper()
	old := newFs
	newFs = func() afero.Fs { return fs }
	t.Cleanup(func() { newFs = old })
}

// startTestDaemon serves a daemon on a manual clock with launches started.
func startTestDaemon(t *testing.T) *testDaemon {
	t.Helper()
	clk := clock.NewManual(testEpoch)
	crash, err := crashlog.New(&crashlog.Opts{Clock: clk})
	if err != nil {
		t.Fatal(err)
	}
	lc := launch.DefaultConfig()
	lc.Randomize = false
	s, err := server.New(&server.Config{
		Secret:    testSecret,
		DataFile:  "/site/data/people.json",
		PublicDir: "/site/public",
		Fs:        newTestFs(t),
		Version:   "1.0.0",
		Launch:    lc,
		CrashLog:  crash,
		Clock:     clk,
	}, nil)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	s.StartLaunches()
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hs.Close()
		s.Shutdown()
	})
	return &testDaemon{srv: s, clock: clk, crash: crash, url: hs.URL}
}

// runApp runs the CLI with args and returns everything it printed.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp(BuildArgs{Version: "1.0.0", BuildType: "test", Date: "today", Commit: "abc"})
	var buf bytes.Buffer
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{"recognition"}, args...))
	return buf.String(), err
}

// daemonArgs prefixes args after the command name with the daemon's
// address and secret.
func (d *testDaemon) args(command string, args ...string) []string {
	out := []string{command, "--addr", d.url, "--secret", testSecret}
	return append(out, args...)
}

// assertContains checks if output contains the expected substring.
func assertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// assertNotContains checks if output does NOT contain the specified substring.
func assertNotContains(t *testing.T, output, notExpected string) {
	t.Helper()
	if strings.Contains(output, notExpected) {
		t.Errorf("expected output to NOT contain %q, got:\n%s", notExpected, output)
	}
}

// assertErrorFormat checks that error output follows the standard format:
// recognition: cmd[action]: msg
func assertErrorFormat(t *testing.T, output, cmd, action string) {
	t.Helper()
	pattern := "recognition: " + cmd + "[" + action + "]:"
	if !strings.Contains(output, pattern) {
		t.Errorf("expected error format %q, got:\n%s", pattern, output)
	}
}
