package gallerycli

import (
	"context"
	"net/http"
	"strings"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/warpdl/recognition/common"
)

// Handlers receives daemon push notifications. Nil fields are ignored.
type Handlers struct {
	// OnLaunch receives each newly scheduled launch in Unix milliseconds.
	OnLaunch func(ts int64)
	// OnScrollSettled fires when scrolling stops.
	OnScrollSettled func()
}

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel interface.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// Watch opens the daemon's WebSocket endpoint and delivers notifications
// to h until ctx is cancelled or the connection drops. If a launch is
// already scheduled, OnLaunch receives it first.
func (c *Client) Watch(ctx context.Context, h Handlers) error {
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + common.WSPath
	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + c.secret},
		},
	})
	if err != nil {
		return err
	}

	stopped := make(chan error, 1)
	cli := jrpc2.NewClient(&wsChannel{conn: conn, ctx: ctx}, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			switch common.Notification(req.Method()) {
			case common.NOTIFY_LAUNCH_SCHEDULED:
				var n common.LaunchNotification
				if err := req.UnmarshalParams(&n); err == nil && h.OnLaunch != nil {
					h.OnLaunch(n.Timestamp)
				}
			case common.NOTIFY_SCROLL_SETTLED:
				if h.OnScrollSettled != nil {
					h.OnScrollSettled()
				}
			}
		},
		OnStop: func(_ *jrpc2.Client, err error) {
			stopped <- err
		},
	})
	defer cli.Close()

	var next common.LaunchResult
	if err := cli.CallResult(ctx, string(common.METHOD_LAUNCH_NEXT), nil, &next); err != nil {
		return err
	}
	if next.Scheduled && h.OnLaunch != nil {
		h.OnLaunch(next.Timestamp)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-stopped:
		return err
	}
}

// WatchLaunches is Watch with only a launch handler.
func (c *Client) WatchLaunches(ctx context.Context, fn func(ts int64)) error {
	return c.Watch(ctx, Handlers{OnLaunch: fn})
}
