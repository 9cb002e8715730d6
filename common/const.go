package common

// Method is a JSON-RPC method served by the daemon.
type Method string

const (
	METHOD_VERSION        Method = "system.getVersion"
	METHOD_PEOPLE         Method = "gallery.people"
	METHOD_PERSON         Method = "gallery.person"
	METHOD_PHOTOS         Method = "gallery.photos"
	METHOD_PERSON_IMAGE   Method = "gallery.personImage"
	METHOD_VALIDATE       Method = "gallery.validate"
	METHOD_LAUNCH_NEXT    Method = "launch.next"
	METHOD_LAUNCH_SET     Method = "launch.set"
	METHOD_SCROLL_EVENT   Method = "scroll.event"
	METHOD_SCROLL_STATE   Method = "scroll.state"
	METHOD_QUEUE_STATS    Method = "queue.stats"
	METHOD_PRELOAD        Method = "preload.run"
	METHOD_CRASHLOG_LIST  Method = "crashlog.list"
	METHOD_CRASHLOG_CLEAR Method = "crashlog.clear"
)

// Notification is a server push sent over the WebSocket endpoint.
type Notification string

const (
	NOTIFY_LAUNCH_SCHEDULED Notification = "launch.scheduled"
	NOTIFY_SCROLL_SETTLED   Notification = "scroll.settled"
)

const (
	// RPCPath serves JSON-RPC over HTTP POST.
	RPCPath = "/jsonrpc"
	// WSPath serves JSON-RPC with server push over WebSocket.
	WSPath = "/jsonrpc/ws"
	// ImagesPath serves the public image directory.
	ImagesPath = "/images/"
	// HealthPath answers liveness probes.
	HealthPath = "/healthz"
)
