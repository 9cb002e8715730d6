package cmd

import "time"

const (
	DEF_MAX_CONCURRENT = 3
	DEF_SAFETY_TIMEOUT = 5 * time.Second
	DEF_DEBOUNCE       = 300 * time.Millisecond
	DEF_TIMEOUT        = 30 * time.Second
	DEF_MEMORY_CHECK   = 5 * time.Second

	DEF_SHUTDOWN_TIMEOUT = 10 * time.Second
)

const DESCRIPTION = `
Recognition serves the people and group photographs of a recognition
page. The daemon throttles image loads while the page scrolls and
publishes a rocket launch schedule to every connected client.
`

const (
	ServeDescription = `The serve command starts the recognition daemon. It loads
people.json, reads the size of every group photo and serves
the JSON-RPC API with WebSocket push.

Example:
        recognition serve --data data/people.json --public public

`
	PeopleDescription = `The people command lists the visible people, optionally
restricted to one category.

Example:
        recognition people --category staff

`
	PersonDescription = `The person command shows one person, the image the page
would render for them and the group photos they appear in.

Example:
        recognition person ada

`
	ValidateDescription = `The validate command checks people.json for broken
references and out-of-range photo locations. It reads the
file directly when --data is given, otherwise it asks the daemon.

Example:
        recognition validate --data data/people.json

`
	LaunchDescription = `The launch command shows the next scheduled rocket launch.
With --watch it follows the schedule and prints a countdown
until interrupted.

Example:
        recognition launch --watch

`
	ScrollDescription = `The scroll command reports a scroll event to the daemon.
Image loads are refused until scrolling settles.

Example:
        recognition scroll

`
	QueueDescription = `The queue command prints the load queue counters.

Example:
        recognition queue

`
	PreloadDescription = `The preload command fetches every image referenced by
people.json through a load queue and shows a progress bar.
Images are read from --public, or fetched over HTTP when
--base-url is given. With --daemon the daemon does the work.

Example:
        recognition preload --data data/people.json --public public

`
	CrashLogDescription = `The crashlog command prints the daemon's crash log.

Example:
        recognition crashlog --export > crashlog.json

`
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`
