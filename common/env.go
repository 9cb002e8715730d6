// Package common provides the constants and wire types shared by the
// recognition daemon and its client.
package common

// Environment variable names for configuration.
const (
	// ConfigDirEnv overrides the directory holding the crash log database.
	ConfigDirEnv = "RECOGNITION_CONFIG_DIR"

	// DataEnv is the path of people.json.
	DataEnv = "RECOGNITION_DATA"

	// PublicDirEnv is the directory image paths are resolved against.
	PublicDirEnv = "RECOGNITION_PUBLIC_DIR"

	// AddrEnv is the daemon's listen address, and the address the client
	// dials.
	AddrEnv = "RECOGNITION_ADDR"

	// RPCSecretEnv is the bearer token for the RPC endpoints.
	RPCSecretEnv = "RECOGNITION_RPC_SECRET"

	// LaunchCronEnv schedules launches with a cron expression instead of
	// the jittered interval.
	LaunchCronEnv = "RECOGNITION_LAUNCH_CRON"

	// CrashLogEnv disables the crash log when set to "0" or "false".
	CrashLogEnv = "RECOGNITION_CRASH_LOG"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "RECOGNITION_DEBUG"
)

// Defaults used when neither a flag nor an environment variable is set.
const (
	DefaultAddr      = "127.0.0.1:7450"
	DefaultDataFile  = "data/people.json"
	DefaultPublicDir = "public"
)
