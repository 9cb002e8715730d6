// Package launch keeps the single source of truth for when the next
// decorative rocket launch happens.
//
// A Store holds the next launch timestamp (Unix milliseconds) and fans it
// out to any number of independent countdown displays. A Producer decides
// the timing: an initial delay, then a base interval with optional jitter,
// or the ticks of a cron expression, and publishes each decision to the
// Store.
package launch
