package checkpoint

// Package checkpoint persists the poller's high-water mark between runs.
//
// The checkpoint is only advanced after a run delivered everything it
// intended to, so a failed run replays its window on the next attempt
// (duplicates over drops).
