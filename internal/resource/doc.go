// Package resource bounds the resources a retrofit run may use.
//
// A Controller combines three limits:
//
//   - a memory budget for shard working sets (non-blocking reservations),
//   - a worker semaphore capping how many shard workers run at once,
//   - an IO rate limiter for checkpoint uploads.
//
// All methods accept a nil receiver, which means "no limits".
package resource
