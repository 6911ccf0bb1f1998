// Package progress derives construction progress from elapsed calendar
// time. A project owns floors and floors own tasks; every node is either
// computed (Auto) or pinned (Manual). Recompute walks the tree in order:
// lifecycle check, elapsed days, floor waterfall, even task split.
//
// Everything here is pure: callers pass the current time and persist the
// mutated project themselves.
package progress
