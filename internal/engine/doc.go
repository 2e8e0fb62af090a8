// Package engine is the operation lifecycle core: it starts worker jobs,
// polls them at a bounded rate, merges per-item progress into local state
// under the terminal-immutability rule, detects completion, failure, and
// timeout, and enforces one active operation per class.
package engine
