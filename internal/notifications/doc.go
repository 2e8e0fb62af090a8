// Package notifications delivers operation outcome pushes via ntfy. One
// notification per finished operation, never one per poll.
package notifications
