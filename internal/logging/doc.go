// Package logging provides the slog-based logging stack shared by every
// packmill component: a human-oriented console handler, a machine-oriented
// JSON handler, standardized attribute helpers, and context propagation for
// operation-scoped fields.
package logging
