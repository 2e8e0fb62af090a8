// Package history persists the outcome of finished operations in SQLite so
// `packmill history` can show what ran, when, and how it ended.
package history
