// Package cache persists translations in a SQLite file keyed by a content
// fingerprint, so later runs reuse earlier results and interrupted runs can
// resume without repeating external calls.
package cache
