// Package store holds the telemetry dataset in memory. It is loaded once at
// startup from a JSON file and is read-only afterwards, so a single *Store can
// be shared by every request without locking.
package store
