// Package sqlite records pose history for later review.
//
// A Store owns one SQLite database whose schema is managed by embedded
// golang-migrate migrations. Each run of the pipeline is a session; every
// dispatched frame is written in a single transaction by a SessionRecorder
// registered as a pipeline sink.
package sqlite
