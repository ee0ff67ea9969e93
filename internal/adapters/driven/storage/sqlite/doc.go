// Package sqlite stores chunk files, index states and optionally vectors in
// a single SQLite database, using the pure Go modernc.org/sqlite driver so
// the binary builds without cgo.
//
// The schema lives in the migrations subpackage and is applied on open.
// The vector store scores every candidate row in memory, which suits the
// few thousand chunks of a filings corpus; larger corpora should use the
// qdrant or weaviate backend.
package sqlite
