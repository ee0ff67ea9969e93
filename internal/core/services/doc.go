// Package services holds the filings pipeline and question answering: the
// registry, extraction, embedding, the answer state machine and the
// evaluation runner. Each service talks to storage and providers only
// through the driven ports, so every one of them runs against fakes in
// tests.
package services
