// Package domain holds the types every other package agrees on: manifest
// entries, extracted text with its page and section markers, chunk files
// and their fingerprints, embedding records, and answers with citations.
//
// It imports only the standard library, so adapters and services can both
// depend on it without cycles. Sentinel errors in errors.go are the
// vocabulary adapters use to report failures the core reacts to.
package domain
