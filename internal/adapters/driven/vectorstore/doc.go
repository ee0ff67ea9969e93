// Package vectorstore holds the similarity helpers shared by the local
// vector store backends. Each subpackage implements driven.VectorStore for
// one backend.
package vectorstore
