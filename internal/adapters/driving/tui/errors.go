package tui

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("tui: answer service is required")

// ErrMissingRegistry is returned when the document registry is not provided.
var ErrMissingRegistry = errors.New("tui: document registry is required")
