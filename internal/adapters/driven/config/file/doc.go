// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.filings.
//
// Adapters:
//   - LoadConfig: typed TOML configuration with environment secrets
//   - ConfigStore: single-key TOML edits for 'filings settings set'
//   - PromptStore: user-editable prompt templates
package file
