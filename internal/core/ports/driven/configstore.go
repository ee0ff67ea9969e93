package driven

// ConfigStore is an editable key-value view of the configuration file.
// Keys use dot notation matching the file's sections, e.g.
// "embedding.model" or "retrieval.top_k". Every write is persisted before
// it returns.
type ConfigStore interface {
	// Get returns the value stored under key and whether it is set.
	Get(key string) (any, bool)

	// Set stores one value.
	Set(key string, value any) error

	// SetMany stores several values with a single write.
	SetMany(values map[string]any) error

	// Delete removes key. Removing a missing key is not an error.
	Delete(key string) error

	// Keys lists the keys set in the file, sorted.
	Keys() []string

	// Path returns the backing file.
	Path() string
}
