package weaviate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/weaviate/weaviate/entities/models"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// SchemaClient is the subset of the Weaviate schema API the store needs.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// descriptionFormat records the vector size on the class, since classes
// without a vectorizer carry no dimension of their own.
const descriptionFormat = "Filing chunks with %d-dimensional vectors"

// chunkProperties are the properties stored on every object. Keyword
// fields use field tokenization so Equal filters match whole values.
func chunkProperties() []*models.Property {
	keyword := func(name string) *models.Property {
		return &models.Property{Name: name, DataType: []string{"text"}, Tokenization: "field"}
	}
	return []*models.Property{
		{Name: "text", DataType: []string{"text"}},
		keyword("chunkId"),
		keyword("docId"),
		keyword("company"),
		keyword("fiscalPeriod"),
		keyword("docType"),
		keyword("contentHash"),
		keyword("span"),
		{Name: "sequenceIndex", DataType: []string{"int"}},
		{Name: "tokenCount", DataType: []string{"int"}},
	}
}

// EnsureSchema creates className when missing and adds any properties an
// older class lacks. An existing class of another size is rejected.
func EnsureSchema(ctx context.Context, client SchemaClient, className string, dimensions int) error {
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return fmt.Errorf("check class: %w", err)
	}

	properties := chunkProperties()
	if !exists {
		class := &models.Class{
			Class:       className,
			Description: fmt.Sprintf(descriptionFormat, dimensions),
			Vectorizer:  "none",
			VectorIndexConfig: map[string]any{
				"distance": "cosine",
			},
			Properties: properties,
		}
		if err := client.CreateClass(ctx, class); err != nil {
			return fmt.Errorf("create class: %w", err)
		}
		return nil
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return fmt.Errorf("get class: %w", err)
	}
	var existing int
	if _, err := fmt.Sscanf(class.Description, descriptionFormat, &existing); err == nil && existing != dimensions {
		return fmt.Errorf("%w: class %s has %d dimensions, got %d", domain.ErrConfiguration, className, existing, dimensions)
	}

	have := make(map[string]bool, len(class.Properties))
	for _, p := range class.Properties {
		have[p.Name] = true
	}
	for _, p := range properties {
		if have[p.Name] {
			continue
		}
		if err := client.AddProperty(ctx, className, p); err != nil {
			return fmt.Errorf("add property %s: %w", p.Name, err)
		}
	}
	return nil
}

// ClassName turns a collection name into a valid Weaviate class name:
// an upper-case first letter followed by letters, digits and underscores.
func ClassName(collection string) string {
	var b strings.Builder
	for i, r := range collection {
		switch {
		case i == 0 && r < unicode.MaxASCII && unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
		case i == 0:
			b.WriteString("C_")
			if r < unicode.MaxASCII && unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "Filings"
	}
	return b.String()
}
