package weaviate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

type mockSchemaClient struct {
	createdClass    *models.Class
	existingClass   *models.Class
	addedProperties []*models.Property
}

func (m *mockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	return m.existingClass != nil, nil
}

func (m *mockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	m.createdClass = class
	return nil
}

func (m *mockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return m.existingClass, nil
}

func (m *mockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	m.addedProperties = append(m.addedProperties, property)
	return nil
}

func TestEnsureSchema_CreatesClass(t *testing.T) {
	client := &mockSchemaClient{}

	require.NoError(t, EnsureSchema(context.Background(), client, "Company__acme", 768))

	require.NotNil(t, client.createdClass)
	assert.Equal(t, "Company__acme", client.createdClass.Class)
	assert.Equal(t, "none", client.createdClass.Vectorizer)
	assert.Equal(t, fmt.Sprintf(descriptionFormat, 768), client.createdClass.Description)

	byName := map[string]*models.Property{}
	for _, p := range client.createdClass.Properties {
		byName[p.Name] = p
	}
	require.Contains(t, byName, "docId")
	assert.Equal(t, "field", byName["docId"].Tokenization)
	assert.Equal(t, []string{"int"}, byName["sequenceIndex"].DataType)
}

func TestEnsureSchema_AddsMissingProperties(t *testing.T) {
	client := &mockSchemaClient{existingClass: &models.Class{
		Class:       "Filings",
		Description: fmt.Sprintf(descriptionFormat, 4),
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "chunkId", DataType: []string{"text"}},
		},
	}}

	require.NoError(t, EnsureSchema(context.Background(), client, "Filings", 4))

	assert.Nil(t, client.createdClass)
	assert.Len(t, client.addedProperties, len(chunkProperties())-2)
	for _, p := range client.addedProperties {
		assert.NotEqual(t, "text", p.Name)
		assert.NotEqual(t, "chunkId", p.Name)
	}
}

func TestEnsureSchema_DimensionMismatch(t *testing.T) {
	client := &mockSchemaClient{existingClass: &models.Class{
		Class:       "Filings",
		Description: fmt.Sprintf(descriptionFormat, 4),
	}}

	err := EnsureSchema(context.Background(), client, "Filings", 8)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestEnsureSchema_ForeignDescriptionIsAccepted(t *testing.T) {
	client := &mockSchemaClient{existingClass: &models.Class{
		Class:       "Filings",
		Description: "created by hand",
	}}

	assert.NoError(t, EnsureSchema(context.Background(), client, "Filings", 8))
}

func TestClassName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"company__acme", "Company__acme"},
		{"filings", "Filings"},
		{"my-index.v2", "My_index_v2"},
		{"2024", "C_2024"},
		{"", "Filings"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassName(tt.in))
		})
	}
}
