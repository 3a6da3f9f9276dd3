package vector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

// MockSchemaClient keeps classes in memory.
type MockSchemaClient struct {
	mu              sync.Mutex
	Classes         map[string]*models.Class
	Creates         int
	AddedProperties []*models.Property
	ExistsErr       error
	CreateErr       error
}

func newMockSchemaClient() *MockSchemaClient {
	return &MockSchemaClient{Classes: map[string]*models.Class{}}
}

func (m *MockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.Classes[className]
	return ok, nil
}

func (m *MockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Creates++
	m.Classes[class.Class] = class
	return nil
}

func (m *MockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Classes[className], nil
}

func (m *MockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddedProperties = append(m.AddedProperties, property)
	return nil
}

func TestCollections(t *testing.T) {
	cols := Collections(384)
	require.Len(t, cols, 6)

	names := map[string]Collection{}
	for _, c := range cols {
		names[c.Name] = c
	}
	for _, n := range []string{"cleaned_posts", "cleaned_articles", "cleaned_repositories"} {
		assert.False(t, names[n].Vectors, n)
	}
	for _, n := range []string{"vector_posts", "vector_articles", "vector_repositories"} {
		assert.True(t, names[n].Vectors, n)
		assert.Equal(t, 384, names[n].Dimension)
	}
}

func TestEnsureCollections_CreatesAllThenNothing(t *testing.T) {
	client := newMockSchemaClient()
	schema := NewWeaviateSchema(client)
	ctx := context.Background()

	created, err := EnsureCollections(ctx, schema, 768)
	require.NoError(t, err)
	assert.Equal(t, 6, created)
	assert.Equal(t, 6, client.Creates)

	created, err = EnsureCollections(ctx, schema, 768)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 6, client.Creates)
	assert.Empty(t, client.AddedProperties)
}

func TestEnsureCollections_ClassShapes(t *testing.T) {
	client := newMockSchemaClient()
	_, err := EnsureCollections(context.Background(), NewWeaviateSchema(client), 768)
	require.NoError(t, err)

	cleaned := client.Classes["Cleaned_posts"]
	require.NotNil(t, cleaned)
	assert.Equal(t, "none", cleaned.Vectorizer)
	assert.Equal(t, map[string]interface{}{"skip": true}, cleaned.VectorIndexConfig)

	vec := client.Classes["Vector_repositories"]
	require.NotNil(t, vec)
	assert.Equal(t, map[string]interface{}{"distance": "cosine"}, vec.VectorIndexConfig)

	props := map[string]*models.Property{}
	for _, p := range vec.Properties {
		props[p.Name] = p
	}
	for _, name := range []string{"type", "entry_id", "author_id", "point_id", "chunk_id", "content", "name", "link"} {
		assert.Contains(t, props, name)
	}
	assert.Equal(t, "field", props["author_id"].Tokenization)
}

func TestEnsureCollections_ToleratesConcurrentCreate(t *testing.T) {
	client := newMockSchemaClient()
	client.CreateErr = ErrAlreadyExists

	created, err := EnsureCollections(context.Background(), NewWeaviateSchema(client), 768)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestEnsureCollections_PropagatesErrors(t *testing.T) {
	client := newMockSchemaClient()
	client.CreateErr = errors.New("forbidden")

	_, err := EnsureCollections(context.Background(), NewWeaviateSchema(client), 768)
	assert.ErrorContains(t, err, "create collection cleaned_posts")

	client = newMockSchemaClient()
	client.ExistsErr = errors.New("connection refused")
	_, err = EnsureCollections(context.Background(), NewWeaviateSchema(client), 768)
	assert.ErrorContains(t, err, "connection refused")
}

func TestEnsureCollections_ReconcilesMissingProperties(t *testing.T) {
	client := newMockSchemaClient()
	for _, c := range Collections(768) {
		class := ClassFor(c)
		class.Properties = class.Properties[:2]
		client.Classes[class.Class] = class
	}

	created, err := EnsureCollections(context.Background(), NewWeaviateSchema(client), 768)
	require.NoError(t, err)
	assert.Zero(t, created)

	added := map[string]bool{}
	for _, p := range client.AddedProperties {
		added[p.Name] = true
	}
	assert.True(t, added["author_id"])
	assert.True(t, added["cleaned_content"])
	assert.False(t, added["type"])
}

func TestEnsureCollectionsWithRetry(t *testing.T) {
	client := newMockSchemaClient()
	client.ExistsErr = errors.New("not ready")

	err := EnsureCollectionsWithRetry(context.Background(), NewWeaviateSchema(client), 768, 2, time.Millisecond)
	assert.Error(t, err)

	client.ExistsErr = nil
	err = EnsureCollectionsWithRetry(context.Background(), NewWeaviateSchema(client), 768, 2, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 6, client.Creates)
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "Cleaned_posts", ClassName("cleaned_posts"))
	assert.Equal(t, "Vector_articles", ClassName("vector_articles"))
	assert.Equal(t, "", ClassName(""))
}
