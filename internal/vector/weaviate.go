package vector

import (
	"context"
	"strings"

	"github.com/weaviate/weaviate/entities/models"

	dm "github.com/Nerdward/my-llm-twin/internal/models"
)

// SchemaClient is the subset of the Weaviate schema API bootstrap needs.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// WeaviateSchema maps sink collections onto Weaviate classes.
type WeaviateSchema struct {
	client SchemaClient
}

func NewWeaviateSchema(client SchemaClient) *WeaviateSchema {
	return &WeaviateSchema{client: client}
}

// ClassName turns a collection name into a valid Weaviate class name
// (cleaned_posts -> Cleaned_posts).
func ClassName(collection string) string {
	if collection == "" {
		return ""
	}
	return strings.ToUpper(collection[:1]) + collection[1:]
}

func (s *WeaviateSchema) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.client.ClassExists(ctx, ClassName(name))
}

func (s *WeaviateSchema) CreateCollection(ctx context.Context, c Collection) error {
	return s.client.CreateClass(ctx, ClassFor(c))
}

func (s *WeaviateSchema) Reconcile(ctx context.Context, c Collection) error {
	class, err := s.client.GetClass(ctx, ClassName(c.Name))
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	if class != nil {
		for _, p := range class.Properties {
			existing[p.Name] = true
		}
	}

	for _, p := range propertiesFor(c) {
		if !existing[p.Name] {
			if err := s.client.AddProperty(ctx, ClassName(c.Name), p); err != nil {
				return err
			}
		}
	}
	return nil
}

// ClassFor builds the Weaviate class of a collection.
func ClassFor(c Collection) *models.Class {
	class := &models.Class{
		Class:      ClassName(c.Name),
		Vectorizer: "none",
		Properties: propertiesFor(c),
	}
	if c.Vectors {
		class.Description = "Embedded chunks of " + string(c.Category)
		class.VectorIndexConfig = map[string]interface{}{"distance": "cosine"}
	} else {
		class.Description = "Cleaned documents of " + string(c.Category)
		class.VectorIndexConfig = map[string]interface{}{"skip": true}
	}
	return class
}

func keyword(name string) *models.Property {
	return &models.Property{Name: name, DataType: []string{"text"}, Tokenization: "field"}
}

func prose(name string) *models.Property {
	return &models.Property{Name: name, DataType: []string{"text"}}
}

func propertiesFor(c Collection) []*models.Property {
	props := []*models.Property{
		keyword(dm.FieldType),
		keyword(dm.FieldEntryID),
		keyword(dm.FieldAuthorID),
		keyword(PropPointID),
	}
	if c.Vectors {
		props = append(props, keyword(dm.FieldChunkID), prose(dm.FieldContent))
	} else {
		props = append(props, prose(dm.FieldCleanedContent))
	}

	switch c.Category {
	case dm.Posts:
		props = append(props, keyword(dm.FieldPlatform), keyword(dm.FieldImage))
	case dm.Articles:
		props = append(props, keyword(dm.FieldPlatform), keyword(dm.FieldLink))
	case dm.Repositories:
		props = append(props, keyword(dm.FieldName), keyword(dm.FieldLink))
	}
	return props
}

// PropPointID stores the pipeline identifier of a point; Weaviate object ids
// must be UUIDs and are derived from it.
const PropPointID = "point_id"
