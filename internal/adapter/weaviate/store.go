package weaviate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wm "github.com/weaviate/weaviate/entities/models"

	"github.com/Nerdward/my-llm-twin/internal/models"
	"github.com/Nerdward/my-llm-twin/internal/vector"
)

// ErrNotFound is returned by GetPoint for an unknown id.
var ErrNotFound = errors.New("point not found")

// pointNamespace derives stable object UUIDs from pipeline point ids.
var pointNamespace = uuid.MustParse("6f1f4a3e-2c59-4d1e-9f0b-7a7b3c1d2e5f")

// Point is a stored sink entry read back by id.
type Point struct {
	ID      string
	Payload models.Payload
	Vector  []float32
}

// Store writes pipeline records into the six sink collections.
type Store struct {
	client    *weaviate.Client
	dimension int
	logger    *slog.Logger
}

func NewStore(client *weaviate.Client, dimension int) *Store {
	return &Store{
		client:    client,
		dimension: dimension,
		logger:    slog.Default().With("component", "weaviate-sink"),
	}
}

// PointUUID maps a point id onto the Weaviate object id. Writing the same
// point twice targets the same object, so upserts are last-writer-wins.
func PointUUID(pointID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(pointNamespace, []byte(pointID)).String())
}

// UpsertCleaned writes cleaned documents of one category in a single batch call.
func (s *Store) UpsertCleaned(ctx context.Context, records []models.CleanedRecord) error {
	if len(records) == 0 {
		return nil
	}
	category, err := batchCategory(records)
	if err != nil {
		return err
	}

	collection := category.CleanedCollection()
	objs := make([]*wm.Object, 0, len(records))
	for _, r := range records {
		objs = append(objs, &wm.Object{
			Class:      vector.ClassName(collection),
			ID:         PointUUID(r.PointID()),
			Properties: properties(r.Payload(), r.PointID()),
		})
	}
	return s.write(ctx, collection, objs)
}

// UpsertEmbedded writes embedded chunks of one category in a single batch call.
func (s *Store) UpsertEmbedded(ctx context.Context, records []models.EmbeddedChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	category, err := batchCategory(records)
	if err != nil {
		return err
	}

	collection := category.VectorCollection()
	objs := make([]*wm.Object, 0, len(records))
	for _, r := range records {
		vec := r.Vector()
		if s.dimension > 0 && len(vec) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, %s expects %d",
				models.ErrMalformedRecord, r.PointID(), len(vec), collection, s.dimension)
		}
		objs = append(objs, &wm.Object{
			Class:      vector.ClassName(collection),
			ID:         PointUUID(r.PointID()),
			Properties: properties(r.Payload(), r.PointID()),
			Vector:     vec,
		})
	}
	return s.write(ctx, collection, objs)
}

func (s *Store) write(ctx context.Context, collection string, objs []*wm.Object) error {
	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		err = classify(err)
		s.logger.ErrorContext(ctx, "batch upsert failed", "collection", collection, "count", len(objs), "error", err)
		return err
	}

	var rejected []string
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				rejected = append(rejected, fmt.Sprintf("%s: %s", r.ID, e.Message))
			}
		}
	}
	if len(rejected) > 0 {
		err := fmt.Errorf("%w: %s: %d of %d objects rejected: %s",
			models.ErrWriteFailed, collection, len(rejected), len(objs), strings.Join(rejected, "; "))
		s.logger.ErrorContext(ctx, "batch upsert rejected", "collection", collection, "error", err)
		return err
	}

	s.logger.InfoContext(ctx, "batch upserted", "collection", collection, "count", len(objs))
	return nil
}

// GetPoint reads a point back by its pipeline id.
func (s *Store) GetPoint(ctx context.Context, collection, pointID string) (*Point, error) {
	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(vector.ClassName(collection)).
		WithID(PointUUID(pointID).String()).
		WithVector().
		Do(ctx)
	if err != nil {
		var wErr *fault.WeaviateClientError
		if errors.As(err, &wErr) && wErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, pointID)
		}
		return nil, classify(err)
	}
	if len(objs) == 0 || objs[0] == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, pointID)
	}

	obj := objs[0]
	payload := models.Payload{}
	if props, ok := obj.Properties.(map[string]interface{}); ok {
		for k, v := range props {
			payload[k] = v
		}
	}
	delete(payload, vector.PropPointID)

	return &Point{ID: pointID, Payload: payload, Vector: obj.Vector}, nil
}

// Count returns the number of points stored in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	class := vector.ClassName(collection)
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, classify(err)
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("%w: graphql error: %s", models.ErrWriteFailed, res.Errors[0].Message)
	}

	agg, _ := res.Data["Aggregate"].(map[string]interface{})
	groups, _ := agg[class].([]interface{})
	if len(groups) == 0 {
		return 0, nil
	}
	group, _ := groups[0].(map[string]interface{})
	meta, _ := group["meta"].(map[string]interface{})
	if count, ok := meta["count"].(float64); ok {
		return int(count), nil
	}
	return 0, nil
}

func properties(p models.Payload, pointID string) map[string]interface{} {
	props := make(map[string]interface{}, len(p)+1)
	for k, v := range p {
		props[k] = v
	}
	props[vector.PropPointID] = pointID
	return props
}

func batchCategory[T models.Record](records []T) (models.Category, error) {
	first := records[0].Category()
	for _, r := range records[1:] {
		if r.Category() != first {
			return "", fmt.Errorf("%w: %s and %s", models.ErrMixedBatch, first, r.Category())
		}
	}
	return first, nil
}

// classify separates rejected requests from transport failures.
func classify(err error) error {
	var wErr *fault.WeaviateClientError
	if errors.As(err, &wErr) && wErr.IsUnexpectedStatusCode {
		return fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
	}
	return fmt.Errorf("%w: %v", models.ErrConnectivity, err)
}
