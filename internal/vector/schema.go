package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Nerdward/my-llm-twin/internal/models"
)

// ErrAlreadyExists is returned by a Schema when another process created the
// collection between the existence check and the create call.
var ErrAlreadyExists = errors.New("collection already exists")

// Collection describes one sink collection. Cleaned collections hold no
// vectors; vector collections hold fixed-size vectors compared by cosine distance.
type Collection struct {
	Name      string
	Category  models.Category
	Vectors   bool
	Dimension int
}

// Collections lists the six collections of the sink, cleaned first.
func Collections(dim int) []Collection {
	var out []Collection
	for _, c := range models.Categories() {
		out = append(out, Collection{Name: c.CleanedCollection(), Category: c})
	}
	for _, c := range models.Categories() {
		out = append(out, Collection{Name: c.VectorCollection(), Category: c, Vectors: true, Dimension: dim})
	}
	return out
}

// Schema is the backend side of collection bootstrap.
type Schema interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, c Collection) error
}

// Reconciler is implemented by schemas that can repair an existing
// collection: missing properties or a missing vector index.
type Reconciler interface {
	Reconcile(ctx context.Context, c Collection) error
}

// EnsureCollections creates every missing collection and returns how many it
// created. Against a complete set it creates nothing.
func EnsureCollections(ctx context.Context, s Schema, dim int) (int, error) {
	created := 0
	for _, c := range Collections(dim) {
		exists, err := s.CollectionExists(ctx, c.Name)
		if err != nil {
			return created, fmt.Errorf("check collection %s: %w", c.Name, err)
		}

		if exists {
			if r, ok := s.(Reconciler); ok {
				if err := r.Reconcile(ctx, c); err != nil {
					return created, fmt.Errorf("reconcile collection %s: %w", c.Name, err)
				}
			}
			continue
		}

		if err := s.CreateCollection(ctx, c); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				slog.InfoContext(ctx, "collection created concurrently", "collection", c.Name)
				continue
			}
			return created, fmt.Errorf("create collection %s: %w", c.Name, err)
		}
		created++
		slog.InfoContext(ctx, "collection created", "collection", c.Name, "vectors", c.Vectors, "dimension", c.Dimension)
	}
	return created, nil
}

// EnsureCollectionsWithRetry retries bootstrap while the backend comes up.
func EnsureCollectionsWithRetry(ctx context.Context, s Schema, dim, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if _, err = EnsureCollections(ctx, s, dim); err == nil {
			return nil
		}
		slog.WarnContext(ctx, "collection bootstrap failed, retrying", "attempt", i+1, "error", err)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
