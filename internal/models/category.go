// Package models holds the Category Model Set: one Raw, Cleaned, Chunk and
// EmbeddedChunk shape per content category, plus the wire envelope and the
// error taxonomy shared by every pipeline stage.
package models

import "fmt"

// Category partitions content. The set is closed.
type Category string

const (
	Posts        Category = "posts"
	Articles     Category = "articles"
	Repositories Category = "repositories"
)

func Categories() []Category {
	return []Category{Posts, Articles, Repositories}
}

func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case Posts, Articles, Repositories:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCategory, s)
	}
}

func (c Category) String() string {
	return string(c)
}

// CleanedCollection is the sink collection holding cleaned documents of c.
func (c Category) CleanedCollection() string {
	return "cleaned_" + string(c)
}

// VectorCollection is the sink collection holding embedded chunks of c.
func (c Category) VectorCollection() string {
	return "vector_" + string(c)
}
