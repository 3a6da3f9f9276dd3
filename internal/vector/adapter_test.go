package vector_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Nerdward/my-llm-twin/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

func newAdapter(t *testing.T, handler http.HandlerFunc) *vector.WeaviateClientAdapter {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	require.NoError(t, err)
	return vector.NewWeaviateClientAdapter(client)
}

func TestWeaviateClientAdapter_ClassExists(t *testing.T) {
	t.Run("Exists", func(t *testing.T) {
		adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/schema/Cleaned_posts", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(&models.Class{Class: "Cleaned_posts"})
		})

		exists, err := adapter.ClassExists(context.Background(), "Cleaned_posts")
		assert.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("NotFound", func(t *testing.T) {
		adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		exists, err := adapter.ClassExists(context.Background(), "Cleaned_posts")
		assert.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestWeaviateClientAdapter_CreateClass(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/schema", r.URL.Path)
			assert.Equal(t, "POST", r.Method)
			var class models.Class
			json.NewDecoder(r.Body).Decode(&class)
			assert.Equal(t, "Vector_posts", class.Class)
			w.WriteHeader(http.StatusOK)
		})

		err := adapter.CreateClass(context.Background(), vector.ClassFor(vector.Collection{Name: "vector_posts", Category: "posts", Vectors: true}))
		assert.NoError(t, err)
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":[{"message":"class name \"Vector_posts\" already exists"}]}`))
		})

		err := adapter.CreateClass(context.Background(), &models.Class{Class: "Vector_posts"})
		assert.True(t, errors.Is(err, vector.ErrAlreadyExists))
	})

	t.Run("OtherFailure", func(t *testing.T) {
		adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		err := adapter.CreateClass(context.Background(), &models.Class{Class: "Vector_posts"})
		assert.Error(t, err)
		assert.False(t, errors.Is(err, vector.ErrAlreadyExists))
	})
}

func TestEnsureCollections_OverHTTP(t *testing.T) {
	created := map[string]bool{}
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/schema/"):
			name := strings.TrimPrefix(r.URL.Path, "/v1/schema/")
			if created[name] {
				json.NewEncoder(w).Encode(&models.Class{Class: name})
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/schema":
			var class models.Class
			json.NewDecoder(r.Body).Decode(&class)
			created[class.Class] = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	schema := vector.NewWeaviateSchema(adapter)
	n, err := vector.EnsureCollections(context.Background(), schema, 768)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Len(t, created, 6)
}
