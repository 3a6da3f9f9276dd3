package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Nerdward/my-llm-twin/internal/models"
)

// DecodeRaw turns a queue message into the raw record of its category.
// Unknown fields are ignored; missing required fields are not.
func DecodeRaw(body []byte) (models.RawRecord, error) {
	typ, _, err := models.PeekType(body)
	if err != nil {
		return nil, err
	}
	category, err := models.ParseCategory(typ)
	if err != nil {
		return nil, err
	}

	switch category {
	case models.Posts:
		var r models.PostRaw
		if err := unmarshalRaw(body, &r); err != nil {
			return nil, err
		}
		if err := requireFields(r.Base, r.Content, nil); err != nil {
			return nil, err
		}
		return r, nil
	case models.Articles:
		var r models.ArticleRaw
		if err := unmarshalRaw(body, &r); err != nil {
			return nil, err
		}
		if err := requireFields(r.Base, r.Content, map[string]string{models.FieldLink: r.Link}); err != nil {
			return nil, err
		}
		return r, nil
	case models.Repositories:
		var r models.RepositoryRaw
		if err := unmarshalRaw(body, &r); err != nil {
			return nil, err
		}
		if err := requireFields(r.Base, r.Content, map[string]string{
			models.FieldName: r.Name,
			models.FieldLink: r.Link,
		}); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedCategory, typ)
}

func unmarshalRaw(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		if errors.Is(err, models.ErrMalformedRecord) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrMalformedRecord, err)
	}
	return nil
}

func requireFields(b models.Base, content models.Content, extra map[string]string) error {
	if strings.TrimSpace(b.EntryID) == "" {
		return fmt.Errorf("%w: missing %s", models.ErrMalformedRecord, models.FieldEntryID)
	}
	if !content.Present {
		return fmt.Errorf("%w: entry %s: missing %s", models.ErrMalformedRecord, b.EntryID, models.FieldContent)
	}
	for field, value := range extra {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: entry %s: missing %s", models.ErrMalformedRecord, b.EntryID, field)
		}
	}
	return nil
}
