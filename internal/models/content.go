package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentPart is one named piece of raw content, e.g. a file of a repository tree.
type ContentPart struct {
	Key   string
	Value string
}

// Content is raw document content. Crawlers store either a plain string or an
// object of named parts; object key order is preserved. Present reports that
// the field held a string or an object, so an empty repository tree is not
// mistaken for missing content.
type Content struct {
	Parts   []ContentPart
	Present bool
}

func TextContent(s string) Content {
	return Content{Parts: []ContentPart{{Value: s}}, Present: true}
}

// Text joins part values as paragraphs.
func (c Content) Text() string {
	values := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		values = append(values, p.Value)
	}
	return strings.Join(values, "\n\n")
}

func (c Content) IsEmpty() bool {
	for _, p := range c.Parts {
		if strings.TrimSpace(p.Value) != "" {
			return false
		}
	}
	return true
}

func (c *Content) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: content: %v", ErrMalformedRecord, err)
	}

	switch v := tok.(type) {
	case nil:
		*c = Content{}
		return nil
	case string:
		*c = TextContent(v)
		return nil
	case json.Delim:
		if v != '{' {
			return fmt.Errorf("%w: content must be a string or an object", ErrMalformedRecord)
		}
		parts, err := readObject(dec, "")
		if err != nil {
			return err
		}
		*c = Content{Parts: parts, Present: true}
		return nil
	default:
		return fmt.Errorf("%w: content must be a string or an object", ErrMalformedRecord)
	}
}

// readObject flattens nested objects into slash-joined keys. The opening
// brace has already been consumed.
func readObject(dec *json.Decoder, prefix string) ([]ContentPart, error) {
	var parts []ContentPart
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: content: %v", ErrMalformedRecord, err)
		}
		key, _ := tok.(string)
		if prefix != "" {
			key = prefix + "/" + key
		}

		sub, err := readValue(dec, key)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sub...)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: content: %v", ErrMalformedRecord, err)
	}
	return parts, nil
}

func readValue(dec *json.Decoder, key string) ([]ContentPart, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: content: %v", ErrMalformedRecord, err)
	}

	switch v := tok.(type) {
	case nil:
		return nil, nil
	case string:
		return []ContentPart{{Key: key, Value: v}}, nil
	case json.Number:
		return []ContentPart{{Key: key, Value: v.String()}}, nil
	case bool:
		return []ContentPart{{Key: key, Value: fmt.Sprint(v)}}, nil
	case json.Delim:
		if v == '{' {
			return readObject(dec, key)
		}
		var parts []ContentPart
		for dec.More() {
			sub, err := readValue(dec, key)
			if err != nil {
				return nil, err
			}
			parts = append(parts, sub...)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: content: %v", ErrMalformedRecord, err)
		}
		return parts, nil
	}
	return nil, fmt.Errorf("%w: content: unexpected token %v", ErrMalformedRecord, tok)
}

func (c Content) MarshalJSON() ([]byte, error) {
	if len(c.Parts) == 1 && c.Parts[0].Key == "" {
		return json.Marshal(c.Parts[0].Value)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range c.Parts {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
