package models

// Payload is the metadata stored next to a sink point. It always carries
// type, entry_id and author_id.
type Payload map[string]any

const (
	FieldType           = "type"
	FieldEntryID        = "entry_id"
	FieldAuthorID       = "author_id"
	FieldCorrelationID  = "correlation_id"
	FieldCleanedContent = "cleaned_content"
	FieldChunkID        = "chunk_id"
	FieldContent        = "content"
	FieldPlatform       = "platform"
	FieldImage          = "image"
	FieldLink           = "link"
	FieldName           = "name"
)

// Record is the identity shared by every stage output.
type Record interface {
	Category() Category
	ID() string
	Author() string
}

// RawRecord is a decoded, not yet cleaned, document. Only this package
// can implement it.
type RawRecord interface {
	Record
	rawRecord()
}

type CleanedRecord interface {
	Record
	Text() string
	PointID() string
	Payload() Payload
}

type ChunkRecord interface {
	Record
	Text() string
	PointID() string
}

type EmbeddedChunkRecord interface {
	ChunkRecord
	Vector() []float32
	Payload() Payload
}

type Base struct {
	EntryID  string `json:"entry_id"`
	AuthorID string `json:"author_id"`
}

func (b Base) ID() string     { return b.EntryID }
func (b Base) Author() string { return b.AuthorID }

func (b Base) payload(c Category) Payload {
	return Payload{
		FieldType:     string(c),
		FieldEntryID:  b.EntryID,
		FieldAuthorID: b.AuthorID,
	}
}

// Raw

type PostRaw struct {
	Base
	Platform string  `json:"platform"`
	Image    string  `json:"image,omitempty"`
	Content  Content `json:"content"`
}

func (PostRaw) Category() Category { return Posts }
func (PostRaw) rawRecord()         {}

type ArticleRaw struct {
	Base
	Platform string  `json:"platform"`
	Link     string  `json:"link"`
	Content  Content `json:"content"`
}

func (ArticleRaw) Category() Category { return Articles }
func (ArticleRaw) rawRecord()         {}

type RepositoryRaw struct {
	Base
	Name    string  `json:"name"`
	Link    string  `json:"link"`
	Content Content `json:"content"`
}

func (RepositoryRaw) Category() Category { return Repositories }
func (RepositoryRaw) rawRecord()         {}

// Cleaned

type CleanedBase struct {
	Base
	CleanedContent string `json:"cleaned_content"`
}

func (c CleanedBase) Text() string    { return c.CleanedContent }
func (c CleanedBase) PointID() string { return c.EntryID }

func (c CleanedBase) payload(cat Category) Payload {
	p := c.Base.payload(cat)
	p[FieldCleanedContent] = c.CleanedContent
	return p
}

type PostCleaned struct {
	CleanedBase
	Platform string `json:"platform"`
	Image    string `json:"image,omitempty"`
}

func (PostCleaned) Category() Category { return Posts }

func (p PostCleaned) Payload() Payload {
	pl := p.payload(Posts)
	pl[FieldPlatform] = p.Platform
	pl[FieldImage] = p.Image
	return pl
}

type ArticleCleaned struct {
	CleanedBase
	Platform string `json:"platform"`
	Link     string `json:"link"`
}

func (ArticleCleaned) Category() Category { return Articles }

func (a ArticleCleaned) Payload() Payload {
	pl := a.payload(Articles)
	pl[FieldPlatform] = a.Platform
	pl[FieldLink] = a.Link
	return pl
}

type RepositoryCleaned struct {
	CleanedBase
	Name string `json:"name"`
	Link string `json:"link"`
}

func (RepositoryCleaned) Category() Category { return Repositories }

func (r RepositoryCleaned) Payload() Payload {
	pl := r.payload(Repositories)
	pl[FieldName] = r.Name
	pl[FieldLink] = r.Link
	return pl
}

// Chunks

type ChunkBase struct {
	Base
	ChunkID      string `json:"chunk_id"`
	ChunkContent string `json:"chunk_content"`
}

func (c ChunkBase) Text() string    { return c.ChunkContent }
func (c ChunkBase) PointID() string { return c.ChunkID }

func (c ChunkBase) payload(cat Category) Payload {
	p := c.Base.payload(cat)
	p[FieldChunkID] = c.ChunkID
	p[FieldContent] = c.ChunkContent
	return p
}

type PostChunk struct {
	ChunkBase
	Platform string `json:"platform"`
	Image    string `json:"image,omitempty"`
}

func (PostChunk) Category() Category { return Posts }

type ArticleChunk struct {
	ChunkBase
	Platform string `json:"platform"`
	Link     string `json:"link"`
}

func (ArticleChunk) Category() Category { return Articles }

type RepositoryChunk struct {
	ChunkBase
	Name string `json:"name"`
	Link string `json:"link"`
}

func (RepositoryChunk) Category() Category { return Repositories }

// Embedded chunks

type PostEmbeddedChunk struct {
	PostChunk
	Embedding []float32 `json:"embedded_content"`
}

func (p PostEmbeddedChunk) Vector() []float32 { return p.Embedding }

func (p PostEmbeddedChunk) Payload() Payload {
	pl := p.payload(Posts)
	pl[FieldPlatform] = p.Platform
	pl[FieldImage] = p.Image
	return pl
}

type ArticleEmbeddedChunk struct {
	ArticleChunk
	Embedding []float32 `json:"embedded_content"`
}

func (a ArticleEmbeddedChunk) Vector() []float32 { return a.Embedding }

func (a ArticleEmbeddedChunk) Payload() Payload {
	pl := a.payload(Articles)
	pl[FieldPlatform] = a.Platform
	pl[FieldLink] = a.Link
	return pl
}

type RepositoryEmbeddedChunk struct {
	RepositoryChunk
	Embedding []float32 `json:"embedded_content"`
}

func (r RepositoryEmbeddedChunk) Vector() []float32 { return r.Embedding }

func (r RepositoryEmbeddedChunk) Payload() Payload {
	pl := r.payload(Repositories)
	pl[FieldName] = r.Name
	pl[FieldLink] = r.Link
	return pl
}

var (
	_ RawRecord           = PostRaw{}
	_ RawRecord           = ArticleRaw{}
	_ RawRecord           = RepositoryRaw{}
	_ CleanedRecord       = PostCleaned{}
	_ CleanedRecord       = ArticleCleaned{}
	_ CleanedRecord       = RepositoryCleaned{}
	_ ChunkRecord         = PostChunk{}
	_ ChunkRecord         = ArticleChunk{}
	_ ChunkRecord         = RepositoryChunk{}
	_ EmbeddedChunkRecord = PostEmbeddedChunk{}
	_ EmbeddedChunkRecord = ArticleEmbeddedChunk{}
	_ EmbeddedChunkRecord = RepositoryEmbeddedChunk{}
)
