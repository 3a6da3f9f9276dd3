package pipeline

import (
	"fmt"

	"github.com/Nerdward/my-llm-twin/internal/models"
	"github.com/Nerdward/my-llm-twin/internal/text"
)

// CleaningHandler turns a raw record into the cleaned record of the same category.
type CleaningHandler interface {
	Clean(raw models.RawRecord) (models.CleanedRecord, error)
}

type postCleaningHandler struct{}

func (postCleaningHandler) Clean(raw models.RawRecord) (models.CleanedRecord, error) {
	r, ok := raw.(models.PostRaw)
	if !ok {
		return nil, mismatch(models.Posts, raw)
	}
	return models.PostCleaned{
		CleanedBase: models.CleanedBase{
			Base:           r.Base,
			CleanedContent: text.NormalizeText(r.Content.Text()),
		},
		Platform: r.Platform,
		Image:    r.Image,
	}, nil
}

type articleCleaningHandler struct{}

func (articleCleaningHandler) Clean(raw models.RawRecord) (models.CleanedRecord, error) {
	r, ok := raw.(models.ArticleRaw)
	if !ok {
		return nil, mismatch(models.Articles, raw)
	}
	body := text.CleanMarkdownNoise(r.Content.Text())
	return models.ArticleCleaned{
		CleanedBase: models.CleanedBase{
			Base:           r.Base,
			CleanedContent: text.NormalizeText(text.StripHTML(body)),
		},
		Platform: r.Platform,
		Link:     r.Link,
	}, nil
}

type repositoryCleaningHandler struct {
	filter *text.RepoFilter
}

func (h repositoryCleaningHandler) Clean(raw models.RawRecord) (models.CleanedRecord, error) {
	r, ok := raw.(models.RepositoryRaw)
	if !ok {
		return nil, mismatch(models.Repositories, raw)
	}

	var cleaned string
	if len(r.Content.Parts) == 1 && r.Content.Parts[0].Key == "" {
		cleaned = text.NormalizeCode(r.Content.Parts[0].Value)
	} else {
		files := make([]text.SourceFile, 0, len(r.Content.Parts))
		for _, p := range r.Content.Parts {
			files = append(files, text.SourceFile{Path: p.Key, Content: p.Value})
		}
		cleaned = h.filter.RenderRepository(files)
	}

	return models.RepositoryCleaned{
		CleanedBase: models.CleanedBase{Base: r.Base, CleanedContent: cleaned},
		Name:        r.Name,
		Link:        r.Link,
	}, nil
}

func mismatch(want models.Category, got models.Record) error {
	return fmt.Errorf("%w: %s handler received %s record %s", models.ErrMalformedRecord, want, got.Category(), got.ID())
}
