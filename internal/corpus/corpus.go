// Package corpus loads and indexes the legal reference corpora (BGB,
// HGB, and any further statute collections) that the compliance
// pipeline cites. Each corpus lives in blob storage as one JSON file
// per source under the corpus/ prefix.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/klauselwerk/klausel/pkg/storage"
)

// Domain errors for corpus operations.
var (
	ErrNoSourcesEnabled = errors.New("no corpus sources enabled")
	ErrSourceDisabled   = errors.New("corpus source disabled")
	ErrArticleNotFound  = errors.New("article not found")
)

// Article is a single statute article within a legal corpus.
type Article struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Ref identifies an article within the catalog.
func (a Article) Ref() string {
	return a.Source + " " + a.Name
}

// Catalog indexes the articles of all enabled sources. Articles keeps
// source file order so batching is deterministic across runs.
type Catalog struct {
	sources  map[string]bool
	articles []Article
	index    map[string]int
}

// Load reads every enabled source from blob storage and builds a
// catalog. Each source blob holds a JSON array of articles.
func Load(ctx context.Context, store storage.System, sources []string, logger *slog.Logger) (*Catalog, error) {
	if len(sources) == 0 {
		return nil, ErrNoSourcesEnabled
	}

	c := &Catalog{
		sources: make(map[string]bool, len(sources)),
		index:   make(map[string]int),
	}

	for _, source := range sources {
		data, err := store.ReadAll(ctx, blobKey(source))
		if err != nil {
			return nil, fmt.Errorf("load corpus %s: %w", source, err)
		}

		var articles []Article
		if err := json.Unmarshal(data, &articles); err != nil {
			return nil, fmt.Errorf("parse corpus %s: %w", source, err)
		}

		for _, a := range articles {
			a.Source = source
			if _, exists := c.index[key(source, a.Name)]; exists {
				continue
			}
			c.index[key(source, a.Name)] = len(c.articles)
			c.articles = append(c.articles, a)
		}
		c.sources[source] = true

		logger.Info("corpus loaded", "source", source, "articles", len(articles))
	}

	return c, nil
}

// NewCatalog builds a catalog directly from articles. Used by tests and
// tools that bypass blob storage.
func NewCatalog(sources []string, articles []Article) *Catalog {
	c := &Catalog{
		sources: make(map[string]bool, len(sources)),
		index:   make(map[string]int),
	}
	for _, s := range sources {
		c.sources[s] = true
	}
	for _, a := range articles {
		if _, exists := c.index[key(a.Source, a.Name)]; exists {
			continue
		}
		c.index[key(a.Source, a.Name)] = len(c.articles)
		c.articles = append(c.articles, a)
	}
	return c
}

// Articles returns all articles in load order.
func (c *Catalog) Articles() []Article {
	return c.articles
}

// Enabled reports whether a source was loaded into the catalog.
func (c *Catalog) Enabled(source string) bool {
	return c.sources[source]
}

// Lookup resolves an article by source and name. A disabled source
// returns ErrSourceDisabled so callers can distinguish configuration
// gaps from model hallucinations.
func (c *Catalog) Lookup(source, name string) (*Article, error) {
	if !c.sources[source] {
		return nil, fmt.Errorf("%w: %s", ErrSourceDisabled, source)
	}

	i, ok := c.index[key(source, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrArticleNotFound, source, name)
	}
	return &c.articles[i], nil
}

func blobKey(source string) string {
	return "corpus/" + strings.ToLower(source) + ".json"
}

func key(source, name string) string {
	return source + "\x00" + name
}
