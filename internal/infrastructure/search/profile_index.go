// Package search keeps developer profiles discoverable in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/collabhub/collabhub/internal/domain/gateway"
)

const (
	requestTimeout    = 3 * time.Second
	defaultSearchSize = 10
	maxSearchSize     = 50
)

type ProfileIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewProfileIndex(es *elasticsearch.Client, index string) *ProfileIndex {
	return &ProfileIndex{es: es, index: index}
}

var _ gateway.ProfileIndex = (*ProfileIndex)(nil)

var profileMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"user_id":    map[string]any{"type": "keyword"},
			"username":   map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"name":       map[string]any{"type": "text"},
			"bio":        map[string]any{"type": "text"},
			"company":    map[string]any{"type": "text"},
			"location":   map[string]any{"type": "text"},
			"avatar_url": map[string]any{"type": "keyword", "index": false},
		},
	},
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (x *ProfileIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("es exists: %w", err)
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es exists: %s", res.Status())
	}

	b, err := json.Marshal(profileMapping)
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: x.index, Body: bytes.NewReader(b)}.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("es create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	// Another instance may have won the race.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("es create index: %s", res.Status())
	}
	return nil
}

func (x *ProfileIndex) Index(ctx context.Context, doc gateway.ProfileDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: doc.UserID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// Remove deletes a profile document. A missing document is not an error.
func (x *ProfileIndex) Remove(ctx context.Context, userID string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: userID}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("es delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match over username, name, bio, company and location.
func (x *ProfileIndex) Search(ctx context.Context, q string, size int) ([]gateway.ProfileDocument, error) {
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^3", "name^2", "bio", "company", "location"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source gateway.ProfileDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("es search: decode: %w", err)
	}

	out := make([]gateway.ProfileDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
