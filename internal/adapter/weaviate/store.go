// Package weaviate implements the vector index against a remote Weaviate
// instance, selected with VECTOR_BACKEND=weaviate.
package weaviate

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"deskmate/internal/vector"
)

const listPageSize = 500

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// objectID maps a chunk id onto a stable Weaviate UUID, which is what makes
// Upsert idempotent and Delete addressable without a lookup round trip.
func objectID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(vector.ClassName+"/"+chunkID)).String()
}

func (s *Store) Upsert(ctx context.Context, entries []vector.Entry) error {
	for _, e := range entries {
		_, err := s.client.Data().Creator().
			WithClassName(vector.ClassName).
			WithID(objectID(e.ID)).
			WithProperties(map[string]interface{}{
				"content": e.Content,
				"chunkId": e.ID,
				"source":  e.Source,
				"seq":     e.Seq,
			}).
			WithVector(e.Vector).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("store chunk %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := s.client.Data().Deleter().
			WithClassName(vector.ClassName).
			WithID(objectID(id)).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("delete chunk %s: %w", id, err)
		}
	}
	return nil
}

func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string

	for offset := 0; ; offset += listPageSize {
		res, err := s.client.GraphQL().Get().
			WithClassName(vector.ClassName).
			WithFields(graphql.Field{Name: "chunkId"}).
			WithLimit(listPageSize).
			WithOffset(offset).
			Do(ctx)
		if err != nil {
			return nil, err
		}
		if len(res.Errors) > 0 {
			return nil, fmt.Errorf("graphql error: %v", res.Errors)
		}

		page := 0
		if data, ok := res.Data["Get"].(map[string]interface{}); ok {
			if objects, ok := data[vector.ClassName].([]interface{}); ok {
				page = len(objects)
				for _, o := range objects {
					if props, ok := o.(map[string]interface{}); ok {
						if id, ok := props["chunkId"].(string); ok {
							ids = append(ids, id)
						}
					}
				}
			}
		}

		if page < listPageSize {
			break
		}
	}

	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]vector.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "chunkId"},
		{Name: "source"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var hits []vector.Hit
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[vector.ClassName].([]interface{}); ok {
			for _, o := range objects {
				props, ok := o.(map[string]interface{})
				if !ok {
					continue
				}

				var hit vector.Hit
				if content, ok := props["content"].(string); ok {
					hit.Content = content
				}
				if id, ok := props["chunkId"].(string); ok {
					hit.ID = id
				}
				if source, ok := props["source"].(string); ok {
					hit.Source = source
				}
				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					// Certainty arrives as a JSON number, but some server
					// versions serialise additional fields as strings.
					if c, ok := additional["certainty"].(float64); ok {
						hit.Score = float32(c)
					} else if c, ok := additional["certainty"].(string); ok {
						var f float64
						fmt.Sscanf(c, "%f", &f)
						hit.Score = float32(f)
					}
				}

				hits = append(hits, hit)
			}
		}
	}

	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if aggs, ok := data[vector.ClassName].([]interface{}); ok && len(aggs) > 0 {
			if agg, ok := aggs[0].(map[string]interface{}); ok {
				if meta, ok := agg["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}

	return 0, fmt.Errorf("aggregate response missing meta count")
}
