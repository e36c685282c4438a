package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"matchmail/backend/internal/index"
	"matchmail/backend/internal/retrieval"
)

const className = "ResumeFragment"

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) InsertFragment(ctx context.Context, frag index.Fragment, vector []float32) error {
	_, err := s.client.Data().Creator().
		WithClassName(className).
		WithID(frag.ID).
		WithProperties(map[string]interface{}{
			"content": frag.Content,
			"userId":  frag.UserID,
			"type":    frag.Type,
			"batch":   frag.Batch,
		}).
		WithVector(vector).
		Do(ctx)
	return err
}

// DeleteFragmentsExcept removes every fragment of the user whose batch tag
// differs from keepBatch. Used after a new batch is fully inserted.
func (s *Store) DeleteFragmentsExcept(ctx context.Context, userID, keepBatch string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().
					WithPath([]string{"userId"}).
					WithOperator(filters.Equal).
					WithValueString(userID),
				filters.Where().
					WithPath([]string{"batch"}).
					WithOperator(filters.NotEqual).
					WithValueString(keepBatch),
			})).
		Do(ctx)
	return err
}

func (s *Store) SearchFragments(ctx context.Context, vector []float32, userID string, limit int) ([]retrieval.ScoredFragment, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	where := filters.Where().
		WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueString(userID)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "userId"},
		{Name: "type"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []retrieval.ScoredFragment
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if objs, ok := data[className].([]interface{}); ok {
			for _, o := range objs {
				props, ok := o.(map[string]interface{})
				if !ok {
					continue
				}
				frag := retrieval.ScoredFragment{}
				if content, ok := props["content"].(string); ok {
					frag.Content = content
				}
				if uid, ok := props["userId"].(string); ok {
					frag.UserID = uid
				}
				if t, ok := props["type"].(string); ok {
					frag.Type = t
				}
				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					if id, ok := additional["id"].(string); ok {
						frag.ID = id
					}
					if dist, ok := additional["distance"].(float64); ok {
						frag.Distance = float32(dist)
					}
				}
				results = append(results, frag)
			}
		}
	}
	return results, nil
}

// CountFragments returns the total object count for the class, for the
// stats endpoint.
func (s *Store) CountFragments(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if objs, ok := agg[className].([]interface{}); ok && len(objs) > 0 {
			if entry, ok := objs[0].(map[string]interface{}); ok {
				if meta, ok := entry["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
