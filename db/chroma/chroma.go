// Package chroma stores assessments in a Chroma collection.
package chroma

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a-h/assessmentserver/db"
	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
)

type Store struct {
	client     chromago.Client
	collection chromago.Collection
}

// New connects to the Chroma server at baseURL and gets or creates the named
// collection.
func New(ctx context.Context, baseURL, collectionName string) (*Store, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("chroma: failed to create client: %w", err)
	}
	collection, err := client.GetOrCreateCollection(ctx, collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Assessment catalog"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("chroma: failed to get or create collection %q: %w", collectionName, err)
	}
	return &Store{
		client:     client,
		collection: collection,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func documentID(url string) chromago.DocumentID {
	return chromago.DocumentID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String())
}

// AssessmentPut replaces any existing record with the same URL.
func (s *Store) AssessmentPut(ctx context.Context, args db.AssessmentPutArgs) error {
	a := args.Assessment
	if a.URL == "" {
		return fmt.Errorf("chroma: assessment URL is required")
	}
	if err := s.collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(db.MetadataURL, a.URL))); err != nil {
		return fmt.Errorf("chroma: failed to delete previous version of %s: %w", a.URL, err)
	}
	metadata := chromago.NewDocumentMetadata(
		chromago.NewStringAttribute(db.MetadataAssessmentName, a.Name),
		chromago.NewStringAttribute(db.MetadataTestType, a.TestType),
		chromago.NewStringAttribute(db.MetadataDuration, a.Duration),
		chromago.NewStringAttribute(db.MetadataRemoteTesting, a.RemoteTesting),
		chromago.NewStringAttribute(db.MetadataURL, a.URL),
	)
	err := s.collection.Add(ctx,
		chromago.WithIDs(documentID(a.URL)),
		chromago.WithTexts(a.Text),
		chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(args.Embedding)),
		chromago.WithMetadatas(metadata),
	)
	if err != nil {
		return fmt.Errorf("chroma: failed to add %s: %w", a.URL, err)
	}
	return nil
}

func (s *Store) AssessmentNearest(ctx context.Context, args db.AssessmentNearestArgs) (results []db.AssessmentNearestResult, err error) {
	qr, err := s.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(args.Embedding)),
		chromago.WithNResults(args.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("chroma: failed to query: %w", err)
	}
	metadataGroups := qr.GetMetadatasGroups()
	if len(metadataGroups) == 0 {
		return nil, nil
	}
	distanceGroups := qr.GetDistancesGroups()
	for i, metadata := range metadataGroups[0] {
		var r db.AssessmentNearestResult
		if r.Metadata, err = toStringMap(metadata); err != nil {
			return nil, err
		}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			r.Distance = float64(distanceGroups[0][i])
		}
		results = append(results, r)
	}
	return results, nil
}

// toStringMap flattens document metadata. The metadata type has no accessor
// for all values, so it is round-tripped through JSON.
func toStringMap(metadata any) (map[string]string, error) {
	m := make(map[string]string)
	if metadata == nil {
		return m, nil
	}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("chroma: failed to marshal metadata: %w", err)
	}
	var values map[string]any
	if err = json.Unmarshal(jsonBytes, &values); err != nil {
		return nil, fmt.Errorf("chroma: failed to unmarshal metadata: %w", err)
	}
	for k, v := range values {
		switch v := v.(type) {
		case string:
			m[k] = v
		case nil:
		default:
			m[k] = fmt.Sprint(v)
		}
	}
	return m, nil
}
