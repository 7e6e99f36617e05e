// Package qdrant stores assessments as points in a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"

	"github.com/a-h/assessmentserver/db"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New connects to Qdrant at the given gRPC address.
func New(addr string, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the collection with cosine distance if it doesn't
// exist.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
	}
	return nil
}

// PointID is derived from the URL so that re-importing replaces the point.
func PointID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

func (s *Store) AssessmentPut(ctx context.Context, args db.AssessmentPutArgs) error {
	a := args.Assessment
	if a.URL == "" {
		return fmt.Errorf("qdrant: assessment URL is required")
	}
	payload := make(map[string]*pb.Value, 6)
	for k, v := range a.Metadata() {
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	payload["text"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: a.Text}}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{
			{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(a.URL)},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: args.Embedding},
					},
				},
				Payload: payload,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %s: %w", a.URL, err)
	}
	return nil
}

// AssessmentNearest converts Qdrant's cosine similarity into a distance, so
// results are ascending by distance like the other stores.
func (s *Store) AssessmentNearest(ctx context.Context, args db.AssessmentNearestArgs) (results []db.AssessmentNearestResult, err error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         args.Embedding,
		Limit:          uint64(args.Limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	results = make([]db.AssessmentNearestResult, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		results[i] = db.AssessmentNearestResult{
			Metadata: payloadMetadata(p.GetPayload()),
			Distance: 1 - float64(p.GetScore()),
		}
	}
	return results, nil
}

func payloadMetadata(payload map[string]*pb.Value) map[string]string {
	m := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == "text" {
			continue
		}
		if sv, ok := v.GetKind().(*pb.Value_StringValue); ok {
			m[k] = sv.StringValue
		}
	}
	return m
}
