package qdrant

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	pb "github.com/qdrant/go-client/qdrant"
)

func TestPayloadMetadata(t *testing.T) {
	payload := map[string]*pb.Value{
		"Assessment Name": {Kind: &pb.Value_StringValue{StringValue: "OPQ32r"}},
		"URL":             {Kind: &pb.Value_StringValue{StringValue: "https://example.com/opq"}},
		"text":            {Kind: &pb.Value_StringValue{StringValue: "embedded text"}},
		"count":           {Kind: &pb.Value_IntegerValue{IntegerValue: 3}},
	}
	expected := map[string]string{
		"Assessment Name": "OPQ32r",
		"URL":             "https://example.com/opq",
	}
	if diff := cmp.Diff(expected, payloadMetadata(payload)); diff != "" {
		t.Error(diff)
	}
}

func TestPointID(t *testing.T) {
	id := PointID("https://example.com/opq")
	if id != PointID("https://example.com/opq") {
		t.Error("expected a stable point ID")
	}
	if len(id) != 36 {
		t.Errorf("expected a UUID, got %q", id)
	}
}
