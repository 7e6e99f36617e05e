package chroma

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToStringMap(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected map[string]string
	}{
		{
			name:     "nil metadata is an empty map",
			input:    nil,
			expected: map[string]string{},
		},
		{
			name: "strings are kept",
			input: map[string]any{
				"Assessment Name": "Verify - Numerical Reasoning",
				"URL":             "https://example.com/verify",
			},
			expected: map[string]string{
				"Assessment Name": "Verify - Numerical Reasoning",
				"URL":             "https://example.com/verify",
			},
		},
		{
			name: "other values are formatted and nulls are dropped",
			input: map[string]any{
				"Duration":       30,
				"Remote Testing": true,
				"Test Type":      nil,
			},
			expected: map[string]string{
				"Duration":       "30",
				"Remote Testing": "true",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := toStringMap(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, actual); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestDocumentIDIsStablePerURL(t *testing.T) {
	a := documentID("https://example.com/a")
	if a != documentID("https://example.com/a") {
		t.Error("expected the same ID for the same URL")
	}
	if a == documentID("https://example.com/b") {
		t.Error("expected different IDs for different URLs")
	}
}
