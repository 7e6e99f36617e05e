package main

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/a-h/assessmentserver/models"
	"github.com/pluja/pocketbase"
	"gopkg.in/yaml.v3"
)

func NewPocketbaseExporter(baseURL string, client *pocketbase.Client, collection, expand string) *PocketbaseExporter {
	return &PocketbaseExporter{
		baseURL:    baseURL,
		client:     client,
		collection: collection,
		expand:     expand,
		PageSize:   10,
		Error:      nil,
	}
}

type PocketbaseExporter struct {
	// baseURL for record links, e.g. http://localhost:8090
	baseURL    string
	client     *pocketbase.Client
	collection string
	expand     string
	PageSize   int
	Error      error
}

func (p *PocketbaseExporter) Export(ctx context.Context) iter.Seq[ExportedAssessment] {
	var page int
	return func(yield func(ExportedAssessment) bool) {
		for {
			if ctx.Err() != nil {
				return
			}
			if p.Error != nil {
				return
			}
			page++
			response, err := p.client.List(p.collection, pocketbase.ParamsList{
				Page:   page,
				Size:   p.PageSize,
				Sort:   "-created",
				Expand: p.expand,
			})
			if err != nil {
				p.Error = err
				return
			}
			if len(response.Items) == 0 {
				return
			}
			for _, item := range response.Items {
				ea, err := p.createAssessment(item)
				if err != nil {
					p.Error = err
					return
				}
				if !yield(ea) {
					return
				}
			}
		}
	}
}

func useItemOrDefault(item map[string]any, keys []string, defaultValue string) string {
	for _, key := range keys {
		if value, ok := item[key].(string); ok && value != "" {
			return value
		}
	}
	return defaultValue
}

type ExportedAssessment struct {
	ID         string
	Assessment models.Assessment
	// Text is embedded in place of the assessment's own fields.
	Text string
}

func (p *PocketbaseExporter) createAssessment(item map[string]any) (ea ExportedAssessment, err error) {
	id, ok := item["id"].(string)
	if !ok {
		return ea, fmt.Errorf("record in collection %q has no id", p.collection)
	}
	ea.ID = id
	recordURL, err := createURL(p.baseURL, "api", "collections", p.collection, "records", id)
	if err != nil {
		return ea, fmt.Errorf("failed to create record URL: %w", err)
	}
	ea.Assessment.URL = useItemOrDefault(item, []string{"url", "link"}, recordURL)
	ea.Assessment.Name = useItemOrDefault(item, []string{"name", "title"}, "Untitled")
	ea.Assessment.TestType = useItemOrDefault(item, []string{"test_type", "testType"}, "")
	ea.Assessment.Duration = useItemOrDefault(item, []string{"duration"}, "")
	ea.Assessment.RemoteTesting = useItemOrDefault(item, []string{"remote_testing", "remoteTesting"}, "")
	ea.Assessment.Description = useItemOrDefault(item, []string{"description", "summary"}, "")

	recursivelyApplyExpandedFields(item)
	recursivelyRemoveKeys(item, []string{"id", "collectionId", "collectionName", "created", "updated"})

	sb := new(strings.Builder)
	if err = yaml.NewEncoder(sb).Encode(item); err != nil {
		return ea, fmt.Errorf("failed to encode record %q: %w", id, err)
	}
	ea.Text = sb.String()
	return ea, nil
}

func createURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse baseURL: %w", err)
	}
	u.Path = strings.Join(pathSegments, "/")
	return u.String(), nil
}

func applyExpandedFields(data map[string]any) (changed bool) {
	for key, value := range data {
		if key == "expand" {
			expandMap, ok := value.(map[string]any)
			if !ok {
				continue
			}

			// Check parent keys for matches in expand.
			for parentKey := range data {
				if parentKey == "expand" {
					continue
				}
				if expandedValue, found := expandMap[parentKey]; found {
					data[parentKey] = expandedValue
					changed = true
				}
			}

			delete(data, "expand")
			changed = true
		} else if nestedMap, ok := value.(map[string]any); ok {
			if applyExpandedFields(nestedMap) {
				changed = true
			}
		} else if nestedSlice, ok := value.([]any); ok {
			for _, item := range nestedSlice {
				if itemMap, isMap := item.(map[string]any); isMap {
					if applyExpandedFields(itemMap) {
						changed = true
					}
				}
			}
		}
	}

	return changed
}

func recursivelyApplyExpandedFields(data map[string]any) {
	for {
		if changesMade := applyExpandedFields(data); !changesMade {
			return
		}
	}
}

// recursivelyRemoveKeys removes the keys, and any empty values, at every level.
func recursivelyRemoveKeys(item any, keys []string) {
	switch item := item.(type) {
	case map[string]any:
		for _, key := range keys {
			delete(item, key)
		}
		var emptyKeys []string
		for k, v := range item {
			switch v := v.(type) {
			case map[string]any:
				if len(v) == 0 {
					emptyKeys = append(emptyKeys, k)
				}
			case []any:
				if len(v) == 0 {
					emptyKeys = append(emptyKeys, k)
				}
			case string:
				if v == "" {
					emptyKeys = append(emptyKeys, k)
				}
			}
			recursivelyRemoveKeys(v, keys)
		}
		for _, key := range emptyKeys {
			delete(item, key)
		}
	case []any:
		for _, value := range item {
			recursivelyRemoveKeys(value, keys)
		}
	}
}
