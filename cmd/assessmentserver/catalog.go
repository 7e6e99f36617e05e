package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/assessmentserver/db"
	"github.com/a-h/assessmentserver/models"
	"gopkg.in/yaml.v3"
)

// readCatalog reads assessments from a YAML list or a CSV file with a header
// row, depending on the file extension.
func readCatalog(name string) (assessments []models.Assessment, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return decodeYAMLCatalog(f)
	case ".csv":
		return decodeCSVCatalog(f)
	}
	return nil, fmt.Errorf("unsupported catalog file type %q", filepath.Ext(name))
}

func decodeYAMLCatalog(r io.Reader) (assessments []models.Assessment, err error) {
	if err = yaml.NewDecoder(r).Decode(&assessments); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML catalog: %w", err)
	}
	return assessments, nil
}

const csvDescription = "Description"

func decodeCSVCatalog(r io.Reader) (assessments []models.Assessment, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns[strings.ToLower(db.MetadataURL)]; !ok {
		return nil, fmt.Errorf("CSV catalog has no %q column", db.MetadataURL)
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		get := func(key string) string {
			i, ok := columns[strings.ToLower(key)]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		assessments = append(assessments, models.Assessment{
			Name:          get(db.MetadataAssessmentName),
			TestType:      get(db.MetadataTestType),
			Duration:      get(db.MetadataDuration),
			RemoteTesting: get(db.MetadataRemoteTesting),
			URL:           get(db.MetadataURL),
			Description:   get(csvDescription),
		})
	}
	return assessments, nil
}

// embeddingText is the text embedded for a catalog entry.
func embeddingText(a models.Assessment) string {
	var parts []string
	for _, s := range []string{a.Name, a.TestType, a.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}
