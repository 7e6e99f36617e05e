package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

type Queries struct {
	conn *gorqlite.Connection
}

// Metadata keys stored alongside each assessment embedding.
const (
	MetadataAssessmentName = "Assessment Name"
	MetadataTestType       = "Test Type"
	MetadataDuration       = "Duration"
	MetadataRemoteTesting  = "Remote Testing"
	MetadataURL            = "URL"
)

// Assessment is identified by its catalog URL.
type Assessment struct {
	URL           string
	Name          string
	TestType      string
	Duration      string
	RemoteTesting string
	// Text is the text that was embedded for the assessment.
	Text          string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

func (a Assessment) Metadata() map[string]string {
	return map[string]string{
		MetadataAssessmentName: a.Name,
		MetadataTestType:       a.TestType,
		MetadataDuration:       a.Duration,
		MetadataRemoteTesting:  a.RemoteTesting,
		MetadataURL:            a.URL,
	}
}

type AssessmentPutArgs struct {
	Assessment Assessment
	Embedding  []float32
}

func (q *Queries) assessmentUpsertRowID(ctx context.Context, a Assessment) (rowID int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query: `insert into assessment (id, url, name, test_type, duration, remote_testing, text, created_at, last_updated_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict(id) do update
set
    name = excluded.name,
    test_type = excluded.test_type,
    duration = excluded.duration,
    remote_testing = excluded.remote_testing,
    text = excluded.text,
    last_updated_at = excluded.last_updated_at
`,
		Arguments: []any{a.URL, a.URL, a.Name, a.TestType, a.Duration, a.RemoteTesting, a.Text, a.CreatedAt, a.LastUpdatedAt},
	}
	_, err = q.conn.WriteOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}

	stmt = gorqlite.ParameterizedStatement{
		Query:     `select rowid from assessment where id = ?`,
		Arguments: []any{a.URL},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if !result.Next() {
		return 0, fmt.Errorf("expected a row ID")
	}
	err = result.Scan(&rowID)
	return rowID, err
}

func (q *Queries) AssessmentPut(ctx context.Context, args AssessmentPutArgs) (id int64, err error) {
	if args.Assessment.URL == "" {
		return 0, fmt.Errorf("db: assessment URL is required")
	}
	id, err = q.assessmentUpsertRowID(ctx, args.Assessment)
	if err != nil {
		return id, fmt.Errorf("db: failed to upsert assessment row id: %w", err)
	}
	if id == 0 {
		return id, fmt.Errorf("db: expected a non-zero row ID")
	}

	embeddingJSON, err := json.Marshal(args.Embedding)
	if err != nil {
		return id, fmt.Errorf("db: failed to marshal embedding: %w", err)
	}
	// vec0 tables don't support upserts.
	statements := []gorqlite.ParameterizedStatement{
		{
			Query:     `delete from assessment_vec where assessment_rowid = ?`,
			Arguments: []any{id},
		},
		{
			Query:     `insert into assessment_vec (assessment_rowid, embedding) values (?, ?)`,
			Arguments: []any{id, string(embeddingJSON)},
		},
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return id, err
	}
	return id, nil
}

func (q *Queries) AssessmentDelete(ctx context.Context, url string) (err error) {
	statements := []gorqlite.ParameterizedStatement{
		{
			Query:     `delete from assessment_vec where assessment_rowid in (select rowid from assessment where id = ?)`,
			Arguments: []any{url},
		},
		{
			Query:     `delete from assessment where id = ?`,
			Arguments: []any{url},
		},
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return err
	}
	return nil
}

func (q *Queries) AssessmentGet(ctx context.Context, url string) (a Assessment, ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select url, name, test_type, duration, remote_testing, text, created_at, last_updated_at from assessment where id = ?`,
		Arguments: []any{url},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return Assessment{}, false, err
	}
	if !result.Next() {
		return Assessment{}, false, nil
	}
	if err = result.Scan(&a.URL, &a.Name, &a.TestType, &a.Duration, &a.RemoteTesting, &a.Text, &a.CreatedAt, &a.LastUpdatedAt); err != nil {
		return Assessment{}, false, err
	}
	return a, true, nil
}

type AssessmentNearestArgs struct {
	Embedding []float32
	Limit     int
}

type AssessmentNearestResult struct {
	// Metadata may lack any of the Metadata* keys.
	Metadata map[string]string
	Distance float64
}

func (q *Queries) AssessmentNearest(ctx context.Context, args AssessmentNearestArgs) (results []AssessmentNearestResult, err error) {
	inputEmbeddingJSON, err := json.Marshal(args.Embedding)
	if err != nil {
		return results, fmt.Errorf("db: failed to marshal input embedding: %w", err)
	}
	stmt := gorqlite.ParameterizedStatement{
		Query: `with nearest as (
  select assessment_rowid, distance
  from assessment_vec
  where embedding match ?
  order by distance asc
  limit ?
)
select
  coalesce(a.name, ''),
  coalesce(a.test_type, ''),
  coalesce(a.duration, ''),
  coalesce(a.remote_testing, ''),
  coalesce(a.url, ''),
  n.distance
from nearest n
left join assessment a on a.rowid = n.assessment_rowid
order by n.distance asc;`,
		Arguments: []any{string(inputEmbeddingJSON), args.Limit},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return results, err
	}
	for result.Next() {
		var a Assessment
		var r AssessmentNearestResult
		if err = result.Scan(&a.Name, &a.TestType, &a.Duration, &a.RemoteTesting, &a.URL, &r.Distance); err != nil {
			return results, err
		}
		r.Metadata = a.Metadata()
		results = append(results, r)
	}
	return results, nil
}
