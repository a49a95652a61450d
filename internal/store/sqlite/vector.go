// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/recall-dev/recall/internal/store"
	recallerr "github.com/recall-dev/recall/pkg/errors"
	"github.com/recall-dev/recall/pkg/vec"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// tagOversample widens the knn fetch when a tag filter will discard
// candidates after the nearest-neighbor pass.
const tagOversample = 4

// VectorStore is the durable backend: SQLite with a sqlite-vec vec0 index
// partitioned by owner, plus relational tables for record metadata and tags.
//
// Embeddings are unit-normalized at write time. The vec0 index reports
// euclidean distance, and for unit vectors similarity = 1 - distance²/2
// is exact cosine, so both backends agree on what MinSimilarity means.
type VectorStore struct {
	db         *sql.DB
	dims       int
	maxRecords int
	nowFunc    func() time.Time // for testing
}

// NewVectorStore opens (or creates) a SQLite database at dbPath and
// initialises the vec0 virtual table and companion record tables.
// maxRecords caps utilization reporting only; 0 means unbounded.
func NewVectorStore(dbPath string, dims, maxRecords int) (*VectorStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	if err := migrate(db, dims); err != nil {
		_ = db.Close()
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "migrating vector tables")
	}

	return &VectorStore{db: db, dims: dims, maxRecords: maxRecords, nowFunc: time.Now}, nil
}

func migrate(db *sql.DB, dims int) error {
	const recordsDDL = `
CREATE TABLE IF NOT EXISTS records (
	id           TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	external_id  TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL DEFAULT 'unknown',
	satisfaction REAL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	UNIQUE(owner, external_id)
)`
	if _, err := db.Exec(recordsDDL); err != nil {
		return err
	}

	const tagsDDL = `
CREATE TABLE IF NOT EXISTS record_tags (
	record_id TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	tag       TEXT NOT NULL,
	PRIMARY KEY (record_id, tag)
)`
	if _, err := db.Exec(tagsDDL); err != nil {
		return err
	}

	vecDDL := `CREATE VIRTUAL TABLE IF NOT EXISTS vec_records USING vec0(
	record_id TEXT PRIMARY KEY,
	owner     TEXT PARTITION KEY,
	embedding FLOAT[` + strconv.Itoa(dims) + `]
)`
	if _, err := db.Exec(vecDDL); err != nil {
		return err
	}

	return nil
}

func (v *VectorStore) Dimensions() int { return v.dims }

// SetNowFunc overrides the time source (for testing).
func (v *VectorStore) SetNowFunc(fn func() time.Time) { v.nowFunc = fn }

func (v *VectorStore) Upsert(ctx context.Context, rec *store.Record) (string, error) {
	if err := store.ValidateRecord(rec, v.dims); err != nil {
		return "", err
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "beginning upsert transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var existingID, existingHash string
	err = tx.QueryRowContext(ctx,
		`SELECT id, content_hash FROM records WHERE owner = ? AND external_id = ?`,
		rec.Owner, rec.ExternalID,
	).Scan(&existingID, &existingHash)
	switch {
	case err == sql.ErrNoRows:
		// first insert
	case err != nil:
		return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "looking up record identity")
	case existingHash == rec.ContentHash:
		// Unchanged content: no duplicate, tags untouched.
		return existingID, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(vec.Normalize(rec.Embedding))
	if err != nil {
		return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "serializing embedding")
	}

	now := v.nowFunc()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	id := existingID
	if id == "" {
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
INSERT INTO records (id, owner, external_id, content_hash, summary, outcome, satisfaction, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rec.Owner, rec.ExternalID, rec.ContentHash, rec.Summary, string(rec.Outcome),
			nullableFloat(rec.Satisfaction), createdAt.UnixNano(), now.UnixNano())
		if err != nil {
			return "", recallerr.Wrap(err, recallerr.CodeStoreDatabaseFailure, "inserting record",
				recallerr.FieldOwner(rec.Owner))
		}
	} else {
		_, err = tx.ExecContext(ctx, `
UPDATE records SET content_hash = ?, summary = ?, outcome = ?, satisfaction = ?, created_at = ?, updated_at = ?
WHERE id = ?`,
			rec.ContentHash, rec.Summary, string(rec.Outcome),
			nullableFloat(rec.Satisfaction), createdAt.UnixNano(), now.UnixNano(), id)
		if err != nil {
			return "", recallerr.Wrap(err, recallerr.CodeStoreDatabaseFailure, "updating record",
				recallerr.FieldRecordID(id))
		}
		// Tag set is fully replaced, not merged.
		if _, err := tx.ExecContext(ctx, `DELETE FROM record_tags WHERE record_id = ?`, id); err != nil {
			return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "clearing tags for %s", id)
		}
	}

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_records WHERE record_id = ?`, id); err != nil {
		return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "deleting existing vector %s", id)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_records(record_id, owner, embedding) VALUES (?, ?, ?)`,
		id, rec.Owner, blob); err != nil {
		return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "inserting vector %s", id)
	}

	for _, tag := range dedupeTags(rec.Tags) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_tags(record_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "inserting tag %q", tag)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "committing upsert")
	}
	return id, nil
}

func (v *VectorStore) Search(ctx context.Context, owner string, query []float32, opts store.SearchOpts) ([]store.Match, error) {
	if err := vec.CheckDimensions(query, v.dims); err != nil {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(vec.Normalize(query))
	if err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "serializing query vector")
	}

	k := opts.K
	if k <= 0 {
		return nil, nil
	}
	fetchK := k
	if len(opts.Tags) > 0 {
		fetchK = k * tagOversample
	}

	const knnQ = `
SELECT record_id, distance
FROM vec_records
WHERE owner = ? AND embedding MATCH ? AND k = ?
ORDER BY distance`

	rows, err := v.db.QueryContext(ctx, knnQ, owner, blob, fetchK)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeStoreDatabaseFailure, "searching vectors",
			recallerr.FieldOwner(owner))
	}
	defer func() { _ = rows.Close() }()

	similarities := map[string]float64{}
	var ids []string
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "scanning knn result")
		}
		// Exact cosine for unit vectors: sim = 1 - d²/2.
		sim := 1 - distance*distance/2
		if sim < opts.MinSimilarity {
			continue
		}
		similarities[id] = sim
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "iterating knn results")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if len(opts.Tags) > 0 {
		ids, err = v.filterByTags(ctx, ids, opts.Tags)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
	}

	records, err := v.fetchRecords(ctx, owner, ids)
	if err != nil {
		return nil, err
	}

	matches := make([]store.Match, 0, len(records))
	for _, rec := range records {
		matches = append(matches, store.Match{Record: rec, Similarity: similarities[rec.ID]})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if !matches[i].Record.CreatedAt.Equal(matches[j].Record.CreatedAt) {
			return matches[i].Record.CreatedAt.After(matches[j].Record.CreatedAt)
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// filterByTags keeps only records carrying every requested tag: an AND
// filter via a grouped count over the tag join table.
func (v *VectorStore) filterByTags(ctx context.Context, ids, tags []string) ([]string, error) {
	tags = dedupeTags(tags)

	q := `SELECT record_id FROM record_tags WHERE record_id IN (` + placeholders(len(ids)) + `)
AND tag IN (` + placeholders(len(tags)) + `)
GROUP BY record_id HAVING COUNT(DISTINCT tag) = ?`

	args := make([]any, 0, len(ids)+len(tags)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	for _, tag := range tags {
		args = append(args, tag)
	}
	args = append(args, len(tags))

	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "filtering by tags")
	}
	defer func() { _ = rows.Close() }()

	kept := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "scanning tag filter result")
		}
		kept[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "iterating tag filter results")
	}

	out := make([]string, 0, len(kept))
	for _, id := range ids {
		if _, ok := kept[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (v *VectorStore) Get(ctx context.Context, owner string, ids []string) ([]*store.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return v.fetchRecords(ctx, owner, ids)
}

// fetchRecords loads full records (including tags) for the given ids,
// preserving the order of ids. Unknown ids are skipped.
func (v *VectorStore) fetchRecords(ctx context.Context, owner string, ids []string) ([]*store.Record, error) {
	q := `SELECT id, owner, external_id, content_hash, summary, outcome, satisfaction, created_at, updated_at
FROM records WHERE owner = ? AND id IN (` + placeholders(len(ids)) + `)`

	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeStoreDatabaseFailure, "fetching records",
			recallerr.FieldOwner(owner))
	}
	defer func() { _ = rows.Close() }()

	byID := map[string]*store.Record{}
	for rows.Next() {
		var rec store.Record
		var outcome string
		var satisfaction sql.NullFloat64
		var createdAt, updatedAt int64
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.ExternalID, &rec.ContentHash,
			&rec.Summary, &outcome, &satisfaction, &createdAt, &updatedAt); err != nil {
			return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "scanning record")
		}
		rec.Outcome = store.Outcome(outcome)
		if satisfaction.Valid {
			s := satisfaction.Float64
			rec.Satisfaction = &s
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
		byID[rec.ID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "iterating records")
	}

	if err := v.loadTags(ctx, byID); err != nil {
		return nil, err
	}

	out := make([]*store.Record, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (v *VectorStore) loadTags(ctx context.Context, byID map[string]*store.Record) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	q := `SELECT record_id, tag FROM record_tags WHERE record_id IN (` + placeholders(len(ids)) + `) ORDER BY tag`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "loading tags")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "scanning tag")
		}
		if rec, ok := byID[id]; ok {
			rec.Tags = append(rec.Tags, tag)
		}
	}
	return rows.Err()
}

func (v *VectorStore) Delete(ctx context.Context, owner, id string) (bool, error) {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "beginning delete transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return false, recallerr.Wrap(err, recallerr.CodeStoreDatabaseFailure, "deleting record",
			recallerr.FieldRecordID(id))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "reading delete result")
	}
	if affected == 0 {
		return false, nil
	}

	// record_tags rows cascade; the vec0 table has no foreign keys.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_records WHERE record_id = ?`, id); err != nil {
		return false, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "deleting vector %s", id)
	}

	if err := tx.Commit(); err != nil {
		return false, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "committing delete")
	}
	return true, nil
}

func (v *VectorStore) Stats(ctx context.Context, owner string) (store.Stats, error) {
	var count int64
	err := v.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE owner = ?`, owner).Scan(&count)
	if err != nil {
		return store.Stats{}, recallerr.Wrap(err, recallerr.CodeStoreDatabaseFailure, "counting records",
			recallerr.FieldOwner(owner))
	}

	stats := store.Stats{Count: count}
	if v.maxRecords > 0 {
		stats.UtilizationPercent = float64(count) / float64(v.maxRecords) * 100
	}
	return stats, nil
}

// TagRowCount returns the number of tag rows for a record. Exposed so
// idempotence can be asserted directly against the join table.
func (v *VectorStore) TagRowCount(ctx context.Context, id string) (int64, error) {
	var count int64
	err := v.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM record_tags WHERE record_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "counting tag rows")
	}
	return count, nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
