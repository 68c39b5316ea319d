// Package entry stores catalog entries as Redis/Valkey hashes behind an FT vector index.
package entry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/db/redis"
	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
)

// Hash field names outside the metadata set.
const (
	fieldContent = "__content"
	fieldName    = "__name"
	fieldVector  = "__vector"
	vectorAlias  = "vector"
)

var returnFields = []string{
	fieldContent, fieldName,
	catalog.FieldID, catalog.FieldCategory, catalog.FieldBrand,
	catalog.FieldPrice, catalog.FieldLikes, catalog.FieldIsNew,
}

// store is the consumer interface for catalog entries (ISP).
//
//nolint:interfacebloat // entry repo needs hash + index + search operations
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, schema *db.Schema) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements usecase/index.Repository on top of FT.SEARCH.
type Repo struct {
	store store
	cfg   domain.IndexConfig
}

// New creates an entry repository for one collection.
func New(s store, cfg domain.IndexConfig) *Repo {
	return &Repo{store: s, cfg: cfg}
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.cfg.Collection)
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, r.cfg.Collection)
}

func (r *Repo) key(id string) string {
	return r.keyPrefix() + id
}

// EnsureIndex creates the FT index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := buildSchema(r.indexName(), r.keyPrefix(), r.cfg)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Upsert replaces the hashes of all entries in one transaction.
func (r *Repo) Upsert(ctx context.Context, entries []catalog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(entries))
	for i := range entries {
		items = append(items, db.HashSetItem{
			Key:    r.key(entries[i].ID),
			Fields: entryToHash(&entries[i]),
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d entries: %w", len(entries), err)
	}
	return nil
}

// Search returns up to limit entries matching pred, closest first.
func (r *Repo) Search(
	ctx context.Context, vector []float32, pred filter.Predicate, limit int,
) ([]result.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Predicate:    pred,
		Vector:       vector,
		K:            limit,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.Collection, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	prefix := r.keyPrefix()
	candidates := make([]result.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		candidates = append(candidates, hashToCandidate(strings.TrimPrefix(e.Key, prefix), e))
	}
	result.SortByDistance(candidates)
	return result.Limit(candidates, limit), nil
}

// Count returns the number of indexed entries. A missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", r.cfg.Collection, err)
	}
	return n, nil
}

// DeleteAll drops the index with its hashes, removes stragglers and recreates an empty index.
func (r *Repo) DeleteAll(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName(), true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan leftovers: %w", err)
	}
	if len(keys) > 0 {
		if _, err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete leftovers: %w", err)
		}
	}

	return r.EnsureIndex(ctx)
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func buildSchema(name, prefix string, cfg domain.IndexConfig) (*db.Schema, error) {
	algo, err := db.ParseVectorAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	schema := &db.Schema{
		Name:   name,
		Prefix: prefix,
		Fields: []db.Field{
			db.TagField(catalog.FieldID),
			db.TagField(catalog.FieldCategory),
			db.TagField(catalog.FieldBrand),
			db.NumericField(catalog.FieldPrice),
			db.NumericField(catalog.FieldLikes),
			db.NumericField(catalog.FieldIsNew),
			db.VectorField(fieldVector, vectorAlias, db.VectorSpec{
				Algorithm:      algo,
				Dim:            cfg.Dimensions,
				Metric:         db.DistanceCosine,
				M:              cfg.HNSWM,
				EFConstruction: cfg.HNSWEFConstr,
			}),
		},
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

func entryToHash(e *catalog.Entry) map[string]string {
	fields := make(map[string]string, 9)
	fields[fieldContent] = e.DocumentText
	fields[fieldName] = e.Name
	fields[fieldVector] = redis.VectorToBytes(e.Embedding)
	for k, v := range e.Metadata.Tags() {
		fields[k] = v
	}
	for k, v := range e.Metadata.Numerics() {
		fields[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fields
}

func hashToCandidate(id string, e db.SearchEntry) result.Candidate {
	tags := make(map[string]string, 3)
	numerics := make(map[string]float64, 3)
	for k, v := range e.Fields {
		switch k {
		case catalog.FieldID, catalog.FieldCategory, catalog.FieldBrand:
			tags[k] = v
		case catalog.FieldPrice, catalog.FieldLikes, catalog.FieldIsNew:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				numerics[k] = f
			}
		}
	}
	return result.Candidate{
		ID:       id,
		Name:     e.Fields[fieldName],
		Document: e.Fields[fieldContent],
		Metadata: catalog.MetadataFromFields(tags, numerics),
		Distance: e.Distance,
	}
}
