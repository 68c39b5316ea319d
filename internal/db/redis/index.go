package redis

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/db"
)

// Replies Redis and Valkey give for a missing index.
var unknownIndexReplies = []string{"unknown index name", "no such index"}

func isUnknownIndex(err error) bool {
	for _, reply := range unknownIndexReplies {
		if isRedisErr(err, reply) {
			return true
		}
	}
	return false
}

// CreateIndex runs FT.CREATE for schema. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, schema *db.Schema) error {
	args, err := schema.CreateArgs()
	if err != nil {
		return err
	}

	err = s.do(ctx, s.b().Arbitrary(string(db.OpCreateIndex)).Args(args...).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isRedisErr(err, "index already exists"):
		return db.ErrIndexExists
	default:
		return &db.Error{Op: db.OpCreateIndex, Target: schema.Name, Err: err}
	}
}

// DropIndex runs FT.DROPINDEX. With deleteDocs the indexed hashes go too (DD).
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs {
		args = append(args, "DD")
	}

	err := s.do(ctx, s.b().Arbitrary(string(db.OpDropIndex)).Args(args...).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isUnknownIndex(err):
		return db.ErrIndexNotFound
	default:
		return &db.Error{Op: db.OpDropIndex, Target: name, Err: err}
	}
}

// IndexExists asks FT.INFO about name.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, s.b().Arbitrary(string(db.OpIndexInfo)).Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case isUnknownIndex(err):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Target: name, Err: err}
	}
}
