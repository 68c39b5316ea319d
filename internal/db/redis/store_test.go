package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
)

func newTestStore(c rueidis.Client) *Store {
	return &Store{client: c}
}

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := newTestStore(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := newTestStore(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

// --- hash.go tests ---

func TestHSetMulti_Transaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			out := make([]rueidis.RedisResult, len(cmds))
			for i, cmd := range cmds {
				sent = append(sent, cmd.Commands())
				out[i] = mock.Result(mock.RedisString("QUEUED"))
			}
			return out
		})

	s := newTestStore(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"MULTI", "DEL", "HSET", "DEL", "HSET", "EXEC"}
	if len(sent) != len(want) {
		t.Fatalf("expected %d commands, got %d", len(want), len(sent))
	}
	for i, name := range want {
		if sent[i][0] != name {
			t.Errorf("command %d = %s, want %s", i, sent[i][0], name)
		}
	}
	if sent[1][1] != "k1" || sent[4][1] != "k2" {
		t.Errorf("unexpected keys: %v / %v", sent[1], sent[4])
	}
}

func TestHSetMulti_ExecAborted(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisError("EXECABORT Transaction discarded")),
		})

	s := newTestStore(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !db.IsCommandError(err, db.OpMulti) {
		t.Errorf("expected MULTI db.Error, got %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := newTestStore(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelMulti(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "a", "b")).
		Return(mock.Result(mock.RedisInt64(2)))

	s := newTestStore(c)
	n, err := s.DelMulti(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
}

func TestDelMulti_Empty(t *testing.T) {
	s := newTestStore(nil)
	n, err := s.DelMulti(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got %d, %v", n, err)
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42), // cursor=42 means more
					mock.RedisArray(mock.RedisString("key1")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0), // cursor=0 means done
				mock.RedisArray(mock.RedisString("key2")),
			))
		}).Times(2)

	s := newTestStore(c)
	keys, err := s.Scan(context.Background(), "prefix:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

// --- kv.go tests ---

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := newTestStore(c)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := newTestStore(c)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 60_000_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisString("OK"))
		})

	schema := &db.Schema{
		Name:   "catalog:idx",
		Prefix: "catalog:",
		Fields: []db.Field{
			db.TagField("brand"),
			db.NumericField("price"),
			db.VectorField("__vector", "vector", db.VectorSpec{Dim: 384, M: 16, EFConstruction: 200}),
		},
	}

	s := newTestStore(c)
	if err := s.CreateIndex(context.Background(), schema); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "FT.CREATE catalog:idx ON HASH PREFIX 1 catalog: SCHEMA brand TAG CASESENSITIVE price NUMERIC " +
		"__vector AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if strings.Join(got, " ") != want {
		t.Errorf("got  %s\nwant %s", strings.Join(got, " "), want)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := newTestStore(c)
	idx := &db.Schema{Name: "test:idx", Fields: []db.Field{db.TagField("f")}}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidDefinition(t *testing.T) {
	s := newTestStore(nil)
	err := s.CreateIndex(context.Background(), &db.Schema{Name: "idx"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDropIndex_DeleteDocs(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx", "DD")).
		Return(mock.Result(mock.RedisString("OK")))

	s := newTestStore(c)
	if err := s.DropIndex(context.Background(), "idx", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := newTestStore(c)
	err := s.DropIndex(context.Background(), "idx", false)
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "present")).
		Return(mock.Result(mock.RedisArray()))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "absent")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := newTestStore(c)
	if ok, err := s.IndexExists(context.Background(), "present"); err != nil || !ok {
		t.Errorf("present: got %v, %v", ok, err)
	}
	if ok, err := s.IndexExists(context.Background(), "absent"); err != nil || ok {
		t.Errorf("absent: got %v, %v", ok, err)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(1), // total
				mock.RedisString("catalog:product_catalog:mugs_0"),
				mock.RedisArray(
					mock.RedisString("__vector_score"),
					mock.RedisString("0.1"),
					mock.RedisString("__content"),
					mock.RedisString("red mug"),
				),
			))
		})

	cat, _ := filter.NewMatch("category", "kitchen")
	p, _ := filter.NewPredicate(cat)

	s := newTestStore(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "idx",
		Predicate:    p,
		Vector:       []float32{0.1, 0.2},
		K:            5,
		ReturnFields: []string{"__content"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	e := result.Entries[0]
	if e.Distance != 0.1 {
		t.Errorf("expected raw distance 0.1, got %f", e.Distance)
	}
	if _, ok := e.Fields[ScoreField]; ok {
		t.Error("score field must be stripped from fields")
	}
	if e.Fields["__content"] != "red mug" {
		t.Errorf("unexpected fields %v", e.Fields)
	}

	if got[2] != "(@category:{kitchen})=>[KNN 5 @vector $BLOB]" {
		t.Errorf("unexpected query %q", got[2])
	}
	joined := strings.Join(got, " ")
	for _, part := range []string{"RETURN 2 __content __vector_score", "SORTBY __vector_score ASC", "LIMIT 0 5", "DIALECT 2"} {
		if !strings.Contains(joined, part) {
			t.Errorf("expected %q in %q", part, joined)
		}
	}
}

func TestSearchKNN_NonFiniteScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("catalog:product_catalog:a_0"),
			mock.RedisArray(mock.RedisString("__vector_score"), mock.RedisString("nan")),
			mock.RedisString("catalog:product_catalog:b_0"),
			mock.RedisArray(mock.RedisString("__vector_score"), mock.RedisString("-inf")),
		)))

	s := newTestStore(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0, 0},
		K:         5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	for _, e := range result.Entries {
		if e.Distance != 1 {
			t.Errorf("%s: expected distance 1, got %v", e.Key, e.Distance)
		}
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := newTestStore(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := newTestStore(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         5,
	})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch || dbErr.Target != "idx" {
		t.Fatalf("expected FT.SEARCH idx db.Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected cause preserved, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	tests := []struct {
		name string
		q    *db.KNNQuery
	}{
		{"no index", &db.KNNQuery{Vector: []float32{1}, K: 1}},
		{"no vector", &db.KNNQuery{IndexName: "idx", K: 1}},
		{"zero k", &db.KNNQuery{IndexName: "idx", Vector: []float32{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.SearchKNN(ctx, tt.q); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSearchCount_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "*", "LIMIT", "0", "0")).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(42))))

	s := newTestStore(c)
	count, err := s.SearchCount(context.Background(), "idx", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Errorf("expected 42, got %d", count)
	}
}

func TestSearchCount_MissingIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("idx: no such index")))

	s := newTestStore(c)
	_, err := s.SearchCount(context.Background(), "idx", "*")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

// --- Filter building tests ---

func TestBuildFilter(t *testing.T) {
	floatPtr := func(f float64) *float64 { return &f }

	brand, _ := filter.NewMatch("brand", "Acme Co.")
	between, _ := filter.Between(0, 15)
	price, _ := filter.NewRange("price", between)
	excl, _ := filter.NewRangeFilter(floatPtr(1.5), nil, nil, nil)
	likes, _ := filter.NewRange("likes_count", excl)

	tests := []struct {
		name  string
		conds []filter.Condition
		want  string
	}{
		{"empty", nil, ""},
		{"tag escaped", []filter.Condition{brand}, `@brand:{Acme\ Co\.}`},
		{"inclusive range", []filter.Condition{price}, "@price:[0 15]"},
		{"exclusive lower", []filter.Condition{likes}, "@likes_count:[(1.5 +inf]"},
		{"conjunction", []filter.Condition{brand, price}, `@brand:{Acme\ Co\.} @price:[0 15]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := filter.NewPredicate(tt.conds...)
			if err != nil {
				t.Fatalf("predicate: %v", err)
			}
			if got := buildFilter(p); got != tt.want {
				t.Errorf("buildFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildKNNQuery_Unfiltered(t *testing.T) {
	if got := buildKNNQuery(filter.Predicate{}, 5); got != "*=>[KNN 5 @vector $BLOB]" {
		t.Errorf("unexpected query %q", got)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{1.0, -2.5, 0}
	b := VectorToBytes(v)
	if len(b) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(b))
	}
	back, err := BytesToVector(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range v {
		if back[i] != v[i] {
			t.Errorf("component %d: %v != %v", i, back[i], v[i])
		}
	}
	if _, err := BytesToVector("abc"); err == nil {
		t.Error("expected error for truncated blob")
	}
}
