package migrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEmbeddedCreatesTables(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	schema, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	names, err := schema.Apply(ctx, db)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(names) != len(schema.Steps()) {
		t.Fatalf("applied %v, want all %d steps", names, len(schema.Steps()))
	}

	for _, table := range []string{"slide_snapshots", "deal_log", "schema_migrations"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT table_name FROM information_schema.tables WHERE table_name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	schema, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}

	if _, err := schema.Apply(ctx, db); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	names, err := schema.Apply(ctx, db)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("second Apply ran %v, want nothing", names)
	}
}

func TestLoadOrdersAndRejectsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		want    []int
		wantErr bool
	}{
		{
			name: "sorted by version",
			files: fstest.MapFS{
				"m/010_b.sql": {Data: []byte("SELECT 1")},
				"m/002_a.sql": {Data: []byte("SELECT 1")},
			},
			want: []int{2, 10},
		},
		{
			name:    "missing prefix",
			files:   fstest.MapFS{"m/init.sql": {Data: []byte("SELECT 1")}},
			wantErr: true,
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/001_a.sql": {Data: []byte("SELECT 1")},
				"m/1_b.sql":   {Data: []byte("SELECT 2")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := Load(tt.files, "m")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			var got []int
			for _, st := range schema.Steps() {
				got = append(got, st.Version)
			}
			if len(got) != len(tt.want) || got[0] != tt.want[0] || got[1] != tt.want[1] {
				t.Fatalf("versions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModifiedStepIsDetected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v1, err := Load(fstest.MapFS{
		"m/001_t.sql": {Data: []byte("CREATE TABLE t (id INTEGER)")},
	}, "m")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := v1.Apply(ctx, db); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	edited, err := Load(fstest.MapFS{
		"m/001_t.sql": {Data: []byte("CREATE TABLE t (id BIGINT)")},
		"m/002_u.sql": {Data: []byte("CREATE TABLE u (id INTEGER)")},
	}, "m")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := edited.Apply(ctx, db); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Apply error = %v, want ErrChecksumMismatch", err)
	}
}
