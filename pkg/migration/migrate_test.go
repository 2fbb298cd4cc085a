package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestRun はマイグレーションの適用を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/000002_add_index.up.sql":      {Data: []byte(`CREATE INDEX idx_items_name ON items (name);`)},
		"migrations/000001_create_items.up.sql":   {Data: []byte(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`)},
		"migrations/000001_create_items.down.sql": {Data: []byte(`DROP TABLE items;`)},
		"migrations/README.md":                    {Data: []byte(`ignored`)},
	}

	t.Run("バージョン順に適用されること", func(t *testing.T) {
		t.Parallel()

		db := openMemoryDB(t)
		done, err := Run(context.Background(), db, fsys, "migrations", nil)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, done)

		_, err = db.Exec(`INSERT INTO items (name) VALUES ('a')`)
		assert.NoError(t, err)
	})

	t.Run("2回目の実行では何も適用されないこと", func(t *testing.T) {
		t.Parallel()

		db := openMemoryDB(t)
		_, err := Run(context.Background(), db, fsys, "migrations", nil)
		require.NoError(t, err)

		done, err := Run(context.Background(), db, fsys, "migrations", nil)
		require.NoError(t, err)
		assert.Empty(t, done)
	})

	t.Run("不正なSQLはエラーになり以降は適用されないこと", func(t *testing.T) {
		t.Parallel()

		bad := fstest.MapFS{
			"m/000001_ok.up.sql":     {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
			"m/000002_broken.up.sql": {Data: []byte(`CREATE TABL b;`)},
			"m/000003_later.up.sql":  {Data: []byte(`CREATE TABLE c (id INTEGER);`)},
		}
		db := openMemoryDB(t)
		done, err := Run(context.Background(), db, bad, "m", nil)
		assert.Error(t, err)
		assert.Equal(t, []int{1}, done)

		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("ディレクトリが存在しない場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := Run(context.Background(), openMemoryDB(t), fstest.MapFS{}, "missing", nil)
		assert.Error(t, err)
	})
}
