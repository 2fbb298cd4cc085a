package buildinfo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/gardener/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// SQLiteStore はローカル実行用にSQLiteファイルを使うStore。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite はSQLiteデータベースを開いてスキーマを適用する。
// pathに ":memory:" を指定するとインメモリデータベースになる。
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// インメモリデータベースは接続ごとに別物になるため1本に制限する
	db.SetMaxOpenConns(1)

	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get はマニフェストのJSONテキストを返す。
func (s *SQLiteStore) Get(ctx context.Context, serviceName, buildNumber string) (string, error) {
	var info string
	err := s.db.QueryRowContext(ctx,
		`SELECT service_info FROM farm_build_version WHERE service_name = ? AND build_number = ?`,
		serviceName, buildNumber,
	).Scan(&info)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("ビルド情報の取得に失敗: %w", err)
	}
	return info, nil
}

// Put はビルド情報を保存する。
func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO farm_build_version (service_name, build_number, service_info)
		VALUES (?, ?, ?)
		ON CONFLICT (service_name, build_number) DO UPDATE SET service_info = excluded.service_info
	`, rec.ServiceName, rec.BuildNumber, rec.ServiceInfo)
	if err != nil {
		return fmt.Errorf("ビルド情報の保存に失敗: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
