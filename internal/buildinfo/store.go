// Package buildinfo はビルドごとのサービスマニフェスト（FarmBuildVersionテーブル）を参照する。
//
// デプロイ時はサービス名とバージョン文字列からビルド時に登録されたマニフェストJSONを引く。
package buildinfo

import (
	"context"
	"errors"
)

// ErrNotFound は指定したサービスとバージョンの組が登録されていないことを表す。
var ErrNotFound = errors.New("ビルド情報が見つかりません")

// Record はFarmBuildVersionテーブルの1行。
type Record struct {
	// ServiceName はサービス名（パーティションキー）。
	ServiceName string
	// BuildNumber はバージョン文字列（ソートキー）。例: "20181111-14-1b178b52-master"
	BuildNumber string
	// ServiceInfo はマニフェストのJSONテキスト。
	ServiceInfo string
}

// Store はビルド情報の保存先。
type Store interface {
	// Get はマニフェストのJSONテキストを返す。存在しない場合はErrNotFoundを返す。
	Get(ctx context.Context, serviceName, buildNumber string) (string, error)
	// Put はビルド情報を保存する。同じキーの行は上書きする。
	Put(ctx context.Context, rec Record) error
}
