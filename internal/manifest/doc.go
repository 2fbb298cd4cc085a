// Package manifest はビルド時に送られるサービスマニフェスト（SeedInfo）を検証する。
//
// マニフェストはYAMLまたはJSONで送られ、JSONに変換してから必須キーと禁止キーを検査する。
// 検査は純粋な関数で、同じ入力に対して常に同じ結果を返す。
package manifest
