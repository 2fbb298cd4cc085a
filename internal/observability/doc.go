// Package observability はgardenerのログ、メトリクス、トレーシングの初期化を提供する。
//
// ログはzap、メトリクスはPrometheus、トレーシングはOpenTelemetryを使用する。
// いずれも明示的に生成してサーバーに注入し、グローバル状態には依存しない。
package observability
