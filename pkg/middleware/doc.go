// Package middleware はgardenerのHTTP APIで使用する共通ミドルウェアを提供する。
//
// トークン認証ゲート（AuthGate）、リクエストID、アクセスログ、パニックリカバリ、
// CORS設定を含む。認証失敗やパニックはHTTPステータスではなく
// 共通レスポンスエンベロープで呼び出し元に返す。
package middleware
