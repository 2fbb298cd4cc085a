// Package gateway はgardenerゲートウェイのHTTPサーバーを提供する。
//
// ファームとサービスを操作するリクエストを認証し、バックエンド関数の呼び出しイベントに
// 変換して、戻り値を共通のJSONエンベロープで返す。バイト列をそのまま中継することはなく、
// 1リクエストにつき1回だけバックエンドを呼び出す。
package gateway
