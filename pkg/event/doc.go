// Package event はバックエンド関数に渡す呼び出しイベントを定義する。
//
// イベントは文字列キーと文字列値の平坦なマップで、api-handlerフィールドで
// バックエンド側の処理を振り分ける。
package event
