// Package invocation はHTTPリクエストをバックエンド関数の呼び出しに変換する。
//
// バックエンド関数の戻り値は型の無い文字列で、エラーも正常な結果も同じ形で返ってくる。
// このパッケージは先頭の語でエラーを判定し、二重にエンコードされたJSONを取り出す。
package invocation
