// Package httpclient はHTTP経由でバックエンドを呼び出すクライアントを提供する。
//
// ローカル開発時にLambda Runtime Interface Emulatorへイベントを送信する用途で使用する。
// ペイロードはバイト列のまま送受信し、解釈は呼び出し側に任せる。
package httpclient
