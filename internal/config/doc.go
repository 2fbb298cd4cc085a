// Package config は環境変数からgardenerゲートウェイの設定を読み込む。
//
// すべての設定は起動時に一度だけ読み込む。不正な値は起動失敗として扱う。
package config
