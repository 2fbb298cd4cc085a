package response

import (
	"encoding/json"
	"fmt"
)

// Status はレスポンスの成否を表す。
type Status int

const (
	// StatusSuccess は処理が成功したことを表す。
	StatusSuccess Status = iota
	// StatusError は処理が失敗したことを表す。
	StatusError
)

// String はワイヤ上の表現を返す。
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusError:
		return "Error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalJSON は "Success" / "Error" の文字列としてシリアライズする。
func (s Status) MarshalJSON() ([]byte, error) {
	switch s {
	case StatusSuccess, StatusError:
		return json.Marshal(s.String())
	default:
		return nil, fmt.Errorf("不明なステータス: %d", int(s))
	}
}

// UnmarshalJSON は "Success" / "Error" の文字列を読み込む。
func (s *Status) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("ステータスのデシリアライズに失敗: %w", err)
	}
	switch v {
	case "Success":
		*s = StatusSuccess
	case "Error":
		*s = StatusError
	default:
		return fmt.Errorf("不明なステータス: %q", v)
	}
	return nil
}

// Envelope は全ルート共通のレスポンス。
// Message と Data はどちらか一方だけを設定する。コンストラクタ経由で生成すること。
type Envelope struct {
	// Status は処理結果。
	Status Status `json:"status"`
	// Message はエラー理由。エラー時のみ設定する。
	Message string `json:"message,omitempty"`
	// Data はバックエンドから得た構造化データ。
	Data any `json:"data,omitempty"`
}

// Success はペイロードなしの成功レスポンスを返す。
func Success() Envelope {
	return Envelope{Status: StatusSuccess}
}

// Error はメッセージ付きのエラーレスポンスを返す。
func Error(message string) Envelope {
	return Envelope{Status: StatusError, Message: message}
}

// WithData は構造化データ付きのレスポンスを返す。
func WithData(status Status, data any) Envelope {
	return Envelope{Status: status, Data: data}
}

// FailedAuthMessage は認証失敗時の固定メッセージ。
const FailedAuthMessage = "Failed authentication"

// FailedAuth は認証失敗時の標準レスポンスを返す。
func FailedAuth() Envelope {
	return Error(FailedAuthMessage)
}
