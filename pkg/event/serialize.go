package event

import (
	"encoding/json"
	"fmt"
	"slices"
)

// New は振り分け識別子だけを持つイベントを生成する。
func New(h Handler) Event {
	return Event{KeyHandler: string(h)}
}

// Handler はイベントの振り分け識別子を返す。
func (e Event) Handler() Handler {
	return Handler(e[KeyHandler])
}

// Known は定義済みのHandlerかどうかを返す。
func (h Handler) Known() bool {
	return slices.Contains(Handlers, h)
}

// Set はフィールドを設定する。振り分け識別子は上書きできない。
func (e Event) Set(key, value string) Event {
	if key == KeyHandler {
		return e
	}
	e[key] = value
	return e
}

// SetOptional は値が空でない場合だけフィールドを設定し、設定したかどうかを返す。
// 任意ヘッダー由来の値に使い、欠落はエラーにしない。
func (e Event) SetOptional(key, value string) bool {
	if value == "" {
		return false
	}
	e.Set(key, value)
	return true
}

// Marshal はイベントをJSONペイロードにシリアライズする。
func (e Event) Marshal() ([]byte, error) {
	h := e.Handler()
	if h == "" {
		return nil, fmt.Errorf("イベントに%sがありません", KeyHandler)
	}
	if !h.Known() {
		return nil, fmt.Errorf("不明な%sです: %q", KeyHandler, h)
	}
	b, err := json.Marshal(map[string]string(e))
	if err != nil {
		return nil, fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	return b, nil
}

// Decode はJSONペイロードをイベントにデシリアライズする。
// ローカルのバックエンドエミュレータとテストで使用する。
func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("イベントのデシリアライズに失敗: %w", err)
	}
	return e, nil
}
