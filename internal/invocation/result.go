package invocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Result はバックエンド関数の戻り値。生成後は変更しない。
type Result struct {
	// Raw は戻り値のバイト列。
	Raw []byte
	// IsError は戻り値がエラーを表すかどうか。
	IsError bool
	// PayloadString は戻り値の文字列表現。
	PayloadString string
}

// NewResult は戻り値からResultを生成する。
func NewResult(raw []byte) Result {
	s := string(raw)
	return Result{Raw: raw, IsError: LooksLikeError(s), PayloadString: s}
}

// LooksLikeError は戻り値がエラーを表すかどうかを判定する。
// 大文字化して二重引用符と一重引用符をすべて取り除き、前後の空白を削った結果が
// ERRORまたはFAILで始まる場合にエラーとみなす。"FAILOVER_OK" のような値も
// エラーと判定されるが、バックエンド関数との取り決めなのでそのまま扱う。
func LooksLikeError(payload string) bool {
	s := strings.ToUpper(payload)
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, `'`, "")
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "ERROR") || strings.HasPrefix(s, "FAIL")
}

// DecodeError は戻り値をJSONとして解釈できなかったことを表す。
type DecodeError struct {
	// Input は解釈しようとした文字列。
	Input string
	// Err は解析時のエラー。
	Err error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Unwrap は文字列としてエンコードされたJSONを取り出す。
// \" を " に置き換えて前後の空白を削り、先頭の " と末尾の " をそれぞれ独立に1つだけ取り除いてから解析する。
// 片側だけに引用符がある場合もその片側だけを取り除く。
func Unwrap(payload string) (any, error) {
	p := strings.ReplaceAll(payload, `\"`, `"`)
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, `"`)
	p = strings.TrimPrefix(p, `"`)
	return ParseJSON(p)
}

// ParseJSON は戻り値をそのままJSONとして解析する。
func ParseJSON(payload string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &DecodeError{Input: payload, Err: err}
	}
	// 値の後に空白以外が続く場合も解析失敗とする。余分な閉じ括弧はMoreでは検出できない
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Input: payload, Err: errors.New("invalid character after top-level value")}
	}
	return v, nil
}

// StripQuotes は末尾と先頭の二重引用符をそれぞれ1つだけ取り除く。空白は削らない。
func StripQuotes(payload string) string {
	p := strings.TrimSuffix(payload, `"`)
	return strings.TrimPrefix(p, `"`)
}

// RemapDesiredState はサービスの希望状態をクライアント向けの形に変換する。
// stateMapがあればその値をstateに移し、serviceJsonは取り除く。
// 入力のマップを直接変更する。
func RemapDesiredState(v any) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &DecodeError{Input: fmt.Sprint(v), Err: fmt.Errorf("expected a JSON object, got %T", v)}
	}
	if stateMap, ok := obj["stateMap"]; ok {
		obj["state"] = stateMap
		delete(obj, "stateMap")
	}
	delete(obj, "serviceJson")
	return obj, nil
}
