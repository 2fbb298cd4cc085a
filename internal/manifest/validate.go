package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// requiredKeys はトップレベルに必須のキー。この順で報告する。
	requiredKeys = []string{"service_name", "target", "docker"}
	// requiredDockerKeys はdocker配下に必須のキー。この順で報告する。
	requiredDockerKeys = []string{"cpu", "mem", "ports"}
	// restrictedKeys はバックエンドが管理するため利用者が指定できないキー。
	restrictedKeys = map[string]struct{}{
		"repo":          {},
		"version":       {},
		"state":         {},
		"target_region": {},
	}
)

// Result は検証結果。
type Result struct {
	// MissingKeys は不足している必須キー。docker配下は "docker:<key>" で表す。
	MissingKeys []string
	// RestrictedKeys は含まれていた禁止キー（昇順）。
	RestrictedKeys []string
	// ParseErr はJSONオブジェクトとして解釈できなかった場合のエラー。
	// メッセージはそのままクライアントに返るため英語で記述する。
	ParseErr error
}

// OK は検証に通ったかどうかを返す。
func (r Result) OK() bool {
	return r.ParseErr == nil && len(r.MissingKeys) == 0 && len(r.RestrictedKeys) == 0
}

// Validate はJSONテキストのマニフェストを検証する。
func Validate(jsonText string) Result {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &root); err != nil {
		return Result{ParseErr: fmt.Errorf("not a JSON object: %w", err)}
	}
	if root == nil {
		return Result{ParseErr: errors.New("not a JSON object: null")}
	}

	var res Result
	for k := range root {
		if _, ok := restrictedKeys[k]; ok {
			res.RestrictedKeys = append(res.RestrictedKeys, k)
		}
	}
	sort.Strings(res.RestrictedKeys)

	for _, k := range requiredKeys {
		if _, ok := root[k]; !ok {
			res.MissingKeys = append(res.MissingKeys, k)
		}
	}

	if rawDocker, ok := root["docker"]; ok {
		// dockerがオブジェクトでない場合は配下のキーがすべて不足しているものとして扱う
		var docker map[string]json.RawMessage
		_ = json.Unmarshal(rawDocker, &docker)
		for _, k := range requiredDockerKeys {
			if _, ok := docker[k]; !ok {
				res.MissingKeys = append(res.MissingKeys, "docker:"+k)
			}
		}
	}

	return res
}

// ErrorMessage は検証失敗時にクライアントへ返すメッセージを組み立てる。
// 例: "ERROR: SeedInfo file keys. Missing keys: target,docker:cpu. Restricted keys: repo."
func ErrorMessage(r Result) string {
	var b strings.Builder
	b.WriteString("ERROR: SeedInfo file keys.")
	if r.ParseErr != nil {
		fmt.Fprintf(&b, " Invalid JSON. error: %s.", r.ParseErr)
		return b.String()
	}
	if len(r.MissingKeys) > 0 {
		b.WriteString(" Missing keys: ")
		b.WriteString(strings.Join(r.MissingKeys, ","))
		b.WriteString(".")
	}
	if len(r.RestrictedKeys) > 0 {
		b.WriteString(" Restricted keys: ")
		b.WriteString(strings.Join(r.RestrictedKeys, ","))
		b.WriteString(".")
	}
	return b.String()
}
