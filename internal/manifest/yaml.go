package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLToJSON はYAMLドキュメントをJSONテキストに変換する。JSONはYAMLとしても有効なのでそのまま受け付ける。
// マッピングのキー順は入力の順序を保つ。複数ドキュメントの場合は先頭だけを使う。
// エラーはそのままクライアントに返るため英語で記述する。
func YAMLToJSON(src []byte) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return "", fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return "", errors.New("invalid YAML: empty document")
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, doc.Content[0], 0); err != nil {
		return "", fmt.Errorf("cannot convert to JSON: %w", err)
	}
	if buf.Len() > MaxOutputBytes {
		return "", fmt.Errorf("cannot convert to JSON: %w", ErrOutputTooLarge)
	}
	return buf.String(), nil
}

const (
	// maxDepth はエイリアスの循環などで無限に再帰しないための上限。
	maxDepth = 64
	// MaxOutputBytes は変換後のJSONの上限。エイリアスの展開で入力より大きくなる場合がある。
	MaxOutputBytes = 1 << 20
)

// ErrOutputTooLarge は変換後のJSONがMaxOutputBytesを超えたことを表す。
var ErrOutputTooLarge = fmt.Errorf("converted document exceeds %d bytes", MaxOutputBytes)

func writeNode(buf *bytes.Buffer, n *yaml.Node, depth int) error {
	if depth > maxDepth {
		return errors.New("nesting too deep")
	}
	// 各ノードが一度に書き込む量は入力の大きさまでなので、ノードごとの確認で足りる
	if buf.Len() > MaxOutputBytes {
		return ErrOutputTooLarge
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0], depth+1)
	case yaml.AliasNode:
		return writeNode(buf, n.Alias, depth+1)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(keyString(n.Content[i]))
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1], depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, c, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	default:
		return fmt.Errorf("unsupported YAML node kind %d", n.Kind)
	}
}

// keyString はマッピングのキーを文字列にする。
func keyString(n *yaml.Node) string {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n.Value
}
