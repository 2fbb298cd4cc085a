package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandlers はHandler定数の値を検証する。
func TestHandlers(t *testing.T) {
	t.Parallel()

	want := []string{
		"get-state",
		"report-state",
		"update-service",
		"change-service-mode",
		"delete-service",
		"get-farm-inspect",
		"get-service-desired-state",
		"post-service-build-info",
		"get-service-status-everywhere",
	}
	require.Len(t, Handlers, len(want))
	for i, h := range Handlers {
		assert.Equal(t, want[i], string(h))
	}
}

// TestEvent はイベントの組み立てを検証する。
func TestEvent(t *testing.T) {
	t.Parallel()

	t.Run("振り分け識別子が常に含まれること", func(t *testing.T) {
		t.Parallel()

		e := New(HandlerGetState).Set(KeyFarmName, "blue").Set(KeyAZ, "us-east-1a")
		assert.Equal(t, HandlerGetState, e.Handler())

		b, err := e.Marshal()
		require.NoError(t, err)
		assert.JSONEq(t, `{"api-handler":"get-state","farmName":"blue","az":"us-east-1a"}`, string(b))
	})

	t.Run("Setで振り分け識別子が上書きされないこと", func(t *testing.T) {
		t.Parallel()

		e := New(HandlerDeleteService).Set(KeyHandler, "get-state")
		assert.Equal(t, HandlerDeleteService, e.Handler())
	})

	t.Run("空の任意値は設定されないこと", func(t *testing.T) {
		t.Parallel()

		e := New(HandlerChangeServiceMode)
		assert.False(t, e.SetOptional(KeyUser, ""))
		assert.True(t, e.SetOptional(KeyRepoURL, "git@example.com:x.git"))

		_, hasUser := e[KeyUser]
		assert.False(t, hasUser)
		assert.Equal(t, "git@example.com:x.git", e[KeyRepoURL])
	})

	t.Run("振り分け識別子の無いイベントはシリアライズできないこと", func(t *testing.T) {
		t.Parallel()

		_, err := Event{KeyFarmName: "blue"}.Marshal()
		assert.Error(t, err)
	})

	t.Run("定義されていない振り分け識別子はシリアライズできないこと", func(t *testing.T) {
		t.Parallel()

		assert.False(t, Handler("get-everything").Known())
		_, err := New("get-everything").Set(KeyFarmName, "blue").Marshal()
		assert.Error(t, err)

		for _, h := range Handlers {
			assert.True(t, h.Known(), h)
		}
	})

	t.Run("シリアライズしたイベントを復元できること", func(t *testing.T) {
		t.Parallel()

		b, err := New(HandlerReportState).Set(KeyState, `{"ok":true}`).Marshal()
		require.NoError(t, err)

		got, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, HandlerReportState, got.Handler())
		assert.Equal(t, `{"ok":true}`, got[KeyState])
	})

	t.Run("不正なペイロードはエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("not json"))
		assert.Error(t, err)
	})
}
