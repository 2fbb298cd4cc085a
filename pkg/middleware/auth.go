package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/gardener/pkg/response"
)

// FlagSource は認証を強制するかどうかの動的フラグを返す。
type FlagSource interface {
	// Get はtrueなら強制モード、falseなら許容（テスト）モードを表す。
	Get(ctx context.Context) bool
}

// AuthObserver は認可判定を記録する。
type AuthObserver interface {
	ObserveAuth(mode string, allowed bool)
}

const (
	modeEnforcing  = "enforcing"
	modePermissive = "permissive"

	// contextKeyClaims は検証済みクレームをGinコンテキストに格納するキー。
	contextKeyClaims = "gardener.claims"
)

// AuthGate はAuthorizationヘッダーからリクエストを通すかどうかを決める。
type AuthGate struct {
	verifier Verifier
	flag     FlagSource
	logger   *zap.Logger
	observer AuthObserver
}

// NewAuthGate は新しいAuthGateを生成する。
// flagがnilの場合、AuthorizeWithFlagも常に強制モードで動作する。
func NewAuthGate(verifier Verifier, flag FlagSource, logger *zap.Logger, observer AuthObserver) *AuthGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthGate{
		verifier: verifier,
		flag:     flag,
		logger:   logger,
		observer: observer,
	}
}

// Authorize は常に強制モードで判定する。farm/serviceの各ルートはこちらを使う。
func (g *AuthGate) Authorize(authHeader string) bool {
	ok, _ := g.decide(authHeader, true)
	return ok
}

// AuthorizeWithFlag はFlagSourceの値に従って強制モードか許容モードで判定する。
func (g *AuthGate) AuthorizeWithFlag(ctx context.Context, authHeader string) bool {
	ok, _ := g.decide(authHeader, g.enforcing(ctx))
	return ok
}

func (g *AuthGate) enforcing(ctx context.Context) bool {
	if g.flag == nil {
		return true
	}
	return g.flag.Get(ctx)
}

// decide は判定本体。許容モードは拒否せず、ログの内容だけが変わる。
func (g *AuthGate) decide(authHeader string, enforcing bool) (bool, *JWTClaims) {
	mode := modePermissive
	if enforcing {
		mode = modeEnforcing
	}

	allowed, claims := g.check(authHeader, enforcing)
	if g.observer != nil {
		g.observer.ObserveAuth(mode, allowed)
	}
	return allowed, claims
}

func (g *AuthGate) check(authHeader string, enforcing bool) (bool, *JWTClaims) {
	if strings.TrimSpace(authHeader) == "" {
		g.logger.Info("認証トークンがありません", zap.Bool("enforcing", enforcing))
		return !enforcing, nil
	}

	token := ParseAuthHeader(authHeader)
	g.logger.Info("認証トークン", zap.String("token", RedactToken(token)))

	valid, claims, err := g.verify(token)
	switch {
	case err != nil:
		g.logger.Error("トークン検証でエラーが発生", zap.Error(err), zap.Bool("enforcing", enforcing))
	case !valid:
		g.logger.Info("無効なトークン", zap.String("token", RedactToken(token)), zap.Bool("enforcing", enforcing))
	default:
		return true, claims
	}
	return !enforcing, nil
}

// verify は検証機能のパニックもエラーとして扱う。
func (g *AuthGate) verify(token string) (valid bool, claims *JWTClaims, err error) {
	defer func() {
		if r := recover(); r != nil {
			valid, claims, err = false, nil, fmt.Errorf("トークン検証でパニック: %v", r)
		}
	}()
	if g.verifier == nil {
		return false, nil, fmt.Errorf("トークン検証機能が設定されていません")
	}
	return g.verifier.VerifyToken(token)
}

// RequireAuth は強制モードのAuthGateで保護するGinミドルウェアを返す。
// 認証に失敗した場合は以降のハンドラを実行せずに認証失敗エンベロープを返す。
func RequireAuth(g *AuthGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, claims := g.decide(c.GetHeader("Authorization"), true)
		abortUnlessAllowed(c, ok, claims)
	}
}

// RequireAuthWithFlag は動的フラグに従うAuthGateで保護するGinミドルウェアを返す。
func RequireAuthWithFlag(g *AuthGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, claims := g.decide(c.GetHeader("Authorization"), g.enforcing(c.Request.Context()))
		abortUnlessAllowed(c, ok, claims)
	}
}

func abortUnlessAllowed(c *gin.Context, ok bool, claims *JWTClaims) {
	if !ok {
		c.AbortWithStatusJSON(http.StatusOK, response.FailedAuth())
		return
	}
	if claims != nil {
		c.Set(contextKeyClaims, claims)
	}
	c.Next()
}

// GetClaims はGinコンテキストから検証済みクレームを取得する。
// 許容モードで通過した場合などはnilを返す。
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// ParseAuthHeader はヘッダー値の最後の空白区切り要素をトークンとして返す。
// "Bearer <token>" と "<token>" の両方を受け付ける。
func ParseAuthHeader(authHeader string) string {
	fields := strings.Fields(authHeader)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// RedactToken は監査ログ用にトークンを短縮する。
// 20文字を超える場合は先頭8文字と末尾15文字だけを残し、中央を "...(len=N)..." に置き換える。
func RedactToken(token string) string {
	n := len(token)
	if n <= 20 {
		return token
	}
	return fmt.Sprintf("%s...(len=%d)...%s", token[:8], n, token[n-15:])
}
