package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsAllowHeaders はブラウザから送信を許可するヘッダー。デプロイ用とビルド用のX-Roku-*ヘッダーを含む。
var corsAllowHeaders = strings.Join([]string{
	"Authorization",
	"Content-Type",
	HeaderRequestID,
	HeaderDeployRepoURL,
	HeaderUserName,
	HeaderTargetRegion,
	HeaderShortGitHash,
	HeaderDockerRepoURL,
	HeaderBuildUser,
	HeaderBuildBranch,
}, ", ")

// CORS は指定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// 許可リストが空の場合はCORSヘッダーを付与しない。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := originsSet[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
