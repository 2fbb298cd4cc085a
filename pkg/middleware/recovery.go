package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/gardener/pkg/response"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// 呼び出し元は常にJSONエンベロープを受け取れるよう、HTTP 200でエラーエンベロープを返す。
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("パニックが発生",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusOK, response.Error(fmt.Sprint(r)))
			}
		}()
		c.Next()
	}
}
