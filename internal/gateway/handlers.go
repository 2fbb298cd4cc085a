package gateway

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/gardener/internal/buildinfo"
	"github.com/nao1215/gardener/internal/invocation"
	"github.com/nao1215/gardener/internal/manifest"
	"github.com/nao1215/gardener/pkg/event"
	"github.com/nao1215/gardener/pkg/httpclient"
	"github.com/nao1215/gardener/pkg/middleware"
	"github.com/nao1215/gardener/pkg/response"
)

const (
	// defaultTargetRegion はX-Roku-Farm-Target-Regionが無い場合のデプロイ先。
	defaultTargetRegion = "all"
	// maxBodyBytes はリクエストボディの上限。
	maxBodyBytes = 1 << 20
)

// handleGetFarmDesiredState はファームAZの希望状態を返すハンドラを返す。
func (s *Server) handleGetFarmDesiredState() gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := event.New(event.HandlerGetState).
			Set(event.KeyFarmName, c.Param("farmName")).
			Set(event.KeyAZ, c.Param("az"))

		res, ok := s.invoke(c, ev)
		if !ok {
			return
		}

		data, err := invocation.Unwrap(res.PayloadString)
		if err != nil {
			s.respondDecodeError(c, err)
			return
		}
		respond(c, response.WithData(response.StatusSuccess, data))
	}
}

// handleReportFarmState はファームAZの実際の状態を受け取るハンドラを返す。
// ボディは解釈せず文字列のままバックエンドに渡す。
func (s *Server) handleReportFarmState() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := s.readBody(c)
		if !ok {
			return
		}

		ev := event.New(event.HandlerReportState).
			Set(event.KeyFarmName, c.Param("farmName")).
			Set(event.KeyAZ, c.Param("az")).
			Set(event.KeyState, string(body))

		if _, ok := s.invoke(c, ev); !ok {
			return
		}
		respond(c, response.Success())
	}
}

// handleUpdateService はビルド済みのサービスをファームにデプロイするハンドラを返す。
// マニフェストはビルド時に登録されたものをバージョン文字列で引く。
func (s *Server) handleUpdateService() gin.HandlerFunc {
	return func(c *gin.Context) {
		farmName := c.Param("farmName")
		service := c.Param("service")
		version := c.Param("version")

		targetRegion := c.GetHeader(middleware.HeaderTargetRegion)
		if targetRegion == "" {
			targetRegion = defaultTargetRegion
		}

		serviceJSON, err := s.builds.Get(c.Request.Context(), service, version)
		if errors.Is(err, buildinfo.ErrNotFound) {
			msg := fmt.Sprintf("Could not find serviceInfo JSON in database.  Service: _%s_ version: _%s_", service, version)
			s.logger.Warn("ビルド情報が見つかりません", zap.String("service", service), zap.String("version", version))
			respond(c, response.Error(msg))
			return
		}
		if err != nil {
			s.logger.Error("ビルド情報の取得に失敗", zap.Error(err))
			respond(c, response.Error(err.Error()))
			return
		}

		s.logger.Info("サービスをデプロイします",
			zap.String("farm", farmName), zap.String("service", service), zap.String("version", version),
			zap.String("token_user", tokenUser(c)), zap.String("user", c.GetHeader(middleware.HeaderUserName)))

		ev := event.New(event.HandlerUpdateService).
			Set(event.KeyFarmName, farmName).
			Set(event.KeyService, service).
			Set(event.KeyServiceJSON, serviceJSON).
			Set(event.KeyTargetRegion, targetRegion).
			Set(event.KeyVersionString, version)
		s.setOptionalHeader(c, ev, event.KeyRepoURL, middleware.HeaderDeployRepoURL)
		s.setOptionalHeader(c, ev, event.KeyUser, middleware.HeaderUserName)

		if _, ok := s.invoke(c, ev); !ok {
			return
		}
		respond(c, response.Success())
	}
}

// handleChangeServiceMode はサービスのモードを変更するハンドラを返す。
func (s *Server) handleChangeServiceMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := event.New(event.HandlerChangeServiceMode).
			Set(event.KeyFarmName, c.Param("farmName")).
			Set(event.KeyService, c.Param("service")).
			Set(event.KeyMode, c.Param("mode"))
		s.setOptionalHeader(c, ev, event.KeyUser, middleware.HeaderUserName)

		if _, ok := s.invoke(c, ev); !ok {
			return
		}
		respond(c, response.Success())
	}
}

// handleDeleteService はファームからサービスを削除するハンドラを返す。
func (s *Server) handleDeleteService() gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := event.New(event.HandlerDeleteService).
			Set(event.KeyFarmName, c.Param("farmName")).
			Set(event.KeyService, c.Param("service"))
		s.setOptionalHeader(c, ev, event.KeyUser, middleware.HeaderUserName)

		if _, ok := s.invoke(c, ev); !ok {
			return
		}
		respond(c, response.Success())
	}
}

// handleGetFarmInspect はファームの検査結果を返すハンドラを返す。
// 戻り値は解析せず文字列のまま返す。
func (s *Server) handleGetFarmInspect() gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := event.New(event.HandlerGetFarmInspect).
			Set(event.KeyFarmName, c.Param("farmName"))

		res, ok := s.invoke(c, ev)
		if !ok {
			return
		}
		respond(c, response.WithData(response.StatusSuccess, res.PayloadString))
	}
}

// handleGetServiceDesiredState はサービスの希望状態を返すハンドラを返す。
func (s *Server) handleGetServiceDesiredState() gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := event.New(event.HandlerGetServiceDesiredState).
			Set(event.KeyFarmName, c.Param("farmName")).
			Set(event.KeyService, c.Param("service"))

		res, ok := s.invoke(c, ev)
		if !ok {
			return
		}

		parsed, err := invocation.ParseJSON(res.PayloadString)
		if err != nil {
			s.respondDecodeError(c, err)
			return
		}
		data, err := invocation.RemapDesiredState(parsed)
		if err != nil {
			s.respondDecodeError(c, err)
			return
		}
		respond(c, response.WithData(response.StatusSuccess, data))
	}
}

// handlePostServiceBuildInfo はビルドスクリプトからマニフェストを受け取り、
// バックエンドが採番したバージョン文字列を返すハンドラを返す。
func (s *Server) handlePostServiceBuildInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		service := c.Param("service")

		body, ok := s.readBody(c)
		if !ok {
			return
		}

		manifestJSON, err := manifest.YAMLToJSON(body)
		if err != nil {
			s.rejectManifest(c, service, manifest.Result{ParseErr: err})
			return
		}
		if result := manifest.Validate(manifestJSON); !result.OK() {
			s.rejectManifest(c, service, result)
			return
		}

		ev := event.New(event.HandlerPostServiceBuildInfo).
			Set(event.KeyService, service).
			Set(event.KeyServiceJSONBase64, base64.StdEncoding.EncodeToString([]byte(manifestJSON)))
		s.setOptionalHeader(c, ev, event.KeyShortGitHash, middleware.HeaderShortGitHash)
		s.setOptionalHeader(c, ev, event.KeyDockerRepoURL, middleware.HeaderDockerRepoURL)
		s.setOptionalHeader(c, ev, event.KeyBuildUser, middleware.HeaderBuildUser)
		// ブランチ名は1文字以下の場合は送らない
		if branch := c.GetHeader(middleware.HeaderBuildBranch); len(branch) > 1 {
			ev.Set(event.KeyBuildBranch, branch)
		}

		res, ok := s.invoke(c, ev)
		if !ok {
			return
		}

		version := invocation.StripQuotes(res.PayloadString)
		s.logger.Info("ビルドを登録しました", zap.String("service", service), zap.String("version", version))

		if s.recordBuilds {
			rec := buildinfo.Record{ServiceName: service, BuildNumber: version, ServiceInfo: manifestJSON}
			if err := s.builds.Put(c.Request.Context(), rec); err != nil {
				// 登録自体はバックエンドで完了しているため応答は成功のままにする
				s.logger.Error("ビルド情報の保存に失敗", zap.Error(err), zap.String("service", service))
			}
		}

		respond(c, response.WithData(response.StatusSuccess, version))
	}
}

// handleGetServiceStatusEverywhere は全ファームにおけるサービスの状態を返すハンドラを返す。
func (s *Server) handleGetServiceStatusEverywhere() gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := event.New(event.HandlerGetServiceStatusEverywhere).
			Set(event.KeyService, c.Param("service"))

		res, ok := s.invoke(c, ev)
		if !ok {
			return
		}

		data, err := invocation.ParseJSON(res.PayloadString)
		if err != nil {
			s.respondDecodeError(c, err)
			return
		}
		respond(c, response.WithData(response.StatusSuccess, data))
	}
}

// readBody はボディをmaxBodyBytesまで読み込む。読めない場合はエラーエンベロープを書き込んでfalseを返す。
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.Warn("リクエストボディが大きすぎます", zap.String("path", c.Request.URL.Path))
			respond(c, response.Error(fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes)))
			return nil, false
		}
		respond(c, response.Error(err.Error()))
		return nil, false
	}
	return body, true
}

// tokenUser は検証済みトークンのユーザーを返す。クレームが無い場合は空文字列。
func tokenUser(c *gin.Context) string {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.User
	}
	return ""
}

// invoke はバックエンドを呼び出す。失敗またはエラー文字列が返った場合は
// エラーエンベロープを書き込んでfalseを返す。
func (s *Server) invoke(c *gin.Context, ev event.Event) (invocation.Result, bool) {
	ctx := httpclient.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))

	res, err := s.translator.Invoke(ctx, ev)
	if err != nil {
		respond(c, response.Error(err.Error()))
		return invocation.Result{}, false
	}
	if res.IsError {
		respond(c, response.Error(res.PayloadString))
		return invocation.Result{}, false
	}
	return res, true
}

// setOptionalHeader はヘッダーがあればイベントに設定し、無ければその旨をログに残す。
func (s *Server) setOptionalHeader(c *gin.Context, ev event.Event, key, header string) {
	if !ev.SetOptional(key, c.GetHeader(header)) {
		s.logger.Info("任意ヘッダーがありません",
			zap.String("header", header), zap.String("handler", string(ev.Handler())))
	}
}

// rejectManifest はマニフェストの検証失敗を応答する。バックエンドは呼び出さない。
func (s *Server) rejectManifest(c *gin.Context, service string, result manifest.Result) {
	msg := manifest.ErrorMessage(result)
	s.logger.Warn("マニフェストの検証に失敗", zap.String("service", service), zap.String("reason", msg))
	s.metrics.ObserveManifestRejection()
	respond(c, response.Error(msg))
}

// respondDecodeError はバックエンドの戻り値を解析できなかったことを応答する。
func (s *Server) respondDecodeError(c *gin.Context, err error) {
	fields := []zap.Field{zap.Error(err), zap.String("path", c.Request.URL.Path)}
	var de *invocation.DecodeError
	if errors.As(err, &de) {
		fields = append(fields, zap.String("input", de.Input))
	}
	s.logger.Error("バックエンドの戻り値を解析できません", fields...)
	respond(c, response.Error(err.Error()))
}

// respond はエンベロープをHTTP 200で書き込む。
func respond(c *gin.Context, env response.Envelope) {
	c.JSON(http.StatusOK, env)
}
