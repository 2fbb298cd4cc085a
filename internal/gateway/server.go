package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/gardener/internal/buildinfo"
	"github.com/nao1215/gardener/internal/invocation"
	"github.com/nao1215/gardener/internal/observability"
	"github.com/nao1215/gardener/pkg/event"
	"github.com/nao1215/gardener/pkg/middleware"
)

// Translator はイベントをバックエンド関数に渡して結果を返す。
type Translator interface {
	Invoke(ctx context.Context, ev event.Event) (invocation.Result, error)
}

// Server はgardenerゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// auth はリクエストの認可判定。
	auth *middleware.AuthGate
	// translator はバックエンド関数の呼び出し。
	translator Translator
	// builds はビルドごとのマニフェストの保存先。
	builds buildinfo.Store
	// recordBuilds はビルド登録の結果をbuildsに保存するかどうか。
	recordBuilds bool
	// metrics はPrometheusメトリクス。
	metrics *observability.Metrics
	// logger はロガー。
	logger *zap.Logger
}

// Config はサーバーの設定と依存関係。
type Config struct {
	// Port はリッスンポート。
	Port string
	// CORSAllowedOrigins はCORSを許可するオリジン。
	CORSAllowedOrigins []string
	// RecordBuilds はビルド登録の結果をBuildsに保存するかどうか。
	RecordBuilds bool

	// Auth はリクエストの認可判定。
	Auth *middleware.AuthGate
	// Translator はバックエンド関数の呼び出し。
	Translator Translator
	// Builds はビルドごとのマニフェストの保存先。
	Builds buildinfo.Store
	// Metrics はPrometheusメトリクス。nilの場合は新しく生成する。
	Metrics *observability.Metrics
	// Tracer はスパンの生成に使う。nilの場合はグローバルのTracerを使う。
	Tracer *observability.Tracer
	// Logger はロガー。
	Logger *zap.Logger
}

// NewServer は新しいゲートウェイサーバーを生成する。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Auth == nil {
		return nil, errors.New("認可判定が設定されていません")
	}
	if cfg.Translator == nil {
		return nil, errors.New("バックエンドの呼び出しが設定されていません")
	}
	if cfg.Builds == nil {
		return nil, errors.New("ビルド情報ストアが設定されていません")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	logger := observability.OrNop(cfg.Logger)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger, metrics))
	router.Use(middleware.Tracing(cfg.Tracer))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	s := &Server{
		router:       router,
		port:         cfg.Port,
		auth:         cfg.Auth,
		translator:   cfg.Translator,
		builds:       cfg.Builds,
		recordBuilds: cfg.RecordBuilds,
		metrics:      metrics,
		logger:       logger,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ゲートウェイを起動します", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("ゲートウェイを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック（認証不要）
	s.router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// メトリクスは動的フラグで認証の強制を切り替える
	s.router.GET("/metrics", middleware.RequireAuthWithFlag(s.auth), gin.WrapH(s.metrics.Handler()))

	// ファームの状態（GardenKeeperから呼ばれる）
	// AZが "service" の場合は静的セグメントが優先され、サービスのルートとして扱われる
	farm := s.router.Group("/farm")
	farm.Use(middleware.RequireAuth(s.auth))
	{
		farm.GET("/:farmName/:az/state/desired", s.handleGetFarmDesiredState())
		farm.POST("/:farmName/:az/state/reported", s.handleReportFarmState())
		farm.GET("/:farmName/inspect", s.handleGetFarmInspect())

		// サービスのデプロイと操作
		farm.POST("/:farmName/service/:service/:version", s.handleUpdateService())
		farm.PUT("/:farmName/service/:service/mode/:mode", s.handleChangeServiceMode())
		farm.DELETE("/:farmName/service/:service", s.handleDeleteService())
		farm.GET("/:farmName/service/:service/desired", s.handleGetServiceDesiredState())
	}

	// ビルドスクリプトとダッシュボードから呼ばれる
	service := s.router.Group("/service")
	service.Use(middleware.RequireAuth(s.auth))
	{
		service.POST("/:service/build", s.handlePostServiceBuildInfo())
		service.GET("/:service/status", s.handleGetServiceStatusEverywhere())
	}
}
