// gardenerゲートウェイのエントリポイント。
// ファームとサービスを操作するリクエストを認証し、バックエンド関数の呼び出しに変換する。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/nao1215/gardener/internal/buildinfo"
	"github.com/nao1215/gardener/internal/config"
	"github.com/nao1215/gardener/internal/flag"
	"github.com/nao1215/gardener/internal/gateway"
	"github.com/nao1215/gardener/internal/heartbeat"
	"github.com/nao1215/gardener/internal/invocation"
	"github.com/nao1215/gardener/internal/observability"
	"github.com/nao1215/gardener/internal/paramstore"
	"github.com/nao1215/gardener/internal/tags"
	"github.com/nao1215/gardener/pkg/httpclient"
	"github.com/nao1215/gardener/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("gardenerの実行に失敗", zap.Error(err))
	}
}

// run は依存関係を組み立ててゲートウェイを起動し、ctxがキャンセルされるまで待つ。
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	tracer, err := observability.NewTracer(ctx, observability.TracerConfig{
		ServiceName:  "gardener",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRate:   cfg.TracingSampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("トレーサーの停止に失敗", zap.Error(err))
		}
	}()

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return err
	}

	params := newParamProvider(cfg, awsCfg)
	flagCache := flag.New(params, cfg.FlagParamName,
		flag.WithLogger(logger),
		flag.WithObserver(metrics),
	)
	auth := middleware.NewAuthGate(
		middleware.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		flagCache,
		logger,
		metrics,
	)

	// 関数名は起動時に決める。決められない場合は起動しない
	names := tags.NewFunctionNameResolver(newNameSource(cfg, awsCfg),
		cfg.Backend.FunctionName, cfg.Backend.ProdFunction, cfg.Backend.DevFunction, logger)
	if _, err := names.FunctionName(ctx); err != nil {
		return err
	}

	translator := invocation.NewTranslator(invocation.TranslatorConfig{
		Invoker:  newInvoker(cfg, awsCfg),
		Names:    names,
		Timeout:  cfg.Backend.Timeout,
		Logger:   logger,
		Observer: metrics,
		Tracer:   tracer,
	})

	builds, closeBuilds, err := newBuildInfoStore(ctx, cfg, awsCfg, logger)
	if err != nil {
		return err
	}
	defer closeBuilds()

	server, err := gateway.NewServer(gateway.Config{
		Port:               cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RecordBuilds:       cfg.BuildInfo.Record,
		Auth:               auth,
		Translator:         translator,
		Builds:             builds,
		Metrics:            metrics,
		Tracer:             tracer,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("ゲートウェイの初期化に失敗: %w", err)
	}

	hb := heartbeat.New(cfg.HeartbeatInterval, logger)
	hb.Start(ctx)
	defer hb.Stop()

	return server.Run(ctx)
}

// loadAWSConfig はAWSクライアント共通の設定を読み込む。
func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}
	if c.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(c.EndpointURL)
	}
	return awsCfg, nil
}

func newParamProvider(cfg *config.Config, awsCfg aws.Config) paramstore.Provider {
	if cfg.ParamStore == config.ParamStoreEnv {
		return paramstore.NewEnvProvider()
	}
	return paramstore.NewSSMProvider(ssm.NewFromConfig(awsCfg))
}

// newNameSource は関数名を決めるためのNameタグの取得元を返す。
// HTTPモードではEC2上で動かないため、タグは空として本番用の関数名を選ぶ。
func newNameSource(cfg *config.Config, awsCfg aws.Config) tags.NameSource {
	if cfg.Backend.Mode == config.BackendModeHTTP {
		return tags.StaticSource("")
	}
	return tags.NewEC2Source(imds.NewFromConfig(awsCfg), ec2.NewFromConfig(awsCfg))
}

func newInvoker(cfg *config.Config, awsCfg aws.Config) invocation.Invoker {
	if cfg.Backend.Mode == config.BackendModeHTTP {
		return invocation.NewHTTPInvoker(httpclient.New(cfg.Backend.URL, cfg.Backend.Timeout))
	}
	return invocation.NewLambdaInvoker(lambda.NewFromConfig(awsCfg))
}

// newBuildInfoStore はビルド情報ストアと、その後始末をする関数を返す。
func newBuildInfoStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (buildinfo.Store, func(), error) {
	if cfg.BuildInfo.Store == config.BuildInfoStoreSQLite {
		store, err := buildinfo.OpenSQLite(ctx, cfg.BuildInfo.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("ビルド情報DBのクローズに失敗", zap.Error(err))
			}
		}, nil
	}
	return buildinfo.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.BuildInfo.Table), func() {}, nil
}
