package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// BackendMode はバックエンド関数の呼び出し方法。
type BackendMode string

const (
	// BackendModeLambda はAWS LambdaのInvoke APIを使う。
	BackendModeLambda BackendMode = "lambda"
	// BackendModeHTTP はLambda Runtime Interface EmulatorへHTTPでPOSTする。
	BackendModeHTTP BackendMode = "http"
)

// ParamStoreKind はパラメータの取得元。
type ParamStoreKind string

const (
	// ParamStoreSSM はAWS Systems Manager Parameter Storeから取得する。
	ParamStoreSSM ParamStoreKind = "ssm"
	// ParamStoreEnv は環境変数から取得する。
	ParamStoreEnv ParamStoreKind = "env"
)

// BuildInfoStoreKind はビルド情報テーブルの保存先。
type BuildInfoStoreKind string

const (
	// BuildInfoStoreDynamoDB はDynamoDBのテーブルを使う。
	BuildInfoStoreDynamoDB BuildInfoStoreKind = "dynamodb"
	// BuildInfoStoreSQLite はローカルのSQLiteファイルを使う。
	BuildInfoStoreSQLite BuildInfoStoreKind = "sqlite"
)

// Config はゲートウェイ全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// LogLevel はログレベル（debug, info, warn, error）。
	LogLevel string
	// LogFormat はログ形式（json, console）。
	LogFormat string

	// JWTSecret はトークン署名検証用の共有鍵。
	JWTSecret string
	// JWTIssuer は期待するトークン発行者。空の場合は検証しない。
	JWTIssuer string

	// Backend はバックエンド関数の呼び出し設定。
	Backend BackendConfig
	// AWS はAWSクライアントの設定。
	AWS AWSConfig

	// ParamStore はフラグの取得元。
	ParamStore ParamStoreKind
	// FlagParamName は認証強制フラグのパラメータ名。
	FlagParamName string

	// BuildInfo はビルド情報ストアの設定。
	BuildInfo BuildInfoConfig

	// CORSAllowedOrigins はCORSを許可するオリジン。空の場合はCORSヘッダーを付与しない。
	CORSAllowedOrigins []string

	// OTLPEndpoint はトレースの送信先。空の場合はエクスポートしない。
	OTLPEndpoint string
	// TracingSampleRate はトレースのサンプリング率（0.0〜1.0）。
	TracingSampleRate float64

	// HeartbeatInterval は生存ログを出力する間隔。
	HeartbeatInterval time.Duration
}

// BackendConfig はバックエンド関数の呼び出し設定。
type BackendConfig struct {
	// Mode は呼び出し方法。
	Mode BackendMode
	// URL はBackendModeHTTPの接続先ベースURL。
	URL string
	// Timeout は1回の呼び出しの上限時間。
	Timeout time.Duration
	// FunctionName は関数名の固定指定。空の場合はインスタンスのタグから決める。
	FunctionName string
	// ProdFunction は本番環境の関数名。
	ProdFunction string
	// DevFunction は開発環境の関数名。
	DevFunction string
}

// AWSConfig はAWSクライアントの設定。
type AWSConfig struct {
	// Region はAWSリージョン。空の場合はSDKの既定の解決に従う。
	Region string
	// EndpointURL はLocalStack等の接続先。空の場合は既定のエンドポイントを使う。
	EndpointURL string
}

// BuildInfoConfig はビルド情報ストアの設定。
type BuildInfoConfig struct {
	// Store は保存先の種類。
	Store BuildInfoStoreKind
	// Table はDynamoDBのテーブル名。
	Table string
	// SQLitePath はSQLiteファイルのパス。
	SQLitePath string
	// Record はビルド登録成功時に結果をストアへ保存するかどうか。
	Record bool
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	return load(os.Getenv)
}

// load はgetenvから設定を読み込む。テストで環境変数を差し替えるために分けている。
func load(getenv func(string) string) (*Config, error) {
	env := func(key, defaultValue string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return defaultValue
	}

	var errs []error

	timeout, err := parseDuration(env("BACKEND_TIMEOUT", "30s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("BACKEND_TIMEOUT: %w", err))
	}
	heartbeat, err := parseDuration(env("HEARTBEAT_INTERVAL", "60s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("HEARTBEAT_INTERVAL: %w", err))
	}
	sampleRate, err := strconv.ParseFloat(env("TRACING_SAMPLE_RATE", "1.0"), 64)
	if err != nil || sampleRate < 0 || sampleRate > 1 {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATE: 0.0〜1.0の数値を指定してください: %q", getenv("TRACING_SAMPLE_RATE")))
	}
	record, err := strconv.ParseBool(env("BUILD_INFO_RECORD", "false"))
	if err != nil {
		errs = append(errs, fmt.Errorf("BUILD_INFO_RECORD: %w", err))
	}

	cfg := &Config{
		Port:      env("PORT", "80"),
		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "json"),
		JWTSecret: getenv("JWT_SECRET"),
		JWTIssuer: env("JWT_ISSUER", ""),
		Backend: BackendConfig{
			Mode:         BackendMode(env("BACKEND_MODE", string(BackendModeLambda))),
			URL:          env("BACKEND_URL", "http://localhost:9000"),
			Timeout:      timeout,
			FunctionName: env("BACKEND_FUNCTION_NAME", ""),
			ProdFunction: env("BACKEND_FUNCTION_PROD", "gardener-api"),
			DevFunction:  env("BACKEND_FUNCTION_DEV", "gardener-api-dev"),
		},
		AWS: AWSConfig{
			Region:      env("AWS_REGION", ""),
			EndpointURL: env("AWS_ENDPOINT_URL", ""),
		},
		ParamStore:    ParamStoreKind(env("PARAM_STORE", string(ParamStoreSSM))),
		FlagParamName: env("FLAG_PARAM_NAME", "GARDENER_USE_JWT"),
		BuildInfo: BuildInfoConfig{
			Store:      BuildInfoStoreKind(env("BUILD_INFO_STORE", string(BuildInfoStoreDynamoDB))),
			Table:      env("BUILD_INFO_TABLE", "FarmBuildVersion"),
			SQLitePath: env("BUILD_INFO_SQLITE_PATH", "/data/gardener.db"),
			Record:     record,
		},
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS")),
		OTLPEndpoint:       env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TracingSampleRate:  sampleRate,
		HeartbeatInterval:  heartbeat,
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// validate は列挙値の妥当性を検証する。
func (c *Config) validate() []error {
	var errs []error
	switch c.Backend.Mode {
	case BackendModeLambda, BackendModeHTTP:
	default:
		errs = append(errs, fmt.Errorf("BACKEND_MODE: 未知の値です: %q", c.Backend.Mode))
	}
	switch c.ParamStore {
	case ParamStoreSSM, ParamStoreEnv:
	default:
		errs = append(errs, fmt.Errorf("PARAM_STORE: 未知の値です: %q", c.ParamStore))
	}
	switch c.BuildInfo.Store {
	case BuildInfoStoreDynamoDB, BuildInfoStoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("BUILD_INFO_STORE: 未知の値です: %q", c.BuildInfo.Store))
	}
	if c.Backend.Mode == BackendModeHTTP && c.Backend.URL == "" {
		errs = append(errs, errors.New("BACKEND_URL: BACKEND_MODE=httpでは必須です"))
	}
	return errs
}

// parseDuration は正の時間を解析する。
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("正の時間を指定してください: %q", s)
	}
	return d, nil
}

// splitList はカンマ区切りの値を分割し、空要素を取り除く。
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
