package invocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nao1215/gardener/internal/observability"
	"github.com/nao1215/gardener/pkg/event"
)

// 呼び出し結果のラベル。
const (
	OutcomeSuccess        = "success"
	OutcomeLogicalError   = "logical_error"
	OutcomeTransportError = "transport_error"
)

// FunctionNamer は呼び出すバックエンド関数名を返す。
type FunctionNamer interface {
	FunctionName(ctx context.Context) (string, error)
}

// InvocationObserver はバックエンド呼び出しの結果を記録する。
type InvocationObserver interface {
	ObserveInvocation(handler, outcome string, d time.Duration)
}

// Translator はイベントをバックエンド関数に渡し、戻り値をResultにする。
type Translator struct {
	invoker  Invoker
	names    FunctionNamer
	timeout  time.Duration
	logger   *zap.Logger
	observer InvocationObserver
	tracer   *observability.Tracer
}

// TranslatorConfig はTranslatorの依存関係。
type TranslatorConfig struct {
	// Invoker は関数の呼び出し方法。
	Invoker Invoker
	// Names は関数名の解決方法。
	Names FunctionNamer
	// Timeout は1回の呼び出しの上限時間。0以下なら上限を設けない。
	Timeout time.Duration
	// Logger はロガー。nilの場合は出力しない。
	Logger *zap.Logger
	// Observer は呼び出し結果の記録先。
	Observer InvocationObserver
	// Tracer はスパンの生成に使う。nilの場合はグローバルのTracerを使う。
	Tracer *observability.Tracer
}

// NewTranslator は新しいTranslatorを生成する。
func NewTranslator(cfg TranslatorConfig) *Translator {
	return &Translator{
		invoker:  cfg.Invoker,
		names:    cfg.Names,
		timeout:  cfg.Timeout,
		logger:   observability.OrNop(cfg.Logger),
		observer: cfg.Observer,
		tracer:   cfg.Tracer,
	}
}

// Invoke はイベントで関数を1回だけ呼び出す。再試行はしない。
// 呼び出し自体に失敗した場合はエラーを返し、関数が返したエラー文字列はResult.IsErrorで表す。
func (t *Translator) Invoke(ctx context.Context, ev event.Event) (Result, error) {
	handler := string(ev.Handler())
	ctx, span := t.tracer.Start(ctx, "invoke "+handler,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("gardener.api_handler", handler)),
	)
	defer span.End()

	start := time.Now()
	res, err := t.invoke(ctx, ev, span)
	d := time.Since(start)

	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeTransportError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Error("バックエンド呼び出しに失敗", zap.String("handler", handler), zap.Error(err), zap.Duration("latency", d))
	case res.IsError:
		outcome = OutcomeLogicalError
		span.SetStatus(codes.Error, "backend returned an error payload")
		t.logger.Warn("バックエンドがエラーを返しました", zap.String("handler", handler), zap.String("payload", res.PayloadString))
	default:
		t.logger.Debug("バックエンドの応答", zap.String("handler", handler), zap.String("payload", res.PayloadString))
	}
	span.SetAttributes(attribute.String("gardener.outcome", outcome))
	if t.observer != nil {
		t.observer.ObserveInvocation(handler, outcome, d)
	}
	return res, err
}

func (t *Translator) invoke(ctx context.Context, ev event.Event, span trace.Span) (Result, error) {
	if t.invoker == nil || t.names == nil {
		return Result{}, errors.New("バックエンドの呼び出し方法が設定されていません")
	}

	name, err := t.names.FunctionName(ctx)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("faas.invoked_name", name))

	payload, err := ev.Marshal()
	if err != nil {
		return Result{}, err
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.logger.Debug("バックエンドを呼び出します", zap.String("function", name), zap.ByteString("event", payload))
	raw, err := t.invoker.Invoke(ctx, name, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%s以内に応答がありません: %w", t.timeout, err)
		}
		return Result{}, err
	}
	return NewResult(raw), nil
}
