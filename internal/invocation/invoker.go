package invocation

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/nao1215/gardener/pkg/httpclient"
)

// ErrFunctionError はバックエンド関数が未処理の例外で終了したことを表す。
var ErrFunctionError = errors.New("バックエンド関数がエラーで終了しました")

// Invoker はバックエンド関数を同期的に1回呼び出し、戻り値のバイト列を返す。
type Invoker interface {
	Invoke(ctx context.Context, functionName string, payload []byte) ([]byte, error)
}

// LambdaAPI はLambdaInvokerが使うLambdaクライアントのメソッド。
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaInvoker はAWS LambdaのInvoke APIで関数を呼び出す。
type LambdaInvoker struct {
	client LambdaAPI
}

// NewLambdaInvoker は新しいLambdaInvokerを生成する。
func NewLambdaInvoker(client LambdaAPI) *LambdaInvoker {
	return &LambdaInvoker{client: client}
}

// Invoke は関数を呼び出す。
// 関数が例外で終了した場合はErrFunctionErrorをラップしたエラーを返す。
func (i *LambdaInvoker) Invoke(ctx context.Context, functionName string, payload []byte) ([]byte, error) {
	out, err := i.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("関数 %s の呼び出しに失敗: %w", functionName, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrFunctionError, aws.ToString(out.FunctionError), string(out.Payload))
	}
	return out.Payload, nil
}

// HTTPInvoker はLambda Runtime Interface EmulatorへHTTPで関数を呼び出す。ローカル開発用。
type HTTPInvoker struct {
	client *httpclient.Client
}

// NewHTTPInvoker は新しいHTTPInvokerを生成する。
func NewHTTPInvoker(client *httpclient.Client) *HTTPInvoker {
	return &HTTPInvoker{client: client}
}

// Invoke はエミュレータの呼び出しエンドポイントにペイロードをPOSTする。
func (i *HTTPInvoker) Invoke(ctx context.Context, functionName string, payload []byte) ([]byte, error) {
	path := "/2015-03-31/functions/" + url.PathEscape(functionName) + "/invocations"
	out, err := i.client.Post(ctx, path, "application/json", payload)
	if err != nil {
		return nil, fmt.Errorf("関数 %s の呼び出しに失敗: %w", functionName, err)
	}
	return out, nil
}
