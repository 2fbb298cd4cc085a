// Package paramstore は名前付き設定パラメータの取得元を提供する。
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrParamNotFound はパラメータが存在しないことを表す。
var ErrParamNotFound = errors.New("パラメータが見つかりません")

// Provider は名前付きパラメータを取得する。
// 存在しない場合はErrParamNotFoundを返す。
type Provider interface {
	GetParam(ctx context.Context, name string) (string, error)
}

// SSMAPI はSSMProviderが使うSSMクライアントのメソッド。
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMProvider はAWS Systems Manager Parameter Storeからパラメータを取得する。
type SSMProvider struct {
	client SSMAPI
}

// NewSSMProvider は新しいSSMProviderを生成する。
func NewSSMProvider(client SSMAPI) *SSMProvider {
	return &SSMProvider{client: client}
}

// GetParam はパラメータ値を取得する。SecureStringは復号して返す。
func (p *SSMProvider) GetParam(ctx context.Context, name string) (string, error) {
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%s: %w", name, ErrParamNotFound)
		}
		return "", fmt.Errorf("パラメータ %s の取得に失敗: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%s: %w", name, ErrParamNotFound)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// EnvProvider は環境変数からパラメータを取得する。ローカル実行用。
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider は新しいEnvProviderを生成する。
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// GetParam は同名の環境変数の値を返す。
func (p *EnvProvider) GetParam(_ context.Context, name string) (string, error) {
	v, ok := p.lookup(name)
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrParamNotFound)
	}
	return v, nil
}
