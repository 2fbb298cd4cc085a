// Package tags は実行中のEC2インスタンスのタグから呼び出すバックエンド関数名を決める。
package tags

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"
)

// NameSource はインスタンスのNameタグを返す。タグが無い場合は空文字列を返す。
type NameSource interface {
	InstanceName(ctx context.Context) (string, error)
}

// IMDSAPI はEC2SourceがインスタンスIDの取得に使うメソッド。
type IMDSAPI interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// DescribeTagsAPI はEC2Sourceがタグの取得に使うメソッド。
type DescribeTagsAPI interface {
	DescribeTags(ctx context.Context, params *ec2.DescribeTagsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error)
}

// EC2Source はインスタンスメタデータとEC2 APIからNameタグを取得する。
type EC2Source struct {
	metadata IMDSAPI
	ec2      DescribeTagsAPI
}

// NewEC2Source は新しいEC2Sourceを生成する。
func NewEC2Source(metadata IMDSAPI, client DescribeTagsAPI) *EC2Source {
	return &EC2Source{metadata: metadata, ec2: client}
}

// InstanceName はこのインスタンスのNameタグを返す。
func (s *EC2Source) InstanceName(ctx context.Context) (string, error) {
	out, err := s.metadata.GetMetadata(ctx, &imds.GetMetadataInput{Path: "instance-id"})
	if err != nil {
		return "", fmt.Errorf("インスタンスIDの取得に失敗: %w", err)
	}
	defer out.Content.Close()

	raw, err := io.ReadAll(out.Content)
	if err != nil {
		return "", fmt.Errorf("インスタンスIDの読み込みに失敗: %w", err)
	}
	instanceID := strings.TrimSpace(string(raw))

	tagsOut, err := s.ec2.DescribeTags(ctx, &ec2.DescribeTagsInput{
		Filters: []types.Filter{
			{Name: aws.String("resource-id"), Values: []string{instanceID}},
			{Name: aws.String("key"), Values: []string{"Name"}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("インスタンス %s のタグ取得に失敗: %w", instanceID, err)
	}
	for _, tag := range tagsOut.Tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value), nil
		}
	}
	return "", nil
}

// StaticSource は固定のNameタグを返す。ローカル実行とテストで使用する。
type StaticSource string

// InstanceName は固定値を返す。
func (s StaticSource) InstanceName(context.Context) (string, error) {
	return string(s), nil
}

// FunctionNameResolver はバックエンド関数名をプロセスごとに一度だけ決める。
type FunctionNameResolver struct {
	source   NameSource
	override string
	prod     string
	dev      string
	logger   *zap.Logger

	once sync.Once
	name string
	err  error
}

// NewFunctionNameResolver は新しいFunctionNameResolverを生成する。
// overrideが空でない場合はタグを参照せずにその名前を使う。
func NewFunctionNameResolver(source NameSource, override, prod, dev string, logger *zap.Logger) *FunctionNameResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FunctionNameResolver{
		source:   source,
		override: override,
		prod:     prod,
		dev:      dev,
		logger:   logger,
	}
}

// FunctionName は関数名を返す。初回の結果（エラーを含む）を以降も返す。
func (r *FunctionNameResolver) FunctionName(ctx context.Context) (string, error) {
	r.once.Do(func() {
		r.name, r.err = r.resolve(ctx)
		if r.err == nil {
			r.logger.Info("バックエンド関数名を決定しました", zap.String("function", r.name))
		}
	})
	return r.name, r.err
}

func (r *FunctionNameResolver) resolve(ctx context.Context) (string, error) {
	if r.override != "" {
		return r.override, nil
	}
	if r.source == nil {
		return "", errors.New("タグの取得元が設定されていません")
	}
	name, err := r.source.InstanceName(ctx)
	if err != nil {
		return "", fmt.Errorf("バックエンド関数名の決定に失敗: %w", err)
	}
	return SelectFunction(name, r.prod, r.dev), nil
}

// SelectFunction はNameタグから関数名を選ぶ。
// タグの先頭以外の位置に "-dev" を含む場合は開発用、それ以外は本番用。
func SelectFunction(nameTag, prod, dev string) string {
	if strings.Index(nameTag, "-dev") > 0 {
		return dev
	}
	return prod
}
