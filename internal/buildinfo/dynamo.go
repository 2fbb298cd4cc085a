package buildinfo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBの属性名。
const (
	attrServiceName = "serviceName"
	attrBuildNumber = "buildNumber"
	attrServiceInfo = "serviceInfo"
)

// DynamoAPI はDynamoStoreが使うDynamoDBクライアントのメソッド。
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore はDynamoDBのテーブルを使うStore。
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore は新しいDynamoStoreを生成する。
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// Get はマニフェストのJSONテキストを返す。
func (s *DynamoStore) Get(ctx context.Context, serviceName, buildNumber string) (string, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrServiceName: &types.AttributeValueMemberS{Value: serviceName},
			attrBuildNumber: &types.AttributeValueMemberS{Value: buildNumber},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ビルド情報の取得に失敗: %w", err)
	}
	if len(out.Item) == 0 {
		return "", ErrNotFound
	}

	info, ok := out.Item[attrServiceInfo].(*types.AttributeValueMemberS)
	if !ok || info.Value == "" {
		return "", fmt.Errorf("%s/%s の%sが文字列ではありません: %w", serviceName, buildNumber, attrServiceInfo, ErrNotFound)
	}
	return info.Value, nil
}

// Put はビルド情報を保存する。
func (s *DynamoStore) Put(ctx context.Context, rec Record) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			attrServiceName: &types.AttributeValueMemberS{Value: rec.ServiceName},
			attrBuildNumber: &types.AttributeValueMemberS{Value: rec.BuildNumber},
			attrServiceInfo: &types.AttributeValueMemberS{Value: rec.ServiceInfo},
		},
	})
	if err != nil {
		return fmt.Errorf("ビルド情報の保存に失敗: %w", err)
	}
	return nil
}
