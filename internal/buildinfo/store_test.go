package buildinfo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	items   map[string]map[string]types.AttributeValue
	getErr  error
	lastGet *dynamodb.GetItemInput
	lastPut *dynamodb.PutItemInput
}

func keyOf(m map[string]types.AttributeValue) string {
	s, _ := m[attrServiceName].(*types.AttributeValueMemberS)
	b, _ := m[attrBuildNumber].(*types.AttributeValueMemberS)
	if s == nil || b == nil {
		return ""
	}
	return s.Value + "/" + b.Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGet = in
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	if f.items == nil {
		f.items = map[string]map[string]types.AttributeValue{}
	}
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

// TestDynamoStore はDynamoDBのStoreを検証する。
func TestDynamoStore(t *testing.T) {
	t.Parallel()

	t.Run("保存したマニフェストが取得できること", func(t *testing.T) {
		t.Parallel()

		fake := &fakeDynamo{}
		s := NewDynamoStore(fake, "FarmBuildVersion")

		require.NoError(t, s.Put(context.Background(), Record{ServiceName: "worldview", BuildNumber: "v1", ServiceInfo: `{"a":1}`}))
		assert.Equal(t, "FarmBuildVersion", aws.ToString(fake.lastPut.TableName))

		got, err := s.Get(context.Background(), "worldview", "v1")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, got)
		assert.Equal(t, "FarmBuildVersion", aws.ToString(fake.lastGet.TableName))
	})

	t.Run("存在しない場合はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		_, err := NewDynamoStore(&fakeDynamo{}, "T").Get(context.Background(), "worldview", "v9")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("serviceInfoが文字列でない場合はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{
			"worldview/v1": {
				attrServiceName: &types.AttributeValueMemberS{Value: "worldview"},
				attrBuildNumber: &types.AttributeValueMemberS{Value: "v1"},
				attrServiceInfo: &types.AttributeValueMemberN{Value: "1"},
			},
		}}
		_, err := NewDynamoStore(fake, "T").Get(context.Background(), "worldview", "v1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("APIの失敗はErrNotFoundと区別されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewDynamoStore(&fakeDynamo{getErr: errors.New("throttled")}, "T").Get(context.Background(), "s", "v")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

// TestSQLiteStore はSQLiteのStoreを検証する。
func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	open := func(t *testing.T) *SQLiteStore {
		t.Helper()
		s, err := OpenSQLite(context.Background(), ":memory:", nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("保存したマニフェストが取得できること", func(t *testing.T) {
		t.Parallel()

		s := open(t)
		require.NoError(t, s.Put(context.Background(), Record{ServiceName: "worldview", BuildNumber: "v1", ServiceInfo: `{"a":1}`}))

		got, err := s.Get(context.Background(), "worldview", "v1")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, got)
	})

	t.Run("同じキーは上書きされること", func(t *testing.T) {
		t.Parallel()

		s := open(t)
		require.NoError(t, s.Put(context.Background(), Record{ServiceName: "w", BuildNumber: "v1", ServiceInfo: `old`}))
		require.NoError(t, s.Put(context.Background(), Record{ServiceName: "w", BuildNumber: "v1", ServiceInfo: `new`}))

		got, err := s.Get(context.Background(), "w", "v1")
		require.NoError(t, err)
		assert.Equal(t, "new", got)
	})

	t.Run("存在しない場合はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		_, err := open(t).Get(context.Background(), "w", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
