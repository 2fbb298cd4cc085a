package tags

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIMDS struct {
	id  string
	err error
}

func (f fakeIMDS) GetMetadata(_ context.Context, in *imds.GetMetadataInput, _ ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if in.Path != "instance-id" {
		return nil, errors.New("unexpected path " + in.Path)
	}
	return &imds.GetMetadataOutput{Content: io.NopCloser(strings.NewReader(f.id + "\n"))}, nil
}

type fakeEC2 struct {
	tags []types.TagDescription
	err  error
	last *ec2.DescribeTagsInput
}

func (f *fakeEC2) DescribeTags(_ context.Context, in *ec2.DescribeTagsInput, _ ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DescribeTagsOutput{Tags: f.tags}, nil
}

type countingSource struct {
	name  string
	err   error
	calls atomic.Int32
}

func (s *countingSource) InstanceName(context.Context) (string, error) {
	s.calls.Add(1)
	return s.name, s.err
}

// TestEC2Source はNameタグの取得を検証する。
func TestEC2Source(t *testing.T) {
	t.Parallel()

	t.Run("インスタンスIDで絞り込んだNameタグが返ること", func(t *testing.T) {
		t.Parallel()

		client := &fakeEC2{tags: []types.TagDescription{
			{Key: aws.String("Name"), Value: aws.String("gardener-dev-1")},
		}}
		name, err := NewEC2Source(fakeIMDS{id: "i-0123"}, client).InstanceName(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "gardener-dev-1", name)

		require.Len(t, client.last.Filters, 2)
		assert.Equal(t, []string{"i-0123"}, client.last.Filters[0].Values)
		assert.Equal(t, []string{"Name"}, client.last.Filters[1].Values)
	})

	t.Run("Nameタグが無い場合は空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		name, err := NewEC2Source(fakeIMDS{id: "i-0123"}, &fakeEC2{}).InstanceName(context.Background())
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("メタデータ取得の失敗はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := NewEC2Source(fakeIMDS{err: errors.New("no imds")}, &fakeEC2{}).InstanceName(context.Background())
		assert.Error(t, err)
	})

	t.Run("タグ取得の失敗はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := NewEC2Source(fakeIMDS{id: "i-1"}, &fakeEC2{err: errors.New("denied")}).InstanceName(context.Background())
		assert.Error(t, err)
	})
}

// TestSelectFunction はNameタグからの関数名の選択を検証する。
func TestSelectFunction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag  string
		want string
	}{
		{tag: "gardener-dev", want: "gardener-api-dev"},
		{tag: "gardener-dev-us-west-2", want: "gardener-api-dev"},
		{tag: "gardener-prod", want: "gardener-api"},
		{tag: "", want: "gardener-api"},
		{tag: "-dev", want: "gardener-api"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectFunction(tt.tag, "gardener-api", "gardener-api-dev"), "tag=%q", tt.tag)
	}
}

// TestFunctionNameResolver は関数名の解決を検証する。
func TestFunctionNameResolver(t *testing.T) {
	t.Parallel()

	t.Run("関数名は一度だけ解決されること", func(t *testing.T) {
		t.Parallel()

		src := &countingSource{name: "gardener-dev"}
		r := NewFunctionNameResolver(src, "", "gardener-api", "gardener-api-dev", nil)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				name, err := r.FunctionName(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "gardener-api-dev", name)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("固定指定がある場合はタグを参照しないこと", func(t *testing.T) {
		t.Parallel()

		src := &countingSource{name: "gardener-dev"}
		name, err := NewFunctionNameResolver(src, "custom", "p", "d", nil).FunctionName(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "custom", name)
		assert.Equal(t, int32(0), src.calls.Load())
	})

	t.Run("タグ取得の失敗は以降も同じエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		src := &countingSource{err: errors.New("no imds")}
		r := NewFunctionNameResolver(src, "", "p", "d", nil)

		_, err1 := r.FunctionName(context.Background())
		_, err2 := r.FunctionName(context.Background())
		assert.Error(t, err1)
		assert.Equal(t, err1, err2)
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("StaticSourceで本番用が選ばれること", func(t *testing.T) {
		t.Parallel()

		name, err := NewFunctionNameResolver(StaticSource("gardener"), "", "p", "d", nil).FunctionName(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "p", name)
	})
}
