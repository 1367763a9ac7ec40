package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IssueAndConsume(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	value, err := m.Issue(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, value)

	require.NoError(t, m.Consume(ctx, value))
	assert.ErrorIs(t, m.Consume(ctx, value), ErrInvalidState, "state is single use")
}

func TestMemoryStore_UnknownState(t *testing.T) {
	m := NewMemoryStore()
	assert.ErrorIs(t, m.Consume(context.Background(), "forged"), ErrInvalidState)
}

func TestMemoryStore_Expired(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	value, err := m.Issue(context.Background())
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(DefaultTTL) }
	assert.ErrorIs(t, m.Consume(context.Background(), value), ErrInvalidState)
}

type fakeDynamo struct {
	puts    []*dynamodb.PutItemInput
	deletes []*dynamodb.DeleteItemInput
	delErr  error
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{}, f.delErr
}

func TestMemoryStore_IssueSweepsExpired(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	stale, err := m.Issue(ctx)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(5 * time.Minute) }
	live, err := m.Issue(ctx)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(DefaultTTL) }
	fresh, err := m.Issue(ctx)
	require.NoError(t, err)

	assert.NotContains(t, m.states, stale)
	assert.Contains(t, m.states, live)
	assert.Contains(t, m.states, fresh)
	assert.Len(t, m.states, 2)
	assert.NoError(t, m.Consume(ctx, live))
}

func TestDynamoStore_Issue(t *testing.T) {
	fake := &fakeDynamo{}
	s := NewDynamoStore(fake, "OAuthStates", 0)
	base := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return base }

	value, err := s.Issue(context.Background())
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)

	put := fake.puts[0]
	assert.Equal(t, "OAuthStates", *put.TableName)
	assert.Equal(t, &types.AttributeValueMemberS{Value: value}, put.Item["state"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1700000600"}, put.Item["expires_at"])
}

func TestDynamoStore_Consume(t *testing.T) {
	fake := &fakeDynamo{}
	s := NewDynamoStore(fake, "OAuthStates", time.Minute)

	require.NoError(t, s.Consume(context.Background(), "abc"))
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "abc"}, fake.deletes[0].Key["state"])
	assert.Contains(t, *fake.deletes[0].ConditionExpression, "expires_at > :now")
}

func TestDynamoStore_Consume_ConditionFailed(t *testing.T) {
	fake := &fakeDynamo{delErr: &types.ConditionalCheckFailedException{}}
	s := NewDynamoStore(fake, "OAuthStates", time.Minute)

	assert.ErrorIs(t, s.Consume(context.Background(), "used"), ErrInvalidState)
}

func TestDynamoStore_Consume_OtherError(t *testing.T) {
	fake := &fakeDynamo{delErr: errors.New("throttled")}
	s := NewDynamoStore(fake, "OAuthStates", time.Minute)

	err := s.Consume(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidState)
}

func TestDynamoStore_Consume_Empty(t *testing.T) {
	fake := &fakeDynamo{}
	s := NewDynamoStore(fake, "OAuthStates", time.Minute)

	assert.ErrorIs(t, s.Consume(context.Background(), ""), ErrInvalidState)
	assert.Empty(t, fake.deletes)
}
