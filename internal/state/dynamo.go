package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/studybite/backend/internal/model"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps states in a DynamoDB table keyed by "state", with the
// table's TTL attribute on "expires_at".
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// NewDynamoStore creates a DynamoStore.
func NewDynamoStore(client DynamoAPI, tableName string, ttl time.Duration) *DynamoStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *DynamoStore) Issue(ctx context.Context) (string, error) {
	st := model.OAuthState{
		State:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	}

	item, err := attributevalue.MarshalMap(st)
	if err != nil {
		return "", fmt.Errorf("failed to marshal oauth state: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#s)"),
		ExpressionAttributeNames: map[string]string{
			"#s": "state",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}
	return st.State, nil
}

// Consume deletes the item only while it is unexpired. DynamoDB TTL
// deletion lags, so the expiry is checked in the condition as well.
func (s *DynamoStore) Consume(ctx context.Context, value string) error {
	if value == "" {
		return ErrInvalidState
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"state": &types.AttributeValueMemberS{Value: value},
		},
		ConditionExpression: aws.String("attribute_exists(#s) AND expires_at > :now"),
		ExpressionAttributeNames: map[string]string{
			"#s": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Unix(), 10)},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return ErrInvalidState
		}
		return fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return nil
}
