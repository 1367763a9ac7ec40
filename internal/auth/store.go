package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/studybite/backend/internal/model"
)

// SessionStore persists encrypted session records keyed by user ID.
type SessionStore interface {
	// Get returns ErrSessionNotFound when nothing is stored for userID.
	Get(ctx context.Context, userID string) (*model.SessionRecord, error)
	Put(ctx context.Context, record model.SessionRecord) error
	Delete(ctx context.Context, userID string) error
}

// DynamoAPI is the subset of the DynamoDB client the session store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoSessionStore stores sessions in a DynamoDB table with "user_id" as key.
type DynamoSessionStore struct {
	client    DynamoAPI
	tableName string
}

func NewDynamoSessionStore(client DynamoAPI, tableName string) *DynamoSessionStore {
	return &DynamoSessionStore{client: client, tableName: tableName}
}

func (s *DynamoSessionStore) key(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
}

func (s *DynamoSessionStore) Get(ctx context.Context, userID string) (*model.SessionRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return nil, ErrSessionNotFound
	}

	var record model.SessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &record, nil
}

func (s *DynamoSessionStore) Put(ctx context.Context, record model.SessionRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save session to DynamoDB: %w", err)
	}
	return nil
}

func (s *DynamoSessionStore) Delete(ctx context.Context, userID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(userID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps sessions in process memory (dev mode, tests).
type MemorySessionStore struct {
	mu      sync.RWMutex
	records map[string]model.SessionRecord
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{records: make(map[string]model.SessionRecord)}
}

func (m *MemorySessionStore) Get(_ context.Context, userID string) (*model.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &record, nil
}

func (m *MemorySessionStore) Put(_ context.Context, record model.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.UserID] = record
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, userID)
	return nil
}
