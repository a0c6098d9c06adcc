package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vidshare/api/internal/models"
)

// The users table is keyed by user_id. Besides the user item, each account
// owns two claim items keyed "username#<name>" and "email#<addr>" whose
// owner_id points back at the user. The three items are written in one
// transaction guarded by attribute_not_exists, which makes registration
// atomic without secondary indexes.
const (
	usernameClaimPrefix = "username#"
	emailClaimPrefix    = "email#"
)

type claimItem struct {
	Key     string `dynamodbav:"user_id"`
	OwnerID string `dynamodbav:"owner_id"`
}

// DynamoUserStore implements UserStore on DynamoDB.
type DynamoUserStore struct {
	client    DynamoAPI
	tableName string
}

func NewDynamoUserStore(client DynamoAPI, tableName string) *DynamoUserStore {
	return &DynamoUserStore{client: client, tableName: tableName}
}

func (s *DynamoUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	for _, key := range []string{usernameClaimPrefix + username, emailClaimPrefix + email} {
		var claim claimItem
		found, err := s.getItem(ctx, key, &claim)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		var user models.User
		found, err = s.getItem(ctx, claim.OwnerID, &user)
		if err != nil {
			return nil, err
		}
		if found {
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *DynamoUserStore) InsertIfAbsent(ctx context.Context, user *models.User) error {
	userItem, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	usernameClaim, err := attributevalue.MarshalMap(claimItem{Key: usernameClaimPrefix + user.Username, OwnerID: user.UserID})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	emailClaim, err := attributevalue.MarshalMap(claimItem{Key: emailClaimPrefix + user.Email, OwnerID: user.UserID})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	items := make([]types.TransactWriteItem, 0, 3)
	for _, item := range []map[string]types.AttributeValue{userItem, usernameClaim, emailClaim} {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if isConditionFailure(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("transact write failed: %w", err)
	}
	return nil
}

func (s *DynamoUserStore) getItem(ctx context.Context, key string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            map[string]types.AttributeValue{"user_id": &types.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get item failed: %w", err)
	}
	if len(result.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal failed: %w", err)
	}
	return true, nil
}
