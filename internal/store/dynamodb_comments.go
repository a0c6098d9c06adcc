package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vidshare/api/internal/models"
)

// VideoIndexName is the GSI (video_id HASH, created_at RANGE) used for listing.
const VideoIndexName = "video_id-created_at-index"

// DynamoCommentStore implements CommentStore on DynamoDB.
type DynamoCommentStore struct {
	client    DynamoAPI
	tableName string
}

func NewDynamoCommentStore(client DynamoAPI, tableName string) *DynamoCommentStore {
	return &DynamoCommentStore{client: client, tableName: tableName}
}

func (s *DynamoCommentStore) ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	out := make([]models.Comment, 0)
	var startKey map[string]types.AttributeValue

	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			IndexName:              aws.String(VideoIndexName),
			KeyConditionExpression: aws.String("video_id = :video_id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":video_id": &types.AttributeValueMemberS{Value: videoID},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}

		var page []models.Comment
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal failed: %w", err)
		}
		out = append(out, page...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	// created_at strings are not fixed-width, so order in memory as well
	sortNewestFirst(out)
	return out, nil
}

func (s *DynamoCommentStore) Create(ctx context.Context, comment *models.Comment) error {
	item, err := attributevalue.MarshalMap(comment)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(comment_id)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("put item failed: %w", err)
	}
	return nil
}

func (s *DynamoCommentStore) Get(ctx context.Context, id string) (*models.Comment, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            commentKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}

	var comment models.Comment
	if err := attributevalue.UnmarshalMap(result.Item, &comment); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &comment, nil
}

func (s *DynamoCommentStore) UpdateText(ctx context.Context, id, authorID, text string, updatedAt time.Time) (*models.Comment, error) {
	updated, err := attributevalue.Marshal(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 commentKey(id),
		UpdateExpression:    aws.String("SET #text = :text, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(comment_id) AND author_id = :author_id"),
		ExpressionAttributeNames: map[string]string{
			"#text": "text",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":text":       &types.AttributeValueMemberS{Value: text},
			":updated_at": updated,
			":author_id":  &types.AttributeValueMemberS{Value: authorID},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailure(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update item failed: %w", err)
	}

	var comment models.Comment
	if err := attributevalue.UnmarshalMap(result.Attributes, &comment); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &comment, nil
}

func (s *DynamoCommentStore) Delete(ctx context.Context, id, authorID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 commentKey(id),
		ConditionExpression: aws.String("attribute_exists(comment_id) AND author_id = :author_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":author_id": &types.AttributeValueMemberS{Value: authorID},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete item failed: %w", err)
	}
	return nil
}

func commentKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"comment_id": &types.AttributeValueMemberS{Value: id}}
}
