package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/callready/funnel-api/internal/domain"
)

// LeadRepo provides typed DynamoDB operations for the leads table.
type LeadRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewLeadRepo(client *dynamodb.Client, tableName string) *LeadRepo {
	return &LeadRepo{client: client, tableName: tableName}
}

func (r *LeadRepo) Put(ctx context.Context, l *domain.Lead) error {
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *LeadRepo) Get(ctx context.Context, leadID string) (*domain.Lead, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("lead_id", leadID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("lead not found: %w", domain.ErrNotFound)
	}
	var l domain.Lead
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByContactSession looks up the single lead for a (contact, session) pair
// via the contact_id-session_id GSI.
func (r *LeadRepo) GetByContactSession(ctx context.Context, contactID, sessionID string) (*domain.Lead, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("contact_id-session_id-index"),
		KeyConditionExpression: aws.String("contact_id = :c AND session_id = :s"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: contactID},
			":s": &types.AttributeValueMemberS{Value: sessionID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("lead not found: %w", domain.ErrNotFound)
	}
	var l domain.Lead
	if err := attributevalue.UnmarshalMap(out.Items[0], &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Update performs a partial update; only the given fields are written.
func (r *LeadRepo) Update(ctx context.Context, leadID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("lead_id", leadID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// ScanPage returns a page of leads for the admin listing.
// cursor is a base64-encoded lead_id used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *LeadRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Lead, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if cursor != "" {
		leadID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("lead_id", leadID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var leads []domain.Lead
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &leads); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["lead_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return leads, nextCursor, nil
}

func encodeCursor(leadID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(leadID))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
