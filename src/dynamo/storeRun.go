package dynamo

import (
	"context"
	"fmt"
	"time"

	"csv-telemetry-plotter/src/types"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// DefaultRetention is how long run records live before the table TTL drops them.
const DefaultRetention = 24 * time.Hour

// RunStore persists submitted runs, one item per run keyed by RunID.
type RunStore struct {
	Client    dynamodbiface.DynamoDBAPI
	Table     string
	Retention time.Duration
}

func NewRunStore(client dynamodbiface.DynamoDBAPI, table string) *RunStore {
	return &RunStore{Client: client, Table: table, Retention: DefaultRetention}
}

func (s *RunStore) StoreRun(ctx context.Context, rec types.RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run record has no id")
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if s.Retention > 0 {
		rec.TTL = rec.CreatedAt.Add(s.Retention).Unix()
	}

	item, err := dynamodbattribute.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", rec.RunID, err)
	}

	_, err = s.Client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put run %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, runID string) (*types.RunRecord, error) {
	out, err := s.Client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Table),
		Key: map[string]*dynamodb.AttributeValue{
			"RunID": {S: aws.String(runID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var rec types.RunRecord
	if err := dynamodbattribute.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	return &rec, nil
}
