package websocket

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// WebSocketConnection represents a connection stored in DynamoDB
type WebSocketConnection struct {
	ConnectionID string `json:"connectionId" dynamodbav:"connectionId"`
}

// ConnectionStore keeps the ids of subscribed websocket clients.
type ConnectionStore struct {
	Client dynamodbiface.DynamoDBAPI
	Table  string
}

func NewConnectionStore(client dynamodbiface.DynamoDBAPI, table string) *ConnectionStore {
	return &ConnectionStore{Client: client, Table: table}
}

func (s *ConnectionStore) Store(ctx context.Context, connectionID string) error {
	item, err := dynamodbattribute.MarshalMap(WebSocketConnection{ConnectionID: connectionID})
	if err != nil {
		return err
	}
	_, err = s.Client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item:      item,
	})
	return err
}

func (s *ConnectionStore) Delete(ctx context.Context, connectionID string) error {
	_, err := s.Client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.Table),
		Key:       map[string]*dynamodb.AttributeValue{"connectionId": {S: aws.String(connectionID)}},
	})
	return err
}

// Active lists every stored connection.
func (s *ConnectionStore) Active(ctx context.Context) ([]WebSocketConnection, error) {
	var connections []WebSocketConnection
	var decodeErr error

	err := s.Client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{TableName: aws.String(s.Table)},
		func(page *dynamodb.ScanOutput, lastPage bool) bool {
			var batch []WebSocketConnection
			if decodeErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &batch); decodeErr != nil {
				return false
			}
			connections = append(connections, batch...)
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to scan connections: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", decodeErr)
	}
	return connections, nil
}
