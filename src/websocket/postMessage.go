package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	log "github.com/sirupsen/logrus"
)

// Broadcaster posts messages to every subscribed websocket client.
type Broadcaster struct {
	API         apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
	Connections *ConnectionStore
}

func NewBroadcaster(api apigatewaymanagementapiiface.ApiGatewayManagementApiAPI, connections *ConnectionStore) *Broadcaster {
	return &Broadcaster{API: api, Connections: connections}
}

// PostMessage sends data to all connections. Failures for single connections
// are logged; connections the gateway reports as gone are removed.
func (b *Broadcaster) PostMessage(ctx context.Context, data []byte) error {
	connections, err := b.Connections.Active(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve connections: %w", err)
	}

	for _, conn := range connections {
		_, err := b.API.PostToConnectionWithContext(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(conn.ConnectionID),
			Data:         data,
		})
		if err == nil {
			continue
		}

		logger := log.WithField("connection", conn.ConnectionID)
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == apigatewaymanagementapi.ErrCodeGoneException {
			logger.Debug("pruning gone connection")
			if derr := b.Connections.Delete(ctx, conn.ConnectionID); derr != nil {
				logger.WithError(derr).Warn("failed to prune connection")
			}
			continue
		}
		logger.WithError(err).Warn("error sending message")
	}

	return nil
}

// Publish JSON-encodes v and broadcasts it.
func (b *Broadcaster) Publish(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.PostMessage(ctx, data)
}
