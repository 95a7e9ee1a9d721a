package websocket

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	log "github.com/sirupsen/logrus"
)

// Manage handles the $connect and $disconnect routes of the websocket API.
func Manage(ctx context.Context, req events.APIGatewayWebsocketProxyRequest, store *ConnectionStore) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID
	logger := log.WithField("connection", connectionID)

	switch req.RequestContext.RouteKey {
	case "$connect":
		logger.Info("new connection")
		if err := store.Store(ctx, connectionID); err != nil {
			logger.WithError(err).Error("failed to store connection")
			return events.APIGatewayProxyResponse{StatusCode: 500, Body: "Failed to store connection"}, err
		}
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil

	case "$disconnect":
		logger.Info("disconnected")
		if err := store.Delete(ctx, connectionID); err != nil {
			logger.WithError(err).Error("failed to delete connection")
			return events.APIGatewayProxyResponse{StatusCode: 500, Body: "Failed to delete connection"}, err
		}
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil

	default:
		return events.APIGatewayProxyResponse{StatusCode: 400, Body: "Invalid request"}, nil
	}
}
