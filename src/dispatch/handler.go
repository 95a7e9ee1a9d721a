package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"csv-telemetry-plotter/src/api"
	"csv-telemetry-plotter/src/websocket"

	"github.com/aws/aws-lambda-go/events"
	log "github.com/sirupsen/logrus"
)

// Handler routes raw Lambda events to the websocket or HTTP handler.
type Handler struct {
	Connections *websocket.ConnectionStore
	HTTP        *api.Handler
}

func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (interface{}, error) {
	eventType, err := DetectEventType(event)
	if err != nil {
		log.WithError(err).Error("error detecting event type")
		return nil, err
	}

	switch eventType {
	case EventWebSocket:
		var req events.APIGatewayWebsocketProxyRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal websocket event: %w", err)
		}
		return websocket.Manage(ctx, req, h.Connections)

	case EventHTTP:
		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal http event: %w", err)
		}
		return h.HTTP.HandleHTTP(ctx, req)

	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}
