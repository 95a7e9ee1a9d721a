package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

type EventType string

const (
	EventWebSocket EventType = "websocket"
	EventHTTP      EventType = "http"
)

func DetectEventType(event json.RawMessage) (EventType, error) {
	// websocket events carry an event type (CONNECT, DISCONNECT, MESSAGE)
	var websocketEvent events.APIGatewayWebsocketProxyRequest
	if err := json.Unmarshal(event, &websocketEvent); err == nil {
		if websocketEvent.RequestContext.EventType != "" {
			return EventWebSocket, nil
		}
	}

	var httpEvent events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(event, &httpEvent); err == nil {
		if httpEvent.RouteKey != "" && httpEvent.RequestContext.HTTP.Method != "" {
			return EventHTTP, nil
		}
	}

	return "", fmt.Errorf("unknown event type")
}
