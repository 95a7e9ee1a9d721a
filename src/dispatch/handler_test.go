package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"csv-telemetry-plotter/src/api"
	"csv-telemetry-plotter/src/dynamo"
	"csv-telemetry-plotter/src/dynamo/dynamotest"
	"csv-telemetry-plotter/src/types"
	"csv-telemetry-plotter/src/websocket"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const connectEvent = `{"requestContext":{"routeKey":"$connect","eventType":"CONNECT","connectionId":"abc"}}`

const historyEvent = `{"version":"2.0","routeKey":"GET /history","rawPath":"/history",
"requestContext":{"http":{"method":"GET","path":"/history"}}}`

func TestDetectEventType(t *testing.T) {
	et, err := DetectEventType(json.RawMessage(connectEvent))
	require.NoError(t, err)
	assert.Equal(t, EventWebSocket, et)

	et, err = DetectEventType(json.RawMessage(historyEvent))
	require.NoError(t, err)
	assert.Equal(t, EventHTTP, et)

	_, err = DetectEventType(json.RawMessage(`{"Records":[]}`))
	assert.Error(t, err)
}

func newHandler(t *testing.T) *Handler {
	t.Helper()
	runs := dynamo.NewRunStore(dynamotest.New("RunID"), "PlotterRuns")
	require.NoError(t, runs.StoreRun(context.Background(), types.RunRecord{
		RunID: "r1", Kind: types.RunKindUpload, CreatedAt: time.Now(),
	}))
	return &Handler{
		Connections: websocket.NewConnectionStore(dynamotest.New("connectionId"), "WebSocketConnections"),
		HTTP:        api.NewHandler(runs),
	}
}

func TestHandleWebSocket(t *testing.T) {
	h := newHandler(t)
	out, err := h.Handle(context.Background(), json.RawMessage(connectEvent))
	require.NoError(t, err)
	res := out.(events.APIGatewayProxyResponse)
	assert.Equal(t, 200, res.StatusCode)

	conns, err := h.Connections.Active(context.Background())
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "abc", conns[0].ConnectionID)
}

func TestHandleHTTP(t *testing.T) {
	out, err := newHandler(t).Handle(context.Background(), json.RawMessage(historyEvent))
	require.NoError(t, err)
	res := out.(events.APIGatewayV2HTTPResponse)
	assert.Equal(t, 200, res.StatusCode)
	assert.Contains(t, res.Body, `"runId":"r1"`)
}

func TestHandleUnknown(t *testing.T) {
	_, err := newHandler(t).Handle(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}
