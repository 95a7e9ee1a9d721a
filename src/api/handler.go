package api

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"csv-telemetry-plotter/src/types"

	"github.com/aws/aws-lambda-go/events"
	log "github.com/sirupsen/logrus"
)

const defaultHistoryWindow = 24 * time.Hour

type HistoryStore interface {
	FetchHistory(ctx context.Context, since time.Time, limit int) ([]types.RunRecord, error)
	LatestAnomaly(ctx context.Context) (*types.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*types.RunRecord, error)
}

type Handler struct {
	Store HistoryStore
	Now   func() time.Time
}

func NewHandler(store HistoryStore) *Handler {
	return &Handler{Store: store, Now: time.Now}
}

var corsHeaders = map[string]string{
	"Content-Type":                 "application/json",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
}

func respond(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{StatusCode: status, Headers: corsHeaders, Body: body}
}

func respondJSON(v interface{}) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return respond(500, err.Error())
	}
	return respond(200, string(body))
}

// HandleHTTP serves the run history routes of the HTTP API.
//
//	GET /history?hours=N&limit=M  runs of the last N hours (default 24), newest first
//	GET /anomalies/latest         the newest anomaly run
//	GET /runs/{id}                one run by id
func (h *Handler) HandleHTTP(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	switch req.RouteKey {
	case "GET /history":
		window := defaultHistoryWindow
		if v := req.QueryStringParameters["hours"]; v != "" {
			hours, err := strconv.Atoi(v)
			if err != nil || hours <= 0 {
				return respond(400, "hours must be a positive integer"), nil
			}
			window = time.Duration(hours) * time.Hour
		}
		limit := 0
		if v := req.QueryStringParameters["limit"]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return respond(400, "limit must be a non-negative integer"), nil
			}
			limit = n
		}

		runs, err := h.Store.FetchHistory(ctx, h.Now().Add(-window), limit)
		if err != nil {
			log.WithError(err).Error("failed to fetch history")
			return respond(500, err.Error()), nil
		}
		if runs == nil {
			runs = []types.RunRecord{}
		}
		return respondJSON(runs), nil

	case "GET /anomalies/latest":
		run, err := h.Store.LatestAnomaly(ctx)
		if err != nil {
			log.WithError(err).Error("failed to fetch latest anomaly run")
			return respond(500, err.Error()), nil
		}
		if run == nil {
			return respond(404, "Not Found"), nil
		}
		return respondJSON(run), nil

	case "GET /runs/{id}":
		runID := req.PathParameters["id"]
		if runID == "" {
			return respond(400, "run id required"), nil
		}
		run, err := h.Store.GetRun(ctx, runID)
		if err != nil {
			log.WithError(err).WithField("run_id", runID).Error("failed to fetch run")
			return respond(500, err.Error()), nil
		}
		if run == nil {
			return respond(404, "Not Found"), nil
		}
		return respondJSON(run), nil

	case "OPTIONS /history", "OPTIONS /anomalies/latest", "OPTIONS /runs/{id}":
		return respond(204, ""), nil

	default:
		return respond(404, "Not Found"), nil
	}
}
