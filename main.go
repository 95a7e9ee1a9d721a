package main

import (
	"os"

	"csv-telemetry-plotter/src/api"
	"csv-telemetry-plotter/src/config"
	"csv-telemetry-plotter/src/dispatch"
	"csv-telemetry-plotter/src/dynamo"
	"csv-telemetry-plotter/src/logging"
	"csv-telemetry-plotter/src/websocket"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"
)

// Lambda entrypoint serving run history over HTTP and managing websocket
// subscribers of live playback frames.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	if err := logging.Configure(cfg.LogLevel); err != nil {
		log.WithError(err).Error("invalid log level")
		os.Exit(1)
	}

	db := dynamo.GetDynamoDBClient(cfg.Region)
	handler := &dispatch.Handler{
		Connections: websocket.NewConnectionStore(db, cfg.ConnectionsTable),
		HTTP:        api.NewHandler(dynamo.NewRunStore(db, cfg.RunsTable)),
	}

	lambda.Start(handler.Handle)
}
