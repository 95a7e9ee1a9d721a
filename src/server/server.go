// Package server exposes the application state over HTTP: uploads and anomaly
// detection in, state JSON, PNG charts and the gauge readout out.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"csv-telemetry-plotter/src/app"
	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/gauge"
	"csv-telemetry-plotter/src/render"
	"csv-telemetry-plotter/src/types"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxUploadMemory bounds the multipart form held in memory.
const maxUploadMemory = 32 << 20

type Handler struct {
	Controller  *app.Controller
	ChartWidth  int
	ChartHeight int
}

func NewHandler(c *app.Controller) *Handler {
	return &Handler{Controller: c}
}

// Router builds the gin engine with every dashboard route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = maxUploadMemory

	r.POST("/upload", h.Upload)
	r.POST("/detect_anomalies", h.DetectAnomalies)
	r.GET("/state", h.State)
	r.GET("/charts/:idx", h.Chart)
	r.GET("/charts/:idx/matches", h.Matches)
	r.GET("/anomalies/chart", h.AnomalyChart)
	r.GET("/gauge", h.Gauge)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request served")
	}
}

// readFiles collects every "file" part of the multipart form.
func readFiles(c *gin.Context) ([]types.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	headers := form.File["file"]
	files := make([]types.File, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		files = append(files, types.File{Name: fh.Filename, Content: content})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) Upload(c *gin.Context) {
	files, err := readFiles(c)
	if err != nil || len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}

	h.Controller.SelectFiles(files)
	h.Controller.Submit(c.Request.Context())
	c.JSON(http.StatusOK, h.Controller.Snapshot())
}

// DetectAnomalies runs detection on the first selected file. Files posted with
// the request replace the selection first.
func (h *Handler) DetectAnomalies(c *gin.Context) {
	if c.ContentType() == "multipart/form-data" {
		files, err := readFiles(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(files) > 0 {
			h.Controller.SelectFiles(files)
		}
	}

	if _, err := h.Controller.DetectAnomalies(c.Request.Context()); err != nil {
		if errors.Is(err, app.ErrNoSelection) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": h.Controller.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, h.Controller.Snapshot())
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.Controller.Snapshot())
}

func resultIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chart index"})
		return 0, false
	}
	return idx, true
}

func (h *Handler) Chart(c *gin.Context) {
	idx, ok := resultIndex(c)
	if !ok {
		return
	}
	b, ok := h.Controller.PlaybackBundle(idx)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such chart"})
		return
	}
	h.writePNG(c, b)
}

func (h *Handler) Matches(c *gin.Context) {
	idx, ok := resultIndex(c)
	if !ok {
		return
	}
	entries, ok := h.Controller.MatchingEntries(idx)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such result"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) AnomalyChart(c *gin.Context) {
	b, ok := h.Controller.AnomalyBundle()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no anomaly result"})
		return
	}
	h.writePNG(c, b)
}

// Gauge renders the smart meter text. Without ?idx the latest reading of any
// playback is shown.
func (h *Handler) Gauge(c *gin.Context) {
	reading := h.Controller.Snapshot().Gauge
	if v := c.Query("idx"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid idx"})
			return
		}
		r, ok := h.Controller.DriverGauge(idx)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such result"})
			return
		}
		reading = r
	}
	c.String(http.StatusOK, gauge.Render(reading))
}

func (h *Handler) writePNG(c *gin.Context, b chartdata.Bundle) {
	var buf bytes.Buffer
	if err := render.PNG(&buf, b, h.ChartWidth, h.ChartHeight); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
