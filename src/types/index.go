package types

import "time"

// Point is one row of a series as returned by the backend.
type Point struct {
	Index float64 `json:"index" dynamodbav:"index"`
	Value float64 `json:"value" dynamodbav:"value"`
}

// File is a CSV file selected for upload.
type File struct {
	Name    string
	Content []byte
}

type UploadResult struct {
	FileName        string    `json:"fileName" dynamodbav:"fileName"`
	ChartData       []Point   `json:"chartData" dynamodbav:"chartData"`
	MatchingIndices []int     `json:"matchingIndices" dynamodbav:"matchingIndices"`
	MatchingValues  []float64 `json:"matchingValues" dynamodbav:"matchingValues"`
}

type Thresholds struct {
	Low  float64 `json:"low" dynamodbav:"low"`
	High float64 `json:"high" dynamodbav:"high"`
}

type AnomalyResult struct {
	FileName       string     `json:"fileName" dynamodbav:"fileName"`
	AnomalyIndices []int      `json:"anomalyIndices" dynamodbav:"anomalyIndices"`
	Anomalies      []float64  `json:"anomalies" dynamodbav:"anomalies"`
	Thresholds     Thresholds `json:"thresholds" dynamodbav:"thresholds"`
	AllValues      []float64  `json:"allValues" dynamodbav:"allValues"`
}

// GaugeReading is the most recently revealed playback point. Nil fields mean
// nothing has been revealed yet.
type GaugeReading struct {
	Value *float64 `json:"value"`
	Time  *float64 `json:"time"`
}

// PlaybackState is the incrementally revealed chart of one result. A nil entry
// in Values or Highlighted is a gap: no point is drawn there.
type PlaybackState struct {
	Labels      []float64  `json:"labels"`
	Values      []*float64 `json:"values"`
	Highlighted []*float64 `json:"highlighted"`
}

type RunKind string

const (
	RunKindUpload  RunKind = "upload"
	RunKindAnomaly RunKind = "anomaly"
)

// RunRecord is one persisted submission.
type RunRecord struct {
	RunID     string         `json:"runId" dynamodbav:"RunID"`
	Kind      RunKind        `json:"kind" dynamodbav:"Kind"`
	CreatedAt time.Time      `json:"createdAt" dynamodbav:"CreatedAt"`
	Files     []string       `json:"files" dynamodbav:"Files"`
	Uploads   []UploadResult `json:"uploads,omitempty" dynamodbav:"Uploads,omitempty"`
	Anomaly   *AnomalyResult `json:"anomaly,omitempty" dynamodbav:"Anomaly,omitempty"`
	TTL       int64          `json:"-" dynamodbav:"ttl,omitempty"`
}
