// Package chartdata turns backend results into renderable series bundles.
//
// A bundle mirrors a line chart: a shared label axis plus datasets of equal
// length, where a nil entry is a gap and no point is drawn there.
package chartdata

import (
	"fmt"
	"strings"

	"csv-telemetry-plotter/src/types"
	"csv-telemetry-plotter/src/utils"
)

const (
	LabelValues          = "Values"
	LabelMatching        = "Consecutive Matching Values"
	LabelAllValues       = "All Values"
	LabelAnomalies       = "Anomalies"
	LabelUpperThreshold  = "Upper Threshold"
	LabelLowerThreshold  = "Lower Threshold"
	AxisRowIndex         = "Row Index"
	AxisValues           = "Values"
	highlightPointRadius = 5
)

// MatchMode selects how anomaly overlay membership is decided.
type MatchMode string

const (
	// MatchByValue flags every position whose value equals any anomaly value,
	// so a repeated value is flagged at each occurrence.
	MatchByValue MatchMode = "value"
	// MatchByIndex flags exactly the positions listed in AnomalyIndices.
	MatchByIndex MatchMode = "index"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchByValue:
		return MatchByValue, nil
	case MatchByIndex:
		return MatchByIndex, nil
	}
	return "", fmt.Errorf("unknown anomaly match mode %q (want value or index)", s)
}

type Dataset struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	Color       string     `json:"borderColor"`
	PointRadius float64    `json:"pointRadius,omitempty"`
	Dashed      bool       `json:"dashed,omitempty"`
}

type Bundle struct {
	Title    string    `json:"title"`
	XLabel   string    `json:"xLabel"`
	YLabel   string    `json:"yLabel"`
	Labels   []float64 `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Empty reports whether the bundle has nothing to draw.
func (b Bundle) Empty() bool {
	for _, ds := range b.Datasets {
		for _, v := range ds.Data {
			if v != nil {
				return false
			}
		}
	}
	return true
}

func ptr(v float64) *float64 { return &v }

func indexSet(idx []int) map[int]struct{} {
	set := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		set[i] = struct{}{}
	}
	return set
}

func ValuesDataset() Dataset {
	return Dataset{Label: LabelValues, Color: "blue", Data: []*float64{}}
}

func MatchingDataset() Dataset {
	return Dataset{Label: LabelMatching, Color: "red", PointRadius: highlightPointRadius, Data: []*float64{}}
}

// MatchingOverlay emits the full value series plus an overlay carrying the
// value at every position listed in MatchingIndices and a gap elsewhere.
func MatchingOverlay(r types.UploadResult) Bundle {
	matches := indexSet(r.MatchingIndices)
	values, overlay := ValuesDataset(), MatchingDataset()
	labels := make([]float64, 0, len(r.ChartData))

	for pos, p := range r.ChartData {
		labels = append(labels, p.Index)
		values.Data = append(values.Data, ptr(p.Value))
		if _, ok := matches[pos]; ok {
			overlay.Data = append(overlay.Data, ptr(p.Value))
		} else {
			overlay.Data = append(overlay.Data, nil)
		}
	}

	return Bundle{
		Title:    r.FileName,
		XLabel:   AxisRowIndex,
		YLabel:   AxisValues,
		Labels:   labels,
		Datasets: []Dataset{values, overlay},
	}
}

// AnomalyOverlay emits all values, the anomaly overlay and two constant
// threshold series spanning every position.
func AnomalyOverlay(r types.AnomalyResult, mode MatchMode) Bundle {
	n := len(r.AllValues)
	labels := make([]float64, n)
	all := Dataset{Label: LabelAllValues, Color: "blue", Data: make([]*float64, n)}
	anomalies := Dataset{Label: LabelAnomalies, Color: "red", PointRadius: highlightPointRadius, Data: make([]*float64, n)}
	upper := Dataset{Label: LabelUpperThreshold, Color: "orange", Dashed: true, Data: make([]*float64, n)}
	lower := Dataset{Label: LabelLowerThreshold, Color: "orange", Dashed: true, Data: make([]*float64, n)}

	flagged := anomalyMembership(r, mode)
	for i, v := range r.AllValues {
		labels[i] = float64(i)
		all.Data[i] = ptr(v)
		if flagged(i, v) {
			anomalies.Data[i] = ptr(v)
		}
		upper.Data[i] = ptr(r.Thresholds.High)
		lower.Data[i] = ptr(r.Thresholds.Low)
	}

	return Bundle{
		Title:    r.FileName + " - Anomalies Detected",
		XLabel:   AxisRowIndex,
		YLabel:   AxisValues,
		Labels:   labels,
		Datasets: []Dataset{all, anomalies, upper, lower},
	}
}

func anomalyMembership(r types.AnomalyResult, mode MatchMode) func(pos int, v float64) bool {
	if mode == MatchByIndex {
		set := indexSet(r.AnomalyIndices)
		return func(pos int, _ float64) bool {
			_, ok := set[pos]
			return ok
		}
	}
	values := make(map[float64]struct{}, len(r.Anomalies))
	for _, a := range r.Anomalies {
		values[a] = struct{}{}
	}
	return func(_ int, v float64) bool {
		_, ok := values[v]
		return ok
	}
}

// Entry is one "Index: i, Value: v" line of a listing. Value is nil when the
// backend sent fewer values than indices.
type Entry struct {
	Index int                `json:"index"`
	Value *float64           `json:"value"`
	Level utils.AnomalyLevel `json:"level,omitempty"`
}

func (e Entry) String() string {
	v := "--"
	if e.Value != nil {
		v = fmt.Sprint(*e.Value)
	}
	s := fmt.Sprintf("Index: %d, Value: %s", e.Index, v)
	if e.Level != "" {
		s += fmt.Sprintf(" (%s)", e.Level)
	}
	return s
}

func MatchingEntries(r types.UploadResult) []Entry {
	out := make([]Entry, 0, len(r.MatchingIndices))
	for i, idx := range r.MatchingIndices {
		e := Entry{Index: idx}
		if i < len(r.MatchingValues) {
			e.Value = ptr(r.MatchingValues[i])
		}
		out = append(out, e)
	}
	return out
}

// AnomalyEntries lists the flagged indices with their values, graded by how far
// each value sits from the mean of AllValues.
func AnomalyEntries(r types.AnomalyResult) []Entry {
	summary := utils.Summarize(r.AllValues)
	out := make([]Entry, 0, len(r.AnomalyIndices))
	for i, idx := range r.AnomalyIndices {
		e := Entry{Index: idx}
		if i < len(r.Anomalies) {
			e.Value = ptr(r.Anomalies[i])
			e.Level = utils.ComputeAnomalyLevel(r.Anomalies[i], summary.StandardDeviation, summary.Average)
		}
		out = append(out, e)
	}
	return out
}

// FromPlayback wraps a partially revealed playback state as a matching overlay bundle.
func FromPlayback(fileName string, s types.PlaybackState) Bundle {
	values, overlay := ValuesDataset(), MatchingDataset()
	values.Data = append(values.Data, s.Values...)
	overlay.Data = append(overlay.Data, s.Highlighted...)
	return Bundle{
		Title:    fileName,
		XLabel:   AxisRowIndex,
		YLabel:   AxisValues,
		Labels:   append([]float64{}, s.Labels...),
		Datasets: []Dataset{values, overlay},
	}
}
