package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/render"
	"csv-telemetry-plotter/src/types"
)

// readFiles loads the named CSV files in argument order.
func readFiles(paths []string) ([]types.File, error) {
	files := make([]types.File, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, types.File{Name: filepath.Base(p), Content: content})
	}
	return files, nil
}

// chartPath maps "data/run.csv" with suffix "-anomalies" to "<dir>/run-anomalies.png".
func chartPath(dir, fileName, suffix string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+suffix+".png")
}

func writeChart(path string, b chartdata.Bundle, width, height int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	var buf bytes.Buffer
	if err := render.PNG(&buf, b, width, height); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
