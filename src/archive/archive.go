// Package archive uploads rendered charts to S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type Archiver struct {
	Client s3iface.S3API
	Bucket string
	Prefix string
}

func NewS3Client(region string) *s3.S3 {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
	}))
	return s3.New(sess)
}

func New(client s3iface.S3API, bucket string) *Archiver {
	return &Archiver{Client: client, Bucket: bucket, Prefix: "runs"}
}

// ChartKey is the object key of a chart: <prefix>/<runID>/<name>.png, with the
// CSV extension dropped and path separators flattened.
func (a *Archiver) ChartKey(runID, name string) string {
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(name, "\\", "/")), ".csv")
	base = strings.NewReplacer(" ", "_", "/", "_").Replace(base)
	if base == "" || base == "." {
		base = "chart"
	}
	return path.Join(a.Prefix, runID, base+".png")
}

// PutChart stores one PNG and returns its key.
func (a *Archiver) PutChart(ctx context.Context, runID, name string, png []byte) (string, error) {
	key := a.ChartKey(runID, name)
	_, err := a.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload chart %s: %w", key, err)
	}
	return key, nil
}
