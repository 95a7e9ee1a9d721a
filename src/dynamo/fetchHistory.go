package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"csv-telemetry-plotter/src/types"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	log "github.com/sirupsen/logrus"
)

// FetchHistory returns runs created at or after since, newest first. A
// non-positive limit returns all of them.
func (s *RunStore) FetchHistory(ctx context.Context, since time.Time, limit int) ([]types.RunRecord, error) {
	var runs []types.RunRecord

	err := s.Client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{TableName: aws.String(s.Table)},
		func(page *dynamodb.ScanOutput, lastPage bool) bool {
			for _, item := range page.Items {
				var rec types.RunRecord
				if err := dynamodbattribute.UnmarshalMap(item, &rec); err != nil {
					log.WithError(err).Warn("skipping unreadable run record")
					continue
				}
				if !rec.CreatedAt.Before(since) {
					runs = append(runs, rec)
				}
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// LatestAnomaly returns the newest anomaly run, or nil when none is stored.
func (s *RunStore) LatestAnomaly(ctx context.Context) (*types.RunRecord, error) {
	runs, err := s.FetchHistory(ctx, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Kind == types.RunKindAnomaly && runs[i].Anomaly != nil {
			return &runs[i], nil
		}
	}
	return nil, nil
}
