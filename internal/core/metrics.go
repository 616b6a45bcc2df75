package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names and dimensions published by CloudWatchMetrics.
const (
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"

	DimMethod = "Method"
	DimRoute  = "Route"
	DimStatus = "Status"
)

const (
	// metricsBatchSize is the number of requests buffered before a
	// PutMetricData call. Each request contributes two data points.
	metricsBatchSize  = 50
	metricsPutTimeout = 5 * time.Second
)

// CloudWatchClient is the PutMetricData subset of the CloudWatch client.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ MetricsCollector = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics buffers request metrics and publishes them in batches.
// Publishing failures are logged and never reach the request path.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []cwtypes.MetricDatum
}

// NewCloudWatchMetrics creates a collector publishing to namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordRequest buffers a latency and a count data point and publishes the
// buffer once it is full.
func (m *CloudWatchMetrics) RecordRequest(method, route, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		{Name: aws.String(DimMethod), Value: aws.String(method)},
		{Name: aws.String(DimRoute), Value: aws.String(route)},
		{Name: aws.String(DimStatus), Value: aws.String(status)},
	}
	ts := m.now()

	m.mu.Lock()
	m.pending = append(m.pending,
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  aws.Time(ts),
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  aws.Time(ts),
			Dimensions: dims,
		},
	)
	var batch []cwtypes.MetricDatum
	if len(m.pending) >= metricsBatchSize*2 {
		batch = m.pending
		m.pending = nil
	}
	m.mu.Unlock()

	if batch != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsPutTimeout)
		defer cancel()
		if err := m.put(ctx, batch); err != nil {
			m.logger.Error("failed to publish request metrics", "error", err.Error(), "datapoints", len(batch))
		}
	}
}

// Flush publishes everything still buffered.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return m.put(ctx, batch)
}

func (m *CloudWatchMetrics) put(ctx context.Context, data []cwtypes.MetricDatum) error {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	return err
}
