// Package metrics emits invitation outcome metrics to AWS CloudWatch.
package metrics

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"reviewloop/internal/invites"
	"reviewloop/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchEmitter implements invites.Emitter by publishing an
// InvitationOutcome metric with a Result dimension on every terminal
// transition. Emission is best-effort; failures are logged and dropped.
type CloudWatchEmitter struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

var _ invites.Emitter = (*CloudWatchEmitter)(nil)

// NewCloudWatchEmitter creates an emitter publishing to the given namespace.
func NewCloudWatchEmitter(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchEmitter {
	return &CloudWatchEmitter{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// EmitOutcome publishes one InvitationOutcome datum.
func (m *CloudWatchEmitter) EmitOutcome(ctx context.Context, status types.InvitationStatus) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("InvitationOutcome"),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String("Result"),
						Value: aws.String(string(status)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to emit outcome metric",
			"result", status,
			"error", err,
		)
	}
}
