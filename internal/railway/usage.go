package railway

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
)

const usageQuery = `query usage($projectId: String!, $startDate: DateTime!, $endDate: DateTime!) {
  usage(
    projectId: $projectId
    measurements: [CPU_USAGE, MEMORY_USAGE_GB, DISK_USAGE_GB, NETWORK_RX_GB, NETWORK_TX_GB]
    startDate: $startDate
    endDate: $endDate
    groupBy: [SERVICE_ID]
  ) {
    measurement
    value
    tags {
      serviceId
    }
  }
}`

// Measurement names returned by the usage query.
const (
	measurementCPU     = "CPU_USAGE"
	measurementMemory  = "MEMORY_USAGE_GB"
	measurementDisk    = "DISK_USAGE_GB"
	measurementIngress = "NETWORK_RX_GB"
	measurementEgress  = "NETWORK_TX_GB"
)

type usageData struct {
	Usage []struct {
		Measurement string  `json:"measurement"`
		Value       float64 `json:"value"`
		Tags        struct {
			ServiceID *string `json:"serviceId"`
		} `json:"tags"`
	} `json:"usage"`
}

// Usage returns the usage of serviceID in projectID over
// [start, start+period). Measurements the API does not return are zero.
func (c *Client) Usage(
	ctx context.Context,
	projectID, serviceID string,
	start time.Time,
	period time.Duration,
) (alarm.Usage, error) {
	end := start.Add(period)

	var data usageData

	err := c.query(ctx, usageQuery, map[string]any{
		"projectId": projectID,
		"startDate": start.UTC(),
		"endDate":   end.UTC(),
	}, &data)
	if err != nil {
		return alarm.Usage{}, fmt.Errorf("query usage: %w", err)
	}

	usage := alarm.Usage{Start: start, End: end}
	found := false

	for _, item := range data.Usage {
		if item.Tags.ServiceID == nil || *item.Tags.ServiceID != serviceID {
			continue
		}

		found = true

		switch item.Measurement {
		case measurementCPU:
			usage.CPU = item.Value
		case measurementMemory:
			usage.MemoryGB = item.Value
		case measurementDisk:
			usage.DiskGB = item.Value
		case measurementIngress:
			usage.IngressGB = item.Value
		case measurementEgress:
			usage.EgressGB = item.Value
		default:
			logger.DebugKV(ctx, "Ignoring unknown measurement", "measurement", item.Measurement)
		}
	}

	if !found {
		logger.WarnKV(ctx, "No measurements collected for service", "service_id", serviceID)
	}

	return usage, nil
}
