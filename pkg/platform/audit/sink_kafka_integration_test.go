//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/testutil/containers"
)

func TestKafkaSinkEmit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redpanda := containers.NewRedpandaContainer(t)
	const topic = "waste-movements.audit.test"

	producer, err := audit.NewKafkaClient(redpanda.Brokers)
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	admin := kadm.NewClient(producer)
	_, err = admin.CreateTopics(ctx, 1, 1, nil, topic)
	require.NoError(t, err)

	sink := audit.NewKafkaSink(producer, topic)
	event := audit.Event{
		Type:      audit.EventMovementCreated,
		TraceID:   "trace-kafka-1",
		Version:   1,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"wasteTrackingId": "WT-KAFKA-1"},
	}
	require.NoError(t, sink.Emit(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "trace-kafka-1", string(records[0].Key))

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &decoded))
	require.Equal(t, audit.EventMovementCreated, decoded.Type)
	require.Equal(t, "trace-kafka-1", decoded.TraceID)
}
