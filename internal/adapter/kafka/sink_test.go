package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SENERGY-Platform/import-radolan/internal/domain"
)

var msgTime = time.Date(2021, 7, 13, 16, 50, 0, 0, time.UTC)

func TestSerializeMessage(t *testing.T) {
	obs := domain.NewObservation(msgTime, 51.32, 12.37, 5.12, 4326, 0.1, "mm/d", 2, "Dauerregen")

	msg, err := serializeMessage("import-1", msgTime, obs)
	require.NoError(t, err)

	assert.Equal(t, []byte("import-1"), msg.Key)
	assert.True(t, msg.Time.Equal(msgTime))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "2021-07-13T16:50:00Z", headers[importTimeHeader])
	assert.Equal(t, "import-1", headers[importIDHeader])

	// The payload round-trips into the same observation; the timestamp
	// travels only out of band.
	parsed, err := domain.ParseObservation(msg.Value)
	require.NoError(t, err)
	obs.Timestamp = time.Time{}
	assert.Equal(t, obs, parsed)
}

func TestSerializeMessagePayloadShape(t *testing.T) {
	obs := domain.NewObservation(msgTime, 51.32, 12.37, 5.12, 4326, 0.1, "mm/d", -1, "")

	msg, err := serializeMessage("import-1", msgTime, obs)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.NotContains(t, payload, "timestamp")
	assert.Equal(t, -1.0, payload["warn_level"])
	assert.Equal(t, "", payload["warn_event"])
}

func TestMessageTimePrefersHeader(t *testing.T) {
	brokerTime := msgTime.Add(3 * time.Hour)
	msg := kafkago.Message{
		Time: brokerTime,
		Headers: []kafkago.Header{
			{Key: importTimeHeader, Value: []byte(msgTime.Format(time.RFC3339))},
		},
	}
	assert.True(t, messageTime(msg).Equal(msgTime))
}

func TestMessageTimeFallsBackToBrokerTime(t *testing.T) {
	brokerTime := msgTime.Add(3 * time.Hour)

	t.Run("no header", func(t *testing.T) {
		msg := kafkago.Message{Time: brokerTime}
		assert.True(t, messageTime(msg).Equal(brokerTime))
	})

	t.Run("unparseable header", func(t *testing.T) {
		msg := kafkago.Message{
			Time:    brokerTime,
			Headers: []kafkago.Header{{Key: importTimeHeader, Value: []byte("yesterday")}},
		}
		assert.True(t, messageTime(msg).Equal(brokerTime))
	})
}

func TestSleepWithContext(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		assert.True(t, sleepWithContext(context.Background(), time.Millisecond))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, sleepWithContext(ctx, time.Minute))
	})
}
