package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("farm_001"),
		Value:     []byte(`{"farm_id":"farm_001"}`),
		Topic:     "irrigation-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("mobile")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("farm_001"), raw.Key)
	assert.JSONEq(t, `{"farm_id":"farm_001"}`, string(raw.Value))
	assert.Equal(t, "irrigation-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "mobile", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("farm_002"),
		Value: []byte(`{"id":"a-1"}`),
		Headers: map[string]string{
			"urgency":     "low",
			"computed_at": "2024-10-26T05:00:00Z",
		},
	}

	msg := toMessage(event)

	assert.Equal(t, []byte("farm_002"), msg.Key)
	assert.JSONEq(t, `{"id":"a-1"}`, string(msg.Value))
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "computed_at", msg.Headers[0].Key)
	assert.Equal(t, []byte("2024-10-26T05:00:00Z"), msg.Headers[0].Value)
	assert.Equal(t, "urgency", msg.Headers[1].Key)
	assert.Equal(t, []byte("low"), msg.Headers[1].Value)
}

func TestToMessage_NoHeaders(t *testing.T) {
	msg := toMessage(domain.OutputEvent{Key: []byte("k"), Value: []byte("{}")})
	assert.Empty(t, msg.Headers)
}
