package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct{ msgs []kafka.Message }

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers(" a:9092, ,b:9092"))
	assert.Empty(t, Brokers(""))
}

func TestPublish(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, Publish(context.Background(), w, "k1", map[string]int{"n": 7}))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "k1", string(w.msgs[0].Key))
	var got map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, 7, got["n"])
	assert.False(t, w.msgs[0].Time.IsZero())
}

func TestNewWriter_FlushesQuickly(t *testing.T) {
	w := NewWriter("a:9092", "contest_events")
	defer w.Close()

	assert.Equal(t, "contest_events", w.Topic)
	assert.LessOrEqual(t, w.BatchTimeout, 50*time.Millisecond)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
