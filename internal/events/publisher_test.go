package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/observability"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	pub := newKafkaPublisher(w, zerolog.Nop(), metrics)

	event, err := domain.NewEvent(domain.EventTypeReactionAdded, domain.SourceCore, "42", domain.ReactionPayload{UserID: "u1", Count: 5, IsTopPaper: true})
	require.NoError(t, err)

	ctx := observability.WithRequestID(context.Background(), "req-1")
	ctx = observability.WithUserID(ctx, "u1")
	require.NoError(t, pub.Publish(ctx, event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "core:42", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("reaction.added")}}, msg.Headers)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, event.EventID, env.EventID)
	assert.Equal(t, "reaction.added", env.Type)
	assert.Equal(t, domain.SourceCore, env.Source)
	assert.Equal(t, "42", env.PaperID)
	assert.Equal(t, "u1", env.UserID)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, ServiceName, env.Service)
	assert.JSONEq(t, `{"user_id":"u1","count":5,"is_top_paper":true}`, string(env.Payload))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("reaction.added", "success")))

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	pub := newKafkaPublisher(w, zerolog.Nop(), metrics)

	event, err := domain.NewEvent(domain.EventTypeImageGenerated, domain.SourcePapers, "p1", domain.ImageGeneratedPayload{ImageURL: "u"})
	require.NoError(t, err)

	err = pub.Publish(context.Background(), event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "paper.image_generated")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("paper.image_generated", "failed")))
}

func TestKafkaPublisher_RejectsInvalidEvents(t *testing.T) {
	pub := newKafkaPublisher(&fakeWriter{}, zerolog.Nop(), nil)

	assert.ErrorIs(t, pub.Publish(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, pub.Publish(context.Background(), &domain.Event{}), domain.ErrInvalidInput)
}

func TestNopPublisher(t *testing.T) {
	var pub Publisher = NopPublisher{}
	assert.NoError(t, pub.Publish(context.Background(), &domain.Event{EventType: "x"}))
	assert.NoError(t, pub.Close())
}
