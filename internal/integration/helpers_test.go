//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/kafka"
	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/ndvi"
	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/openweather"
	"github.com/couchcryptid/smart-irrigation-service/internal/config"
	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

const (
	kafkaImage = "confluentinc/confluent-local:7.5.0"
	requestsIn = "test-requests"
	adviceOut  = "test-recommendations"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("irrigation-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// newOfflineAdvisor serves the demo forecast from a fixed autumn date so the
// recommendations are reproducible.
func newOfflineAdvisor() *pipeline.Advisor {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.October, 26, 6, 0, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()
	logger := discardLogger()
	return pipeline.NewAdvisor(
		domain.DefaultEngine(),
		farm.NewDemoRegistry(),
		nil,
		ndvi.NewFallbackProvider(nil, 0.6, metrics, logger),
		3,
		metrics,
		logger,
		pipeline.WithClock(clock),
		pipeline.WithWeatherFallback(openweather.NewDemoProvider(clock)),
	)
}

// broker is a running Kafka with both topics created, plus the service-side
// reader and writer bound to them.
type broker struct {
	t      *testing.T
	addr   string
	cfg    *config.Config
	reader *kafka.Reader
	writer *kafka.Writer
}

func newBroker(ctx context.Context, t *testing.T) *broker {
	t.Helper()
	addr := startKafka(ctx, t)
	createTopic(t, addr, requestsIn)
	createTopic(t, addr, adviceOut)

	cfg := &config.Config{
		KafkaBrokers:       []string{addr},
		KafkaSourceTopic:   requestsIn,
		KafkaSinkTopic:     adviceOut,
		KafkaGroupID:       fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
	b := &broker{
		t:      t,
		addr:   addr,
		cfg:    cfg,
		reader: kafka.NewReader(cfg, discardLogger()),
		writer: kafka.NewWriter(cfg, discardLogger()),
	}
	t.Cleanup(func() {
		_ = b.reader.Close()
		_ = b.writer.Close()
	})
	return b
}

// publish writes keyed request bodies to the request topic.
func (b *broker) publish(ctx context.Context, kv ...string) {
	b.t.Helper()
	require.Zero(b.t, len(kv)%2, "publish takes key/value pairs")

	producer := &kafkago.Writer{Addr: kafkago.TCP(b.addr), Topic: requestsIn}
	defer producer.Close()

	msgs := make([]kafkago.Message, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		msgs = append(msgs, kafkago.Message{Key: []byte(kv[i]), Value: []byte(kv[i+1])})
	}
	require.NoError(b.t, producer.WriteMessages(ctx, msgs...))
}

// runPipeline starts the batch pipeline in the background. The returned
// function stops it and reports its exit error.
func (b *broker) runPipeline(ctx context.Context) (*pipeline.Pipeline, func() error) {
	p := pipeline.New(b.reader, pipeline.NewTransformer(newOfflineAdvisor()), b.writer,
		discardLogger(), observability.NewMetricsForTesting(), 50)

	runCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx) }()

	return p, func() error {
		cancel()
		return <-errCh
	}
}

// published is one message read back from the recommendation topic.
type published struct {
	Key     string
	Headers map[string]string
	Advice  pipeline.Advice
}

// sink consumes the recommendation topic from the beginning.
type sink struct {
	t      *testing.T
	reader *kafkago.Reader
}

func (b *broker) sink() *sink {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{b.addr},
		Topic:       adviceOut,
		GroupID:     fmt.Sprintf("sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	b.t.Cleanup(func() { _ = r.Close() })
	return &sink{t: b.t, reader: r}
}

func (s *sink) next(ctx context.Context, wait time.Duration) (published, error) {
	readCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	msg, err := s.reader.ReadMessage(readCtx)
	if err != nil {
		return published{}, err
	}
	out := published{Key: string(msg.Key), Headers: make(map[string]string, len(msg.Headers))}
	for _, h := range msg.Headers {
		out.Headers[h.Key] = string(h.Value)
	}
	if err := json.Unmarshal(msg.Value, &out.Advice); err != nil {
		return published{}, fmt.Errorf("decode recommendation %q: %w", out.Key, err)
	}
	return out, nil
}

func (s *sink) mustNext(ctx context.Context) published {
	s.t.Helper()
	p, err := s.next(ctx, 30*time.Second)
	require.NoError(s.t, err, "read from recommendation topic")
	return p
}
