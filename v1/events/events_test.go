package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

var docsKey = schema.TableKey{DB: "default", Table: "docs"}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	closed bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.sent = append(c.sent, published{exchange, key, msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type warnLogger struct{ msgs []string }

func (l *warnLogger) Warn(msg string, _ error, _ ...map[string]interface{}) {
	l.msgs = append(l.msgs, msg)
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{topic: "awadb.schema", writer: w}

	field := schema.FieldDecl{Name: "tags", Type: fieldtype.MultiString, Indexed: true}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), Event{ID: "1", Type: FieldAdded, Table: docsKey, Field: &field, Time: ts}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("default/docs"), w.msgs[0].Key)
	assert.Equal(t, "type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, []byte("field_added"), w.msgs[0].Headers[0].Value)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "field_added", got["type"])
	assert.Equal(t, map[string]any{"db": "default", "table": "docs"}, got["table"])
	assert.Equal(t, "MULTI_STRING", got["field"].(map[string]any)["data_type"])
	assert.NotContains(t, got, "declaration")

	w.err = errors.New("broker down")
	assert.ErrorContains(t, p.Publish(context.Background(), Event{Type: TableDropped, Table: docsKey}), "broker down")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestAMQPPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{cfg: AMQPConfig{}.withDefaults(), ch: ch}

	require.NoError(t, p.Publish(context.Background(), Event{ID: "abc", Type: TableCreated, Table: docsKey}))
	require.Len(t, ch.sent, 1)
	assert.Equal(t, DefaultExchange, ch.sent[0].exchange)
	assert.Equal(t, "schema.table_created", ch.sent[0].key)
	assert.Equal(t, "abc", ch.sent[0].msg.MessageId)
	assert.Equal(t, "default/docs", ch.sent[0].msg.Headers["table"])
	assert.Equal(t, "application/json", ch.sent[0].msg.ContentType)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNotifierStampsAndSwallowsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	log := &warnLogger{}
	n := NewNotifier(pub, log)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n.now = func() time.Time { return ts }

	decl := schema.TableDeclaration{Key: docsKey, PrimaryKey: "_id"}
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev Event) error {
		assert.Equal(t, TableCreated, ev.Type)
		assert.Equal(t, ts, ev.Time)
		assert.NotEmpty(t, ev.ID)
		require.NotNil(t, ev.Declaration)
		assert.Equal(t, "_id", ev.Declaration.PrimaryKey)
		return nil
	})
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	n.TableCreated(context.Background(), decl)
	n.TableDropped(context.Background(), docsKey)
	assert.Equal(t, []string{"failed to publish schema event"}, log.msgs)

	pub.EXPECT().Close().Return(nil)
	require.NoError(t, n.Close())
}

func TestNewSelectsBackend(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)

	_, err = New(Config{Backend: "carrier-pigeon"})
	assert.Error(t, err)

	_, err = New(Config{Backend: BackendKafka})
	assert.ErrorContains(t, err, "no brokers")

	p, err = New(Config{Backend: BackendKafka, Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}, CompressionCodec: "zstd"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultKafkaTopic, p.(*KafkaPublisher).topic)
	require.NoError(t, p.Close())

	_, err = createSASLMechanism(SASLConfig{Mechanism: "GSSAPI"})
	assert.Error(t, err)
	m, err := createSASLMechanism(SASLConfig{Mechanism: "PLAIN", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "PLAIN", m.Name())
}
