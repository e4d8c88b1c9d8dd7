package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func getFreePort() (string, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return "", err
	}
	defer func() { _ = l.Close() }()
	return fmt.Sprintf("%d", l.Addr().(*net.TCPAddr).Port), nil
}

func TestAMQPPublisherIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	hostPort, err := getFreePort()
	require.NoError(t, err)
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:4-management",
			ExposedPorts: []string{"5672/tcp"},
			HostConfigModifier: func(cfg *container.HostConfig) {
				cfg.PortBindings = nat.PortMap{"5672/tcp": []nat.PortBinding{{HostPort: hostPort}}}
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5672/tcp").WithStartupTimeout(30*time.Second),
				wait.ForExec([]string{"rabbitmq-diagnostics", "status"}).WithExitCodeMatcher(func(exitCode int) bool {
					return exitCode == 0
				}).WithStartupTimeout(20*time.Second),
			),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5672")
	require.NoError(t, err)

	cfg := AMQPConfig{Host: host, Port: uint(port.Int()), User: "guest", Password: "guest"}
	pub, err := NewAMQPPublisher(cfg)
	require.NoError(t, err)
	defer pub.Close()

	conn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s:%d", host, port.Int()))
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "schema.#", DefaultExchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	n := NewNotifier(pub, nil)
	n.TableDropped(ctx, docsKey)

	select {
	case d := <-deliveries:
		assert.Equal(t, "schema.table_dropped", d.RoutingKey)
		var ev Event
		require.NoError(t, json.Unmarshal(d.Body, &ev))
		assert.Equal(t, TableDropped, ev.Type)
		assert.Equal(t, docsKey, ev.Table)
	case <-time.After(10 * time.Second):
		t.Fatal("no event delivered")
	}
}
