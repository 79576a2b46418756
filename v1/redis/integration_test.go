package redis

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
)

type cachedPage struct {
	Collection string    `json:"collection"`
	IDs        []string  `json:"ids"`
	Stamp      time.Time `json:"stamp"`
}

func TestRedisCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	host, port, containerInstance := initializeRedis(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	var client *RedisClient
	app := fx.New(
		FXModule,
		fx.Provide(func() Config { return Config{Host: host, Port: port, ScanCount: 2} }),
		fx.Populate(&client),
	)
	require.NoError(t, app.Start(ctx))
	defer app.Stop(ctx)

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "plain", "value", 0))
		value, err := client.Get(ctx, "plain")
		require.NoError(t, err)
		assert.Equal(t, "value", value)

		_, err = client.Get(ctx, "absent")
		assert.True(t, IsNilError(err))
	})

	t.Run("JSON round trip", func(t *testing.T) {
		in := cachedPage{Collection: "docs", IDs: []string{"a", "b"}, Stamp: time.Unix(1700000000, 0).UTC()}
		require.NoError(t, client.SetJSON(ctx, "vi:conn:docs", in, 0))

		var out cachedPage
		require.NoError(t, client.GetJSON(ctx, "vi:conn:docs", &out))
		assert.Equal(t, in, out)
	})

	t.Run("ScanKeys and DeleteMatching", func(t *testing.T) {
		for _, k := range []string{"vi:one:a", "vi:one:b", "vi:one:c", "vi:two:a"} {
			require.NoError(t, client.Set(ctx, k, "x", 0))
		}

		keys, err := client.ScanKeys(ctx, "vi:one:*")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"vi:one:a", "vi:one:b", "vi:one:c"}, keys)

		n, err := client.DeleteMatching(ctx, "vi:one:*")
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		keys, err = client.ScanKeys(ctx, "vi:*:a")
		require.NoError(t, err)
		assert.Equal(t, []string{"vi:two:a"}, keys)
	})
}

func initializeRedis(ctx context.Context, t *testing.T) (string, int, testcontainers.Container) {
	hostPort, err := getFreePort()
	require.NoError(t, err)

	containerInstance, err := createRedisContainer(ctx, hostPort)
	require.NoError(t, err)

	port, err := containerInstance.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := containerInstance.Host(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port.Port()), 2*time.Second)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 30*time.Second, 500*time.Millisecond, "Redis port not ready")

	return host, port.Int(), containerInstance
}

func createRedisContainer(ctx context.Context, hostPort string) (testcontainers.Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = nat.PortMap{
				"6379/tcp": []nat.PortBinding{{HostPort: hostPort}},
			}
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6379/tcp").WithStartupTimeout(30*time.Second),
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		containerInstance, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err == nil {
			return containerInstance, nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "docker.sock") {
			break
		}
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}

	return nil, fmt.Errorf("failed to start Redis container after 3 attempts: %w", lastErr)
}

func getFreePort() (string, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port), nil
}
