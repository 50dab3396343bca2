package testtool

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"exotoura_chat/pkg/token"

	"github.com/docker/go-connections/nat"
	"github.com/gofiber/fiber/v2"
	"github.com/testcontainers/testcontainers-go"
)

// Secret signing key shared by test servers and SignedToken
var Secret = []byte("chat-test-secret")

// SignedToken HS256 token for userID signed with Secret
func SignedToken(t testing.TB, userID string) string {
	t.Helper()
	s, err := token.GenerateJWT(Secret, userID, "member", "chat-test", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// StartFiber serves app on a random local port until the test ends; returns host:port
func StartFiber(t testing.TB, app *fiber.App) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() { _ = app.Listener(listener) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return listener.Addr().String()
}

// SetupContainer start a container and return it with its host and first mapped port
func SetupContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", "", err
	}

	natPort, err := nat.NewPort("tcp", strings.TrimSuffix(req.ExposedPorts[0], "/tcp"))
	if err != nil {
		return nil, "", "", err
	}

	port, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return nil, "", "", err
	}

	return container, host, port.Port(), nil
}
