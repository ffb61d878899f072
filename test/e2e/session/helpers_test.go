//go:build e2e

package session_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/credstore"
	"github.com/progress/jsdo/pkg/credstore/drivers/sqlite"
	"github.com/progress/jsdo/pkg/slogx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testImageName = "jsdo-backendsim-test:latest"

	servicePath   = "/App"
	testUsername  = "alice"
	testPassword  = "Alice123!"
	testToken     = "static-bearer-token"
	signingSecret = "e2e-signing-secret-0123456789abcdef"
)

// TestMain builds the simulator image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building backend simulator Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up backend simulator Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/backendsim/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run()
}

// setupSimContainer starts the simulator and returns its service URI. env
// overrides the defaults.
func setupSimContainer(t *testing.T, env map[string]string) string {
	t.Helper()
	ctx := context.Background()

	vars := map[string]string{
		"ENV":                  "test",
		"LOG_LEVEL":            "info",
		"LOG_FORMAT":           "json",
		"SIM_SIGNING_SECRET":   signingSecret,
		"SIM_USERS":            testUsername + ":" + testPassword,
		"SIM_BEARER_TOKENS":    testToken + ":" + testUsername,
		"SIM_LOGIN_RPM":        "1000",
		"SIM_ACCESS_TOKEN_TTL": "2s",
	}
	for k, v := range env {
		vars[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          vars,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s%s", host, mappedPort.Port(), servicePath)
}

// openStore opens an encrypted sqlite credential store in a temp dir.
func openStore(t *testing.T, dir string) credstore.Store {
	t.Helper()

	db, err := sqlite.NewStore(filepath.Join(dir, "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplyMigrations())

	store, err := credstore.NewEncrypted(db, []byte("e2e-store-key"))
	require.NoError(t, err)
	return store
}

func newProvider(t *testing.T, uri, model string, store credstore.Store, opts ...auth.Option) *auth.Provider {
	t.Helper()

	opts = append([]auth.Option{auth.WithStore(store), auth.WithLogger(slogx.Discard())}, opts...)
	p, err := auth.NewProvider(context.Background(), uri, model, opts...)
	require.NoError(t, err)
	return p
}
