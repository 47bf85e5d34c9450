//go:build integration

// Docker-based build verification, ported from tests/common/containers.go's
// testcontainers.GenericContainer pattern (teacher): rather than
// requiring a `go` toolchain on the test host, a generated package is
// mounted into a golang:1.24 container and built there.
package buildcheck_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestBuildGeneratedPackageInContainer(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/generated\n\ngo 1.24\n")
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n\nfunc main() {}\n")

	req := testcontainers.ContainerRequest{
		Image:      "golang:1.24",
		Cmd:        []string{"tail", "-f", "/dev/null"},
		WaitingFor: wait.ForExec([]string{"go", "version"}).WithStartupTimeout(60 * time.Second),
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      dir,
				ContainerFilePath: "/work",
			},
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	exitCode, _, err := container.Exec(ctx, []string{"go", "build", "-o", "/tmp/out", "./..."}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, exitCode, "generated package should build inside the container")
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
