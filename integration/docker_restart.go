//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

func dockerCompose(t *testing.T, ctx context.Context, args ...string) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", append([]string{"compose"}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose %v failed: %v\n%s", args, err, string(out))
	}
}

func stopDB(t *testing.T, ctx context.Context)  { dockerCompose(t, ctx, "stop", "db") }
func startDB(t *testing.T, ctx context.Context) { dockerCompose(t, ctx, "start", "db") }
