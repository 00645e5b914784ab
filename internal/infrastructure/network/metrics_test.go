package network

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NSSaDS/ftp/internal/domain"
	"NSSaDS/ftp/pkg/config"
)

func TestTransferMetrics(t *testing.T) {
	addr, root := startServer(t, config.FramingLength)
	require.NoError(t, os.WriteFile(filepath.Join(root, "m.bin"), testData(2500), 0644))

	completed := transfersTotal.WithLabelValues(domain.Download.String(), "completed")
	beforeTransfers := testutil.ToFloat64(completed)
	beforeBytes := testutil.ToFloat64(bytesSent)
	beforeUnknown := testutil.ToFloat64(commandsTotal.WithLabelValues("unknown"))

	client := newClient(t, addr, config.FramingLength)
	ctx := context.Background()

	_, err := client.SendCommand(ctx, "bogus")
	require.NoError(t, err)

	require.NoError(t, client.Get(ctx, "m.bin", filepath.Join(t.TempDir(), "m.bin")))
	require.Equal(t, domain.EventCompleted, nextEvent(t, client).Kind)
	client.Wait()

	assert.Equal(t, beforeTransfers+1, testutil.ToFloat64(completed))
	assert.Equal(t, beforeBytes+2500, testutil.ToFloat64(bytesSent))
	assert.Equal(t, beforeUnknown+1, testutil.ToFloat64(commandsTotal.WithLabelValues("unknown")))
}

func TestVerbLabel(t *testing.T) {
	assert.Equal(t, "ls", verbLabel(domain.VerbList))
	assert.Equal(t, "restart", verbLabel(domain.VerbRestart))
	assert.Equal(t, "unknown", verbLabel(domain.Verb("rm")))
}
