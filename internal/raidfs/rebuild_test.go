package raidfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunRebuildWorkerNoopWhenNothingUntrusted(t *testing.T) {
	fs := newTestFileSystem(t)
	fs.RunRebuildWorker(context.Background())
	require.False(t, fs.vol.AnyNeedsRebuild())
}

func TestRunRebuildWorkerClearsUntrustedDisk(t *testing.T) {
	fs := newTestFileSystem(t)
	require.NoError(t, fs.vol.FailDisk(0))
	require.NoError(t, fs.vol.ReplaceDisk(0))
	require.True(t, fs.vol.AnyNeedsRebuild())

	fs.RunRebuildWorker(context.Background())
	require.False(t, fs.vol.AnyNeedsRebuild())
}

func TestRunRebuildWorkerCancelsPromptly(t *testing.T) {
	fs := newTestFileSystem(t)
	require.NoError(t, fs.vol.FailDisk(0))
	require.NoError(t, fs.vol.ReplaceDisk(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs.RunRebuildWorker(ctx)
	// Canceled before any stripe ran, so the untrusted flag is never cleared.
	require.True(t, fs.vol.AnyNeedsRebuild())
}
