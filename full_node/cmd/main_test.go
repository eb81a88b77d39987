package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/Luismorlan/chain_in_go/config"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig(t *testing.T, difficulty int) config.AppConfig {
	c := config.DefaultAppConfig()
	c.DIFFICULTY = difficulty
	c.SNAPSHOT_PATH = filepath.Join(t.TempDir(), "blockchain.json")
	return c
}

func TestStartLedger(t *testing.T) {
	l, ctx, cancel, err := StartLedger(createTestConfig(t, 1), make(chan struct{}))
	require.Nil(t, err)
	defer cancel()
	assert.Len(t, l.Chain, 1)
	assert.True(t, utils.IsValidLedger(l))
	// Mining stays enabled once startup is done.
	assert.Nil(t, ctx.Err())
}

func TestStartLedgerQuitDuringGenesis(t *testing.T) {
	quit := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		// No digest has 64 leading zeros, so genesis never seals on its own.
		_, _, _, err := StartLedger(createTestConfig(t, utils.MAX_DIFFICULTY), quit)
		done <- err
	}()
	close(quit)

	select {
	case err := <-done:
		assert.Equal(t, utils.ErrMiningInterrupted, errors.Cause(err))
	case <-time.After(5 * time.Second):
		t.Fatal("genesis mining did not stop on quit")
	}
}

func TestWatchSignals(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	quit := make(chan struct{})
	go WatchSignals(sigs, func() { close(quit) })

	sigs <- syscall.SIGTERM
	select {
	case <-quit:
	case <-time.After(5 * time.Second):
		t.Fatal("signal did not request quit")
	}
}
