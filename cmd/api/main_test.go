package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ariefcatur/go-venue-pos/internal/config"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	cfg := config.Config{
		StoreDriver: "sqlite",
		SQLitePath:  filepath.Join(t.TempDir(), "missing", "pos.db"),
		EventBus:    "none",
		HistorySink: "store",
		ServiceName: "pos-api",
	}

	err := run(cfg, logger.Discard())
	assert.ErrorContains(t, err, "store:")
}
