package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

func TestModule_DisabledByDefault(t *testing.T) {
	var eng engine.InternalEngine

	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&eng),
	)
	app.RequireStart().RequireStop()

	assert.Nil(t, eng)
}

func TestModule_PersistenceEnabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storage.EnablePersistence = true
	cfg.Storage.DataDir = t.TempDir()

	var eng engine.InternalEngine
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&eng),
	)
	app.RequireStart()

	require.NotNil(t, eng)
	require.NoError(t, eng.Put([]byte("k"), []byte("v")))

	app.RequireStop()
	assert.ErrorIs(t, eng.Put([]byte("k"), []byte("v")), engine.ErrClosed)
}
