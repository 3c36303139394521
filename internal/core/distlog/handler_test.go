package distlog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	msgs []LogMessage
}

func (c *collector) Publish(_ context.Context, msg LogMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestHandler_FiltersByLevel(t *testing.T) {
	c := &collector{}
	log := slog.New(NewHandler(c, WithLevel(slog.LevelWarn), WithHost("node-1")))

	log.Info("ignored")
	log.Warn("disk almost full", "free", 12)
	log.Error("disk full")

	require.Len(t, c.msgs, 2)
	first := c.msgs[0]
	assert.Equal(t, slog.LevelWarn, first.Level)
	assert.Equal(t, "disk almost full", first.Message)
	assert.Equal(t, DefaultCategory, first.Category)
	assert.Equal(t, "node-1", first.Host)
	assert.Equal(t, map[string]string{"free": "12"}, first.Attrs)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, DefaultCategory, first.Key())
}

func TestHandler_Category(t *testing.T) {
	c := &collector{}
	log := slog.New(NewHandler(c, WithCategory("app")))

	log.Info("a")
	log.With(CategoryKey, "net").Info("b")
	log.Info("c", CategoryKey, "storage", "n", 1)

	require.Len(t, c.msgs, 3)
	assert.Equal(t, []string{"app", "net", "storage"}, []string{c.msgs[0].Category, c.msgs[1].Category, c.msgs[2].Category})
	assert.Equal(t, map[string]string{"n": "1"}, c.msgs[2].Attrs)
	assert.Empty(t, c.msgs[1].Attrs)
}

func TestHandler_GroupsFlatten(t *testing.T) {
	c := &collector{}
	log := slog.New(NewHandler(c)).With("node", "a").WithGroup("req").With("id", 7)

	log.Info("served", slog.Group("resp", slog.Int("status", 200)), CategoryKey, "nested")

	require.Len(t, c.msgs, 1)
	assert.Equal(t, map[string]string{
		"node":            "a",
		"req.id":          "7",
		"req.resp.status": "200",
		"req.category":    "nested",
	}, c.msgs[0].Attrs)
	assert.Equal(t, DefaultCategory, c.msgs[0].Category)
}

func TestHandler_DerivedHandlersDoNotShareAttrs(t *testing.T) {
	c := &collector{}
	base := slog.New(NewHandler(c))
	a := base.With("who", "a")
	b := base.With("who", "b")

	a.Info("x")
	b.Info("y")
	base.Info("z")

	require.Len(t, c.msgs, 3)
	assert.Equal(t, "a", c.msgs[0].Attrs["who"])
	assert.Equal(t, "b", c.msgs[1].Attrs["who"])
	assert.Nil(t, c.msgs[2].Attrs)
}

func TestHandler_DynamicLevelAndErrors(t *testing.T) {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelError)
	boom := errors.New("boom")
	h := NewHandler(PublishFunc(func(context.Context, LogMessage) error { return boom }), WithLevel(lv))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	lv.Set(slog.LevelDebug)
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))

	r := slog.NewRecord(testTime, slog.LevelInfo, "m", 0)
	assert.ErrorIs(t, h.Handle(context.Background(), r), boom)
}

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
