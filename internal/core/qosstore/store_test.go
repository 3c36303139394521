package qosstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

func TestStore_RegisterGet(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	require.NoError(t, s.Register(1, types.KindDataWriter, qos.DefaultWriter()))
	got, err := s.Get(1)
	require.NoError(t, err)
	assert.True(t, got.Equal(qos.DefaultWriter()))

	assert.ErrorIs(t, s.Register(1, types.KindDataWriter, qos.DefaultWriter()), types.ErrPreconditionNotMet)
	assert.ErrorIs(t, s.Register(types.HandleNil, types.KindDataWriter, qos.Set{}), types.ErrBadParameter)

	_, err = s.Get(2)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStore_RegisterInvalid(t *testing.T) {
	s, _ := New(nil)

	bad := qos.NewSet(qos.History{Kind: qos.HistoryKeepLast, Depth: 0})
	assert.ErrorIs(t, s.Register(1, types.KindDataReader, bad), types.ErrInvalidQos)
	assert.Equal(t, 0, s.Len())
}

func TestStore_SetMutableAfterEnable(t *testing.T) {
	bus := eventbus.NewBus()
	sub, err := bus.Subscribe(new(types.EvtQosChanged))
	require.NoError(t, err)
	defer sub.Close()

	s, err := New(bus)
	require.NoError(t, err)
	require.NoError(t, s.Register(1, types.KindDataReader, qos.DefaultReader()))
	require.NoError(t, s.Enable(1))

	updated := qos.DefaultReader().With(qos.Deadline{Period: time.Second})
	old, err := s.Set(1, updated)
	require.NoError(t, err)
	assert.True(t, old.Equal(qos.DefaultReader()))

	select {
	case ev := <-sub.Out():
		evt := ev.(types.EvtQosChanged)
		assert.Equal(t, types.InstanceHandle(1), evt.Handle)
		assert.Equal(t, []qos.PolicyKind{qos.PolicyDeadline}, evt.Changed)
	case <-time.After(time.Second):
		t.Fatal("no qos changed event")
	}
}

func TestStore_SetImmutableAfterEnable(t *testing.T) {
	s, _ := New(nil)
	require.NoError(t, s.Register(1, types.KindDataWriter, qos.DefaultWriter()))

	// 启用前可以修改任意策略
	_, err := s.Set(1, qos.DefaultWriter().With(qos.Durability{Kind: qos.DurabilityTransientLocal}))
	require.NoError(t, err)

	require.NoError(t, s.Enable(1))
	_, err = s.Set(1, qos.DefaultWriter())
	require.ErrorIs(t, err, types.ErrImmutableQos)

	var pe *qos.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []qos.PolicyKind{qos.PolicyDurability}, pe.Policies)

	got, _ := s.Get(1)
	assert.Equal(t, qos.DurabilityTransientLocal, got.Durability().Kind)
}

func TestStore_Defaults(t *testing.T) {
	s, _ := New(nil)

	assert.True(t, s.Default(7, types.KindDataWriter).Equal(qos.DefaultWriter()))

	custom := qos.KeepAll()
	require.NoError(t, s.SetDefault(7, types.KindDataWriter, custom))
	assert.True(t, s.Default(7, types.KindDataWriter).Equal(custom))
	assert.True(t, s.Default(8, types.KindDataWriter).Equal(qos.DefaultWriter()))

	require.NoError(t, s.Register(7, types.KindParticipant, qos.DefaultParticipant()))
	s.Remove(7)
	assert.True(t, s.Default(7, types.KindDataWriter).Equal(qos.DefaultWriter()))

	assert.ErrorIs(t, s.SetDefault(7, types.KindUnknown, custom), types.ErrBadParameter)
}
