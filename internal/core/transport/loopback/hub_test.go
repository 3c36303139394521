package loopback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/pkg/types"
)

type recordingSink struct {
	mu        sync.Mutex
	announced []types.EntityRecord
	withdrawn []types.GUID
	samples   []types.DataMessage
}

func (s *recordingSink) OnAnnounce(rec types.EntityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announced = append(s.announced, rec)
}

func (s *recordingSink) OnWithdraw(g types.GUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withdrawn = append(s.withdrawn, g)
}

func (s *recordingSink) OnSample(_ types.GUID, msg types.DataMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, msg)
}

func participantRecord(prefix types.GUIDPrefix) types.EntityRecord {
	g := types.GUID{Prefix: prefix, Entity: types.EntityIDParticipant}
	return types.EntityRecord{GUID: g, Participant: g, Kind: types.BuiltinParticipant}
}

func writerRecord(prefix types.GUIDPrefix) types.EntityRecord {
	return types.EntityRecord{
		GUID:        types.GUID{Prefix: prefix, Entity: types.NewEntityID(1, types.KindDataWriter)},
		Participant: types.GUID{Prefix: prefix, Entity: types.EntityIDParticipant},
		Kind:        types.BuiltinPublication,
		TopicName:   "chat",
		TypeName:    "Msg",
	}
}

func TestHub_AnnounceReachesOtherParticipants(t *testing.T) {
	hub := New()
	defer hub.Close()

	a, b, c := types.NewGUIDPrefix(), types.NewGUIDPrefix(), types.NewGUIDPrefix()
	sa, sb, sc := &recordingSink{}, &recordingSink{}, &recordingSink{}

	ta, err := hub.Attach(0, a, sa)
	require.NoError(t, err)
	_, err = hub.Attach(0, b, sb)
	require.NoError(t, err)
	_, err = hub.Attach(1, c, sc)
	require.NoError(t, err)

	require.NoError(t, ta.Announce(writerRecord(a)))

	assert.Empty(t, sa.announced, "sender does not see its own record")
	require.Len(t, sb.announced, 1)
	assert.Equal(t, types.OriginRemote, sb.announced[0].Origin)
	assert.Equal(t, uint32(0), sb.announced[0].DomainID)
	assert.Empty(t, sc.announced, "other domain")
}

func TestHub_LateJoinReplaysRecords(t *testing.T) {
	hub := New()
	defer hub.Close()

	a := types.NewGUIDPrefix()
	ta, err := hub.Attach(7, a, &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, ta.Announce(writerRecord(a)))
	require.NoError(t, ta.Announce(participantRecord(a)))

	late := &recordingSink{}
	_, err = hub.Attach(7, types.NewGUIDPrefix(), late)
	require.NoError(t, err)

	require.Len(t, late.announced, 2)
	assert.Equal(t, types.BuiltinParticipant, late.announced[0].Kind, "participant first")
	assert.Equal(t, types.BuiltinPublication, late.announced[1].Kind)
}

func TestHub_WithdrawAndClose(t *testing.T) {
	hub := New()
	defer hub.Close()

	a, b := types.NewGUIDPrefix(), types.NewGUIDPrefix()
	ta, _ := hub.Attach(0, a, &recordingSink{})
	sb := &recordingSink{}
	_, err := hub.Attach(0, b, sb)
	require.NoError(t, err)

	w := writerRecord(a)
	require.NoError(t, ta.Announce(w))
	require.NoError(t, ta.Withdraw(w.GUID))
	assert.Equal(t, []types.GUID{w.GUID}, sb.withdrawn)

	require.NoError(t, ta.Close())
	require.Len(t, sb.withdrawn, 2)
	assert.Equal(t, types.EntityIDParticipant, sb.withdrawn[1].Entity)

	assert.ErrorIs(t, ta.Announce(w), ErrClosed)
	assert.NoError(t, ta.Close())

	late := &recordingSink{}
	_, err = hub.Attach(0, types.NewGUIDPrefix(), late)
	require.NoError(t, err)
	assert.Empty(t, late.announced, "withdrawn records are not replayed")
}

func TestHub_Deliver(t *testing.T) {
	hub := New()
	defer hub.Close()

	a, b := types.NewGUIDPrefix(), types.NewGUIDPrefix()
	ta, _ := hub.Attach(0, a, &recordingSink{})
	sb := &recordingSink{}
	_, _ = hub.Attach(0, b, sb)

	reader := types.GUID{Prefix: b, Entity: types.NewEntityID(1, types.KindDataReader)}
	require.NoError(t, ta.Deliver(reader, types.DataMessage{Key: "k", Sequence: 1}))
	require.Len(t, sb.samples, 1)
	assert.Equal(t, "k", sb.samples[0].Key)

	unknown := types.GUID{Prefix: types.NewGUIDPrefix(), Entity: reader.Entity}
	assert.ErrorIs(t, ta.Deliver(unknown, types.DataMessage{}), types.ErrNotFound)

	st := hub.Stats()
	assert.Equal(t, 2, st.Sessions)
	assert.Equal(t, uint64(1), st.Delivered)
}

func TestHub_AttachErrors(t *testing.T) {
	hub := New()
	p := types.NewGUIDPrefix()

	_, err := hub.Attach(0, types.GUIDPrefix{}, &recordingSink{})
	assert.ErrorIs(t, err, types.ErrBadParameter)

	_, err = hub.Attach(0, p, &recordingSink{})
	require.NoError(t, err)
	_, err = hub.Attach(0, p, &recordingSink{})
	assert.ErrorIs(t, err, types.ErrPreconditionNotMet)

	_, err = hub.Attach(1, p, &recordingSink{})
	assert.NoError(t, err, "same prefix in another domain")

	require.NoError(t, hub.Close())
	_, err = hub.Attach(0, types.NewGUIDPrefix(), &recordingSink{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, hub.Stats().Sessions)
}

func TestHub_AnnounceForeignRecord(t *testing.T) {
	hub := New()
	defer hub.Close()
	s, _ := hub.Attach(0, types.NewGUIDPrefix(), &recordingSink{})
	assert.ErrorIs(t, s.Announce(writerRecord(types.NewGUIDPrefix())), types.ErrBadParameter)
}
