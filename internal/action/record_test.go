package action

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht/internal/dht"
)

func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPotential, StatusActive, true},
		{StatusPotential, StatusFailed, true},
		{StatusPotential, StatusCompleted, false},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusFailed, true},
		{StatusActive, StatusPotential, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestAction_TransitionExactlyOnce(t *testing.T) {
	now := time.Now()
	a := &Action{Name: "a", Kind: KindPing, Status: StatusPotential}

	require.NoError(t, a.Transition(StatusActive, "", now))
	require.NoError(t, a.Transition(StatusFailed, "boom", now))
	assert.Equal(t, "boom", a.Error)

	err := a.Transition(StatusCompleted, "", now)
	assert.ErrorIs(t, err, ErrInvalidTransition, "终态之后不能再写")
	assert.Equal(t, StatusFailed, a.Status)
}

func TestAction_Validate(t *testing.T) {
	assert.NoError(t, (&Action{Name: "p", Kind: KindPing}).Validate())
	assert.ErrorIs(t, (&Action{Kind: KindPing}).Validate(), ErrInvalidAction)
	assert.ErrorIs(t, (&Action{Name: "a", Kind: KindAddNode}).Validate(), ErrInvalidAction)
	assert.NoError(t, (&Action{Name: "a", Kind: KindAddNode, Object: &dht.PeerRef{ID: 1}}).Validate())
	assert.ErrorIs(t, (&Action{Name: "s", Kind: KindStoreValue}).Validate(), ErrInvalidAction)
	assert.ErrorIs(t, (&Action{Name: "x", Kind: "Bogus"}).Validate(), ErrInvalidAction)
}

func TestAction_Expired(t *testing.T) {
	created := time.Unix(1000, 0)
	a := &Action{CreatedAt: created, Timeout: 30 * time.Second}

	assert.False(t, a.Expired(created.Add(10*time.Second)))
	assert.True(t, a.Expired(created.Add(31*time.Second)))

	a.Timeout = 0
	assert.False(t, a.Expired(created.Add(time.Hour)))
}

func TestNodeRecord_Inbox(t *testing.T) {
	var nilRecord *NodeRecord
	_, ok := nilRecord.Inbox(KindPing)
	assert.False(t, ok)

	r := &NodeRecord{Actions: map[Kind]string{KindPing: "/n/actions/Ping/", KindAddNode: ""}}
	inbox, ok := r.Inbox(KindPing)
	assert.True(t, ok)
	assert.Equal(t, "/n/actions/Ping/", inbox)

	_, ok = r.Inbox(KindAddNode)
	assert.False(t, ok)
	_, ok = r.Inbox(KindStoreValue)
	assert.False(t, ok)
}
