package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-ldht/internal/action"
)

func TestLayout(t *testing.T) {
	l := NewLayout("c1", 7)

	assert.Equal(t, "/nodes/c1/", l.CollectionContainer())
	assert.Equal(t, "/nodes/c1/7/", l.NodeContainer())
	assert.Equal(t, "/nodes/c1/7/node", l.NodeDocument())
	assert.Equal(t, "/nodes/c1/7/actions/", l.ActionsContainer())
	assert.Equal(t, "/nodes/c1/7/actions/StoreValue/", l.Inbox(action.KindStoreValue))
	assert.Equal(t, "/nodes/c1/7/data/", l.DataContainer())
	assert.Equal(t, "/nodes/c1/7/data/42", ValueDocument(l.DataContainer(), 42))
	assert.Len(t, l.Inboxes(), len(action.AllKinds))
}
