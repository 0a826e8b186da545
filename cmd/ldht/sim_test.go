package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht"
	"github.com/dep2p/go-ldht/config"
)

func TestRunSim_Memory(t *testing.T) {
	var out bytes.Buffer
	opts := &simOptions{
		nodes:       5,
		mode:        config.ModeMemory,
		codec:       config.CodecJSON,
		collection:  "sim",
		key:         "greeting",
		value:       "hello",
		failClosest: true,
	}
	require.NoError(t, runSim(context.Background(), &out, config.NewConfig(), opts))

	text := out.String()
	assert.Contains(t, text, "NODE")
	assert.Contains(t, text, "BUCKETS")
	assert.Contains(t, text, "NEAREST")
	assert.Contains(t, text, "[hello]")
	assert.Contains(t, text, "关闭离 key 最近的节点")
}

func TestRunSim_Document(t *testing.T) {
	var out bytes.Buffer
	opts := &simOptions{
		nodes:      3,
		mode:       config.ModeDocument,
		codec:      config.CodecProto,
		dataDir:    t.TempDir(),
		collection: "sim",
		key:        "k",
		value:      "v",
	}
	require.NoError(t, runSim(context.Background(), &out, config.NewConfig(), opts))
	assert.Contains(t, out.String(), "/nodes/sim/")
	assert.Contains(t, out.String(), "[v]")
}

func TestRunSim_InvalidNodes(t *testing.T) {
	err := runSim(context.Background(), &bytes.Buffer{}, config.NewConfig(), &simOptions{nodes: 0})
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "LDHT "+ldht.Version))
}

func TestSimNodeIDSpread(t *testing.T) {
	seen := make(map[ldht.NodeID]struct{})
	for i := 0; i < 32; i++ {
		seen[simNodeID(i)] = struct{}{}
	}
	assert.Len(t, seen, 32)
}
