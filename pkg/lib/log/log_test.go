package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"debug", "DEBUG", false},
		{"INFO", "INFO", false},
		{"", "INFO", false},
		{"warning", "WARN", false},
		{"error", "ERROR", false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, level.String())
	}
}

func TestLazyLogger_FollowsDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := Logger("test/component")

	SetOutputWithLevel(&buf, LevelDebug)
	t.Cleanup(Discard)

	logger.Debug("路由表更新", "size", 3)
	out := buf.String()
	assert.Contains(t, out, "component=test/component")
	assert.Contains(t, out, "size=3")

	buf.Reset()
	SetOutputWithLevel(&buf, LevelWarn)
	logger.Info("不会输出")
	assert.Empty(t, buf.String())
}
