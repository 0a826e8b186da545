package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Duration 配置文件中的时长
//
// JSON 中写作 time.ParseDuration 能解析的字符串，整数按纳秒解释：
//
//	{"action": {"ping_timeout": "60s", "poll_interval": "250ms"}}
//	{"dht": {"join_timeout": 5000000000}}
//
// 编码时总是输出字符串，null 保留原值。
type Duration time.Duration

// UnmarshalJSON 解析字符串或整数纳秒
func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(text)
		if err != nil {
			return fmt.Errorf("config: parse duration %q: %w", text, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var ns int64
	if err := json.Unmarshal(data, &ns); err != nil {
		return fmt.Errorf("config: duration %s is neither a string like \"30s\" nor integer nanoseconds", data)
	}
	*d = Duration(ns)
	return nil
}

// MarshalJSON 输出 "1m30s" 形式的字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 转换为 time.Duration
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }
