package pagesteer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		resp taskResponse
		want func(t *testing.T, err error)
	}{
		{
			name: "ok is nil",
			resp: taskResponse{Status: "ok"},
			want: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name: "intercepted click",
			resp: taskResponse{Status: "error", Error: "element click intercepted", ErrorKind: kindIntercepted},
			want: func(t *testing.T, err error) {
				var ie *InterceptedError
				require.ErrorAs(t, err, &ie)
				assert.Equal(t, "el-7", ie.Target)
			},
		},
		{
			name: "worker-side timeout maps to ceiling",
			resp: taskResponse{Status: "error", Error: "wait timed out", ErrorKind: kindTimeout},
			want: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrCeiling)
			},
		},
		{
			name: "anything else is opaque",
			resp: taskResponse{Status: "error", Error: "session dropped"},
			want: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.EqualError(t, err, "session dropped")
				assert.False(t, errors.Is(err, ErrCeiling))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, workerError(&tt.resp, "el-7"))
		})
	}
}

func TestEncodeScriptArgsRewritesElements(t *testing.T) {
	got := encodeScriptArgs([]any{Element{ID: "el-3"}, "plain", 7})
	assert.Equal(t, []any{
		map[string]any{"element_id": "el-3"},
		"plain",
		7,
	}, got)
}

func TestSelectorArgsUseWireNames(t *testing.T) {
	args := selectorArgs(ByLinkText("Next page"))
	assert.Equal(t, map[string]any{
		"strategy": "link text",
		"pattern":  "Next page",
	}, args)
}

func TestTaskCarriesInitFieldsOnlyOnce(t *testing.T) {
	// The headless flag and browser type ride only on the first task; later
	// payloads must not re-send them.
	d := &RemoteDriver{
		session: &remoteSession{
			BrowserID:   "b1",
			WorkerName:  "w1",
			BrowserType: "firefox",
			Headless:    true,
		},
	}

	first := d.newTask("open_url", map[string]any{"url": "https://example.com"})
	data, err := json.Marshal(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"browser_type":"firefox"`)
	assert.Contains(t, string(data), `"headless":true`)
	assert.Equal(t, "PAGESTEER:result:"+first.TaskID, first.ResultKey)

	d.initSent = true
	second := d.newTask("click_element", map[string]any{"element_id": "el-1"})
	data, err = json.Marshal(second)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "browser_type")
	assert.NotContains(t, string(data), "headless")
	assert.NotEqual(t, first.TaskID, second.TaskID)
}

func TestResolveBrowserType(t *testing.T) {
	t.Setenv("PAGESTEER_BROWSER", "")
	assert.Equal(t, "chrome", resolveBrowserType(""))
	assert.Equal(t, "firefox", resolveBrowserType("firefox"))

	t.Setenv("PAGESTEER_BROWSER", "edge")
	assert.Equal(t, "edge", resolveBrowserType(""))
	// Explicit config beats the environment.
	assert.Equal(t, "firefox", resolveBrowserType("firefox"))
}

func TestNewRemoteDriverStoresBrowserType(t *testing.T) {
	t.Setenv("PAGESTEER_BROWSER", "")
	d, err := NewRemoteDriver(RemoteConfig{
		RedisHost:   "localhost",
		RedisPort:   "6379",
		BrowserType: "firefox",
	})
	require.NoError(t, err)
	defer d.rdb.Close()
	assert.Equal(t, "firefox", d.browserType)
}
