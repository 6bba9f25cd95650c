package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Verbosity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "default hides debug", verbose: false, wantDebug: false},
		{name: "verbose shows debug", verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := New(&buf, tt.verbose)

			log.Info("visible", "cluster", "c1")
			log.V(DebugLevel).Info("debug-line")

			out := buf.String()
			assert.Contains(t, out, `"msg"="visible"`)
			assert.Contains(t, out, `"cluster"="c1"`)
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug-line")))
		})
	}
}

func TestWarn(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	Warn(New(&buf, false), "dns update failed", "provider", "nsupdate")

	assert.Contains(t, buf.String(), `"severity"="warning"`)
	assert.Contains(t, buf.String(), `"provider"="nsupdate"`)
}
