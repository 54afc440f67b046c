package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping() error { return p.err }

func healthData(t *testing.T, data any) map[string]any {
	t.Helper()
	m, ok := data.(map[string]any)
	require.True(t, ok)
	return m
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantHealth string
		wantDB     string
	}{
		{"memory driver", nil, http.StatusOK, "healthy", "n/a"},
		{"database up", fakePinger{}, http.StatusOK, "healthy", "ok"},
		{"database down", fakePinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "unhealthy", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("po-engine", "1.2.3", "postgres", tt.db)
			c, w := newTestContext()

			h.Health(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			data := healthData(t, decodeResponse(t, w).Data)
			assert.Equal(t, tt.wantHealth, data["status"])
			assert.Equal(t, tt.wantDB, data["database"])
			assert.Equal(t, "1.2.3", data["version"])
			assert.NotEmpty(t, data["go_version"])
		})
	}
}
