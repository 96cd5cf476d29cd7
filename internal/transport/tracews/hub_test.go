package tracews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/fusion"
	"github.com/arogya-path/kernel/internal/trace"
)

func newTestHandler() (*Handler, *trace.Manager) {
	fusionHub := fusion.New()
	tracer := trace.New(fusionHub).WithPacing(trace.Zero)
	return New(tracer, fusionHub), tracer
}

func TestServeSession_ReplaysHistoryThenStreamsLiveEvents(t *testing.T) {
	handler, tracer := newTestHandler()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimPrefix(r.URL.Path, "/ws/trace/")
		_ = handler.ServeSession(w, r, sessionID)
	}))
	defer srv.Close()

	ctx := context.Background()
	tracer.Emit(ctx, "sess-1", "Risk Scoring Agent", "scoring", domain.TraceDecision, domain.StepCompleted, nil, "")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/trace/sess-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var replayed Frame
	require.NoError(t, conn.ReadJSON(&replayed))
	require.Equal(t, frameTraceEvent, replayed.Kind)
	require.NotNil(t, replayed.Trace)

	tracer.Emit(ctx, "sess-1", "Medical Validator", "verifying", domain.TraceDecision, domain.StepCompleted, nil, "")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var live Frame
	require.NoError(t, conn.ReadJSON(&live))
	require.Equal(t, frameTraceEvent, live.Kind)
	require.Equal(t, "Medical Validator", live.Trace.Agent)
}
