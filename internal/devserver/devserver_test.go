package devserver_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/devserver"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

type stubProvider struct {
	items []diag.FinalizedDiagnostic
}

func (s stubProvider) GetDiagnostics(uri string) []diag.FinalizedDiagnostic { return s.items }

func TestServerPushesDiagnosticsOnSubscribe(t *testing.T) {
	provider := stubProvider{items: []diag.FinalizedDiagnostic{
		{Diagnostic: diag.Diagnostic{
			Code: "aurelia/unknown-element", Severity: diag.SeverityWarning, Message: "unknown element",
			Location: diag.Location{URI: "widget.html", Span: span.Span{Line: 2, Column: 3}},
		}},
	}}

	srv := devserver.New(provider, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"uri": "widget.html"}))

	var payload struct {
		URI         string `json:"uri"`
		Diagnostics []struct {
			Code string `json:"code"`
		} `json:"diagnostics"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&payload))

	require.Equal(t, "widget.html", payload.URI)
	require.Len(t, payload.Diagnostics, 1)
	require.Equal(t, "aurelia/unknown-element", payload.Diagnostics[0].Code)
}
