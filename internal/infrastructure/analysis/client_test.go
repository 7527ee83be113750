package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/ingest"
	"jan-server/services/helpdesk-api/internal/domain/participant"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNil   bool
		wantErr   bool
		urgency   int
		sentiment string
	}{
		{name: "sync result", status: http.StatusOK, body: `{"urgency":4,"sentiment":"negative"}`, urgency: 4, sentiment: "negative"},
		{name: "accepted", status: http.StatusAccepted, wantNil: true},
		{name: "empty ok", status: http.StatusOK, body: `{}`, wantNil: true},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, wantErr: true},
		{name: "bad json", status: http.StatusOK, body: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ingest.AnalysisRequest
			var auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				raw, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(raw, &got)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(Config{URL: srv.URL + "/analyze", APIKey: "k"})
			req := ingest.AnalysisRequest{MessageID: 9, ChannelID: 2, Text: "не работает оплата", ContentType: content.TypeText, SenderRole: participant.RoleClient}
			res, err := c.Analyze(context.Background(), req)

			assert.Equal(t, req, got)
			assert.Equal(t, "Bearer k", auth)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			require.NotNil(t, res.Urgency)
			assert.Equal(t, tt.urgency, *res.Urgency)
			assert.Equal(t, tt.sentiment, res.Sentiment)
		})
	}
}
