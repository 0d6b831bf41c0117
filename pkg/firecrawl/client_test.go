package firecrawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrape(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  string
		wantCode int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"success": true, "data": {"url": "https://acme.com", "title": "Acme", "markdown": "# Acme", "statusCode": 200}}`,
		},
		{
			name:     "rate_limit",
			status:   http.StatusTooManyRequests,
			body:     `{"error": "rate limit"}`,
			wantErr:  "HTTP 429",
			wantCode: 429,
		},
		{
			name:    "malformed",
			status:  http.StatusOK,
			body:    `{nope`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/scrape", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			resp, err := client.Scrape(context.Background(), ScrapeRequest{URL: "https://acme.com", Formats: []string{"markdown"}})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				if tt.wantCode != 0 {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantCode, apiErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, "# Acme", resp.Data.Markdown)
		})
	}
}
