package skiptrace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantErr        string
		wantIdentities int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"status": "ok",
				"result_code": "MATCH",
				"identities": [
					{
						"names": [{"first_name": "John", "last_name": "Smith", "age": 54, "deceased": false}],
						"phones": [{"number": "3305551234", "type": "mobile"}],
						"relatives": [{"name": "Jane Smith", "age": 51, "phones": [{"number": "3305559999"}]}]
					}
				]
			}`,
			wantIdentities: 1,
		},
		{
			name:           "no_match",
			status:         http.StatusOK,
			body:           `{"status": "ok", "result_code": "NO_MATCH", "identities": []}`,
			wantIdentities: 0,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "internal server error"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				reqBody, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				var req SearchRequest
				require.NoError(t, json.Unmarshal(reqBody, &req))
				assert.Equal(t, "John", req.FirstName)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			resp, err := client.Search(context.Background(), SearchRequest{
				FirstName:      "John",
				LastName:       "Smith",
				MailingAddress: "123 Main St",
				MailingCity:    "Akron",
				MailingState:   "OH",
				MailingZip:     "44301",
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, resp.Identities, tt.wantIdentities)
		})
	}
}

func TestSearch_RelativesParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"identities": [{
				"names": [{"first_name": "Mary", "last_name": "Doe"}],
				"relatives": [
					{"name": "James Doe", "phones": [{"number": "3307605034"}, {"number": "2165550000"}]}
				]
			}]
		}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{FirstName: "Mary", LastName: "Doe"})
	require.NoError(t, err)
	require.Len(t, resp.Identities, 1)
	require.Len(t, resp.Identities[0].Relatives, 1)
	assert.Equal(t, "James Doe", resp.Identities[0].Relatives[0].Name)
	assert.Len(t, resp.Identities[0].Relatives[0].Phones, 2)
}
