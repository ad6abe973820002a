package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

type staticCreds struct {
	token string
	err   error
}

func (s staticCreds) Token(context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:     srv.URL + "/api/v1/",
		Timeout:     2 * time.Second,
		Credentials: staticCreds{token: "tok-1"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, domain.DefaultAPIURL, c.BaseURL())
	assert.Equal(t, domain.DefaultAPITimeout, c.timeout)
	assert.Nil(t, c.limiter)

	c = New(Config{BaseURL: "http://localhost/api/", RateLimit: 2})
	assert.Equal(t, "http://localhost/api", c.BaseURL())
	assert.NotNil(t, c.limiter)
}

func TestClient_SendsBearerToken(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/auth/profile", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
		writeJSON(w, 200, map[string]any{"user": map[string]string{"id": "U1", "email": "a@b.c"}})
	})
	c := newTestClient(t, r)

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "U1", p.ID)
	assert.Equal(t, "a@b.c", p.Email)
}

func TestClient_MissingCredentials(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/auth/profile", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not reach the server")
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api/v1", Credentials: staticCreds{err: domain.ErrAuthRequired}})
	_, err := c.Profile(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	c = New(Config{BaseURL: srv.URL + "/api/v1"})
	_, err = c.Profile(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		want    error
		message string
	}{
		{401, `{"error":"Invalid token"}`, domain.ErrAuthInvalid, "Invalid token"},
		{403, `{"message":"Admins only"}`, domain.ErrForbidden, "Admins only"},
		{404, `{"error":"Website not found"}`, domain.ErrNotFound, "Website not found"},
		{429, `{"error":"Too many requests"}`, domain.ErrRateLimited, "Too many requests"},
		{500, `{}`, domain.ErrServer, ""},
		{502, `bad gateway`, domain.ErrServer, "bad gateway"},
		{400, `{"error":"query is required"}`, domain.ErrInvalidInput, "query is required"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/v1/user/websites/{id}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			c := newTestClient(t, r)

			_, err := c.GetWebsite(context.Background(), domain.ScopeUser, "WEB1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *domain.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/user/crawl/{job}/status", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	})
	c := newTestClient(t, r)

	_, err := c.CrawlStatus(context.Background(), domain.ScopeUser, "J1")
	assert.ErrorIs(t, err, domain.ErrUnexpectedResponse)
}

func TestClient_Timeout(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/user/dashboard/stats", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api/v1", Timeout: 50 * time.Millisecond, Credentials: staticCreds{token: "t"}})
	_, err := c.DashboardStats(context.Background(), domain.ScopeUser)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecodeEnvelope(t *testing.T) {
	var sites []domain.Website
	require.NoError(t, decodeEnvelope([]byte(`{"clients":[{"brokerId":"A"}]}`), "clients", &sites))
	assert.Len(t, sites, 1)

	sites = nil
	require.NoError(t, decodeEnvelope([]byte(`[{"brokerId":"B"}]`), "clients", &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, "B", sites[0].BrokerID)

	var site domain.Website
	require.NoError(t, decodeEnvelope([]byte(`{"brokerId":"C","name":"c"}`), "client", &site))
	assert.Equal(t, "C", site.BrokerID)
}

func TestScoped(t *testing.T) {
	assert.Equal(t, "/user/websites", scoped(domain.ScopeUser, "/websites"))
	assert.Equal(t, "/admin/websites", scoped(domain.ScopeAdmin, "/websites"))
	assert.Equal(t, "/user/x", scoped("", "/x"))
}

func TestClient_RateLimit(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/api/v1/user/chat/session/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api/v1", RateLimit: 20, Credentials: staticCreds{token: "t"}})
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.ClearSession(context.Background(), "s"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

var _ driven.CredentialProvider = staticCreds{}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}
