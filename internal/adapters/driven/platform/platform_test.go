package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

func decodeBody(t *testing.T, r *http.Request, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(v))
}

func TestAuth_OTPFlow(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/request-login-otp", func(w http.ResponseWriter, req *http.Request) {
			assert.Empty(t, req.Header.Get("Authorization"))
			var body otpRequest
			decodeBody(t, req, &body)
			assert.Equal(t, "a@b.c", body.Email)
			writeJSON(w, 200, map[string]bool{"success": true})
		})
		r.Post("/verify-login-otp", func(w http.ResponseWriter, req *http.Request) {
			var body otpRequest
			decodeBody(t, req, &body)
			if body.OTP != "123456" {
				writeJSON(w, 401, map[string]string{"error": "Invalid OTP"})
				return
			}
			writeJSON(w, 200, map[string]any{
				"token": "jwt-1",
				"user":  map[string]string{"id": "U1", "email": body.Email, "role": "admin"},
			})
		})
		r.Post("/verify-signup-otp", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]any{"user": map[string]string{"id": "U2"}})
		})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	require.NoError(t, c.RequestLoginOTP(ctx, "a@b.c"))

	session, err := c.VerifyLoginOTP(ctx, "a@b.c", "123456")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", session.Token)
	assert.True(t, session.Profile.IsAdmin())

	_, err = c.VerifyLoginOTP(ctx, "a@b.c", "000000")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)

	_, err = c.VerifySignupOTP(ctx, "a@b.c", "123456")
	assert.ErrorIs(t, err, domain.ErrUnexpectedResponse)
}

func TestAuth_VerifyUsesGivenToken(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/auth/verify", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer explicit", req.Header.Get("Authorization"))
		writeJSON(w, 200, map[string]any{"user": map[string]string{"id": "U9"}})
	})
	c := newTestClient(t, r)

	p, err := c.Verify(context.Background(), "explicit")
	require.NoError(t, err)
	assert.Equal(t, "U9", p.ID)
}

func TestAuth_ProfileAndAPIKey(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/api/v1/auth/profile", func(w http.ResponseWriter, req *http.Request) {
		var body domain.ProfileUpdate
		decodeBody(t, req, &body)
		writeJSON(w, 200, map[string]any{"user": map[string]string{"id": "U1", "name": body.Name}})
	})
	r.Post("/api/v1/auth/api-key", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		decodeBody(t, req, &body)
		assert.Equal(t, "ci", body["keyName"])
		writeJSON(w, 200, map[string]string{"apiKey": "rk_123"})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	p, err := c.UpdateProfile(ctx, domain.ProfileUpdate{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)

	key, err := c.GenerateAPIKey(ctx, "ci")
	require.NoError(t, err)
	assert.Equal(t, "rk_123", key.Key)
	assert.Equal(t, "ci", key.Name)
}

func TestWebsites_ScopedRoutes(t *testing.T) {
	var seen []string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			seen = append(seen, req.Method+" "+req.URL.Path)
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/v1/{scope}/websites", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]any{"clients": []map[string]string{{"brokerId": "A"}, {"brokerId": "B"}}})
		})
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var site domain.Website
			decodeBody(t, req, &site)
			site.BrokerID = "NEW1"
			writeJSON(w, 201, map[string]any{"client": site})
		})
		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, map[string]string{"brokerId": chi.URLParam(req, "id"), "name": "Docs"})
		})
		r.Put("/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]bool{"success": true})
		})
		r.Delete("/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/{id}/stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]any{"stats": map[string]int{"pageCount": 12}})
		})
	})
	r.Get("/api/v1/{scope}/dashboard/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]int{"totalWebsites": 3})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	sites, err := c.ListWebsites(ctx, domain.ScopeAdmin)
	require.NoError(t, err)
	assert.Len(t, sites, 2)

	site, err := c.GetWebsite(ctx, domain.ScopeUser, "WEB 1")
	require.NoError(t, err)
	assert.Equal(t, "WEB 1", site.BrokerID)

	created, err := c.CreateWebsite(ctx, domain.ScopeUser, domain.Website{Name: "Docs", Domain: "docs.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "NEW1", created.BrokerID)
	assert.Equal(t, "docs.example.com", created.Domain)

	updated, err := c.UpdateWebsite(ctx, domain.ScopeUser, domain.Website{BrokerID: "A", Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	require.NoError(t, c.DeleteWebsite(ctx, domain.ScopeAdmin, "A"))

	stats, err := c.WebsiteStats(ctx, domain.ScopeUser, "A")
	require.NoError(t, err)
	assert.Equal(t, 12, stats.PageCount)
	assert.Equal(t, "A", stats.BrokerID)

	dash, err := c.DashboardStats(ctx, domain.ScopeAdmin)
	require.NoError(t, err)
	assert.Equal(t, 3, dash.TotalWebsites)

	assert.Equal(t, []string{
		"GET /api/v1/admin/websites",
		"GET /api/v1/user/websites/WEB 1",
		"POST /api/v1/user/websites",
		"PUT /api/v1/user/websites/A",
		"DELETE /api/v1/admin/websites/A",
		"GET /api/v1/user/websites/A/stats",
		"GET /api/v1/admin/dashboard/stats",
	}, seen)
}

func TestCrawl_StartAndStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/user/crawl", func(w http.ResponseWriter, req *http.Request) {
		var body startCrawlRequest
		decodeBody(t, req, &body)
		assert.Equal(t, "WEB1", body.BrokerID)
		assert.Equal(t, 50, body.Options.MaxPages)
		writeJSON(w, 202, map[string]string{"jobId": "J1"})
	})
	r.Get("/api/v1/admin/crawl/{job}/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "running", "pagesCrawled": 7})
	})
	r.Post("/api/v1/admin/crawl/batch", func(w http.ResponseWriter, req *http.Request) {
		var body map[string][]string
		decodeBody(t, req, &body)
		assert.Equal(t, []string{"A", "B"}, body["brokerIds"])
		writeJSON(w, 200, domain.BatchCrawlResult{
			Jobs:   []domain.BatchCrawlJob{{BrokerID: "A", JobID: "JA"}},
			Failed: []string{"B"},
		})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	id, err := c.StartCrawl(ctx, domain.ScopeUser, "WEB1", domain.CrawlOptions{MaxPages: 50})
	require.NoError(t, err)
	assert.Equal(t, "J1", id)

	report, err := c.CrawlStatus(ctx, domain.ScopeAdmin, "J1")
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlRunning, report.Status)
	assert.Equal(t, 7, report.PagesCrawled)
	assert.Equal(t, "J1", report.JobID)

	batch, err := c.StartBatchCrawl(ctx, []string{"A", "B"})
	require.NoError(t, err)
	assert.Len(t, batch.Jobs, 1)
	assert.Equal(t, []string{"B"}, batch.Failed)
}

func TestCrawl_OpenLogStream(t *testing.T) {
	r := chi.NewRouter()
	handler := func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "tok-1", req.URL.Query().Get("token"))
		assert.Empty(t, req.Header.Get("Authorization"))
		assert.Equal(t, "text/event-stream", req.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: "+req.URL.Path+"\n\n")
	}
	r.Get("/api/v1/crawl/{job}/logs", handler)
	r.Get("/api/v1/admin/crawl/{job}/logs", handler)
	c := newTestClient(t, r)

	body, err := c.OpenLogStream(context.Background(), domain.ScopeUser, "J1")
	require.NoError(t, err)
	assert.Equal(t, "data: /api/v1/crawl/J1/logs", readAll(t, body))

	body, err = c.OpenLogStream(context.Background(), domain.ScopeAdmin, "J1")
	require.NoError(t, err)
	assert.Equal(t, "data: /api/v1/admin/crawl/J1/logs", readAll(t, body))
}

func TestChat_OpenChatStreams(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/user/chat", func(w http.ResponseWriter, req *http.Request) {
		var body driven.ChatRequest
		decodeBody(t, req, &body)
		assert.Equal(t, driven.ChatRequest{BrokerID: "WEB1", Query: "hi", SessionID: "s1"}, body)
		_, _ = io.WriteString(w, `data: {"type":"token","content":"Hel"}`+"\n")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, `data: {"type":"done"}`+"\n")
	})
	c := newTestClient(t, r)

	body, err := c.OpenChat(context.Background(), domain.ScopeUser, driven.ChatRequest{BrokerID: "WEB1", Query: "hi", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"token\",\"content\":\"Hel\"}\ndata: {\"type\":\"done\"}", readAll(t, body))
}

func TestChat_OpenChatNon2xx(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/user/chat", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 500, map[string]string{"error": "LLM unavailable"})
	})
	c := newTestClient(t, r)

	body, err := c.OpenChat(context.Background(), domain.ScopeUser, driven.ChatRequest{BrokerID: "WEB1", Query: "hi"})
	assert.Nil(t, body)
	assert.ErrorIs(t, err, domain.ErrServer)
	assert.Contains(t, err.Error(), "LLM unavailable")
}

func TestChat_QueryAndSessions(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/admin/query", func(w http.ResponseWriter, req *http.Request) {
		var body queryRequest
		decodeBody(t, req, &body)
		assert.Equal(t, "pricing?", body.Query)
		assert.Equal(t, 3, body.Options.TopK)
		writeJSON(w, 200, map[string]any{
			"answer":  "It is free.",
			"sources": []map[string]any{{"url": "https://x/pricing", "score": 0.8}},
		})
	})
	r.Get("/api/v1/user/chat/session/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"history": []map[string]string{{"role": "user", "content": "hi"}}})
	})
	r.Post("/api/v1/user/session/new", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"sessionId": "session_abc"})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	res, err := c.Query(ctx, domain.ScopeAdmin, "WEB1", "pricing?", domain.QueryOptions{TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, "It is free.", res.Answer)
	require.Len(t, res.Sources, 1)
	assert.InDelta(t, 0.8, res.Sources[0].RelevanceScore, 1e-9)

	history, err := c.SessionHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Content)

	id, err := c.NewSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session_abc", id)
}

func TestWidget(t *testing.T) {
	var saved domain.WidgetSettings
	r := chi.NewRouter()
	r.Route("/api/v1/user/widget/{id}", func(r chi.Router) {
		r.Get("/settings", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "id") == "EMPTY" {
				writeJSON(w, 200, map[string]any{"settings": nil})
				return
			}
			writeJSON(w, 200, map[string]any{"settings": map[string]any{"enabled": true, "widgetTitle": "Help"}})
		})
		r.Put("/settings", func(w http.ResponseWriter, req *http.Request) {
			decodeBody(t, req, &saved)
			writeJSON(w, 200, map[string]bool{"success": true})
		})
		r.Get("/api-key", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]string{"apiKey": "pk_1"})
		})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	s, err := c.WidgetSettings(ctx, "WEB1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Help", s.WidgetTitle)

	s, err = c.WidgetSettings(ctx, "EMPTY")
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, c.UpdateWidgetSettings(ctx, "WEB1", domain.DefaultWidgetSettings()))
	assert.Equal(t, domain.DefaultWidgetSettings(), saved)

	key, err := c.WidgetAPIKey(ctx, "WEB1")
	require.NoError(t, err)
	assert.Equal(t, "pk_1", key)
}
