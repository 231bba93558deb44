//go:build integration

package router

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"salescrm/internal/infra"
	"salescrm/internal/session"
	"salescrm/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type recordingSender struct {
	mu   sync.Mutex
	subj []string
}

func (s *recordingSender) Send(_, subject, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subj = append(s.subj, subject)
	return nil
}

func (s *recordingSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subj...)
}

func post(t *testing.T, srv *httptest.Server, path string, body any, token string) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestIntegration_PostgresRedis(t *testing.T) {
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("crm_test"),
		tcPostgres.WithUsername("crm"),
		tcPostgres.WithPassword("crm"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.DatabaseURL = pgURL
	cfg.RedisURL = rdURL

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	sessions := session.NewManager(session.NewRedisStore(rdb), cfg.SessionSecret, cfg.SessionTTL())

	sender := &recordingSender{}
	workerCtx, stopWorkers := context.WithCancel(ctx)
	pool := worker.NewPool(rdb)
	pool.Handle(worker.JobEntrySubmitted, worker.NewNotificationWorker(sender, "sales@example.com"))
	pool.Start(workerCtx, 1)
	t.Cleanup(func() { stopWorkers(); pool.Wait() })

	srv := httptest.NewServer(New(cfg, db, rdb, sessions, worker.NewDispatcher(rdb)))
	t.Cleanup(srv.Close)

	resp := post(t, srv, "/register", map[string]string{"username": "bob", "email": "bob@example.com", "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, srv, "/register", map[string]string{"username": "BOB", "email": "b2@example.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, srv, "/login", map[string]string{"loginIdentifier": "Bob", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()

	resp = post(t, srv, "/submit_crm", map[string]string{"person_name": "P", "company_name": "C", "case": "100%_off"}, login.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, func() bool { return len(sender.subjects()) == 1 }, 15*time.Second, 100*time.Millisecond)
	assert.Contains(t, sender.subjects()[0], "from bob")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/get_crm_entries?case=%25_o", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	resp.Body.Close()
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0]["sale_person"])

	resp = post(t, srv, "/logout", map[string]string{}, login.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/get_crm_entries", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	var health struct {
		OK    bool   `json:"ok"`
		Redis string `json:"redis"`
	}
	resp, err = srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.True(t, health.OK)
	assert.Equal(t, "connected", health.Redis)
}
