package rotationhandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationmigrations "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories/migrations"
	tenantservice "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/application"
	"github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/directory"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	tenantstore "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/store"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server   *httptest.Server
	registry *tenantservice.Registry
	baseDir  string
}

type errorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newAPIFixture(t *testing.T, tenants ...string) *apiFixture {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := directory.Open(ctx, config.RegistryDriverSQLite, "file:"+filepath.Join(root, "directory.db")+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = directory.Migrate(ctx, db)
	require.NoError(t, err)

	baseDir := filepath.Join(root, "tenants")
	registry := tenantservice.NewRegistry(db, tenantdb.NewRepository(db), rotationmigrations.Migrations, config.TenantsConfig{
		BaseDir:     baseDir,
		BusyTimeout: time.Second,
		OpenTimeout: 3 * time.Second,
	}, logger, observability.NewNoop())
	for _, id := range tenants {
		store, err := registry.Provision(ctx, id)
		require.NoError(t, err)
		require.NoError(t, store.Close())
	}

	sessions := tenantservice.NewSessionManager(registry, logger, observability.NewNoop(), nil)
	service := rotationservice.NewRotationService(rotationservice.DefaultRepositories(), nil, logger, observability.NewNoop(), nil)
	h := NewRotationHandlers(sessions, service, logger)

	r := chi.NewRouter()
	r.Mount("/tenants/{tenantID}", h.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &apiFixture{server: srv, registry: registry, baseDir: baseDir}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) createPlayer(t *testing.T, tenant, name string) rotationdomain.Participant {
	t.Helper()
	var p rotationdomain.Participant
	status := f.do(t, http.MethodPost, "/tenants/"+tenant+"/rotations/mvp/participants", map[string]string{"name": name}, &p)
	require.Equal(t, http.StatusCreated, status)
	return p
}

func (f *apiFixture) createEvent(t *testing.T, tenant, name string) rotationdomain.Event {
	t.Helper()
	var e rotationdomain.Event
	status := f.do(t, http.MethodPost, "/tenants/"+tenant+"/events", map[string]string{"name": name}, &e)
	require.Equal(t, http.StatusCreated, status)
	return e
}

func TestRotationFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t, "guild-a")
	alice := f.createPlayer(t, "guild-a", "Alice")
	bob := f.createPlayer(t, "guild-a", "Bob")
	week1 := f.createEvent(t, "guild-a", "Week 1")
	week2 := f.createEvent(t, "guild-a", "Week 2")

	var status rotationdomain.Status
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tenants/guild-a/rotations/mvp/status", nil, &status))
	assert.True(t, status.CanAssign)
	assert.Equal(t, rotationdomain.CycleFirst, status.Cycle)
	assert.Len(t, status.Eligible, 2)

	var a rotationdomain.Assignment
	code := f.do(t, http.MethodPost, "/tenants/guild-a/rotations/mvp/assignments",
		map[string]int64{"participant_id": alice.ID, "event_id": week1.ID}, &a)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, alice.ID, a.ParticipantID)
	assert.Equal(t, "Week 1", a.EventName)

	var rejected errorEnvelope
	code = f.do(t, http.MethodPost, "/tenants/guild-a/rotations/mvp/assignments",
		map[string]int64{"participant_id": alice.ID, "event_id": week2.ID}, &rejected)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, CodeNotEligible, rejected.Error.Code)
	var details notEligibleDetails
	require.NoError(t, json.Unmarshal(rejected.Error.Details, &details))
	assert.Equal(t, []string{"Bob"}, details.Eligible)
	assert.Equal(t, "first_cycle", details.Cycle)

	var count countResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, fmt.Sprintf("/tenants/guild-a/rotations/mvp/participants/%d/count", alice.ID), nil, &count))
	assert.Equal(t, 1, count.AwardCount)

	var history []rotationdomain.Assignment
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, fmt.Sprintf("/tenants/guild-a/rotations/mvp/participants/%d/history?limit=5", alice.ID), nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, a.ID, history[0].ID)

	var undone rotationdomain.Assignment
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, fmt.Sprintf("/tenants/guild-a/rotations/mvp/assignments/%d", a.ID), nil, &undone))
	assert.Equal(t, a.ID, undone.ID)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/tenants/guild-a/rotations/mvp/assignments",
		map[string]int64{"participant_id": bob.ID, "event_id": week2.ID}, nil))

	var report reportResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tenants/guild-a/rotations/mvp/verify", nil, &report))
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.Entries)

	var summary rotationservice.DeleteEventSummary
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, fmt.Sprintf("/tenants/guild-a/events/%d", week2.ID), nil, &summary))
	assert.Equal(t, 1, summary.Removed[rotationdomain.KindMVP])
	assert.Equal(t, []int64{bob.ID}, summary.Decremented[rotationdomain.KindMVP])

	var reset resetResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/tenants/guild-a/rotations/mvp/reset", nil, &reset))
	assert.Equal(t, 0, reset.Removed)
}

func TestParticipantEndpoints(t *testing.T) {
	f := newAPIFixture(t, "guild-a")
	alice := f.createPlayer(t, "guild-a", "Alice")
	base := fmt.Sprintf("/tenants/guild-a/rotations/mvp/participants/%d", alice.ID)

	var renamed rotationdomain.Participant
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, base, map[string]string{"name": "Alicia"}, &renamed))
	assert.Equal(t, "Alicia", renamed.Name)

	var excluded rotationdomain.Participant
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, base+"/excluded", map[string]bool{"excluded": true}, &excluded))
	assert.True(t, excluded.IsExcluded)

	var active []rotationdomain.Participant
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tenants/guild-a/rotations/mvp/participants?include_excluded=false", nil, &active))
	assert.Empty(t, active)

	var all []rotationdomain.Participant
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tenants/guild-a/rotations/player/participants", nil, &all))
	assert.Len(t, all, 1)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, base, nil, nil))
	var gone errorEnvelope
	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, base, nil, &gone))
	assert.Equal(t, CodeNotFound, gone.Error.Code)
}

func TestErrorMapping(t *testing.T) {
	f := newAPIFixture(t, "guild-a", "guild-gone")
	f.createPlayer(t, "guild-a", "Alice")
	alliance := struct{ ID int64 }{}
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/tenants/guild-a/rotations/winner/participants", map[string]string{"name": "Red"}, &alliance))

	// A store whose file disappeared is unavailable, not unknown.
	require.NoError(t, os.Remove(tenantstore.PathFor(f.baseDir, "guild-gone")))

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unknown tenant", http.MethodGet, "/tenants/guild-x/rotations/mvp/status", nil, http.StatusNotFound, CodeTenantNotFound},
		{"invalid tenant id", http.MethodGet, "/tenants/bad.id/rotations/mvp/status", nil, http.StatusBadRequest, CodeInvalidInput},
		{"missing store", http.MethodGet, "/tenants/guild-gone/rotations/mvp/status", nil, http.StatusServiceUnavailable, CodeStoreUnavailable},
		{"unknown kind", http.MethodGet, "/tenants/guild-a/rotations/coach/status", nil, http.StatusBadRequest, CodeInvalidInput},
		{"duplicate name", http.MethodPost, "/tenants/guild-a/rotations/mvp/participants", map[string]string{"name": "Alice"}, http.StatusConflict, CodeDuplicateName},
		{"blank name", http.MethodPost, "/tenants/guild-a/rotations/mvp/participants", map[string]string{"name": "  "}, http.StatusBadRequest, CodeInvalidInput},
		{"unknown field", http.MethodPost, "/tenants/guild-a/rotations/mvp/participants", map[string]string{"nom": "Zed"}, http.StatusBadRequest, CodeInvalidInput},
		{"bad id", http.MethodGet, "/tenants/guild-a/rotations/mvp/participants/abc", nil, http.StatusBadRequest, CodeInvalidInput},
		{"missing event", http.MethodPost, "/tenants/guild-a/rotations/mvp/assignments", map[string]int64{"participant_id": 1, "event_id": 99}, http.StatusNotFound, CodeNotFound},
		{"missing assignment", http.MethodDelete, "/tenants/guild-a/rotations/mvp/assignments/42", nil, http.StatusNotFound, CodeNotFound},
		{"alliance exclusion", http.MethodPut, fmt.Sprintf("/tenants/guild-a/rotations/winner/participants/%d/excluded", alliance.ID), map[string]bool{"excluded": true}, http.StatusBadRequest, CodeInvalidInput},
		{"excluded missing", http.MethodPut, "/tenants/guild-a/rotations/mvp/participants/1/excluded", map[string]any{}, http.StatusBadRequest, CodeInvalidInput},
		{"negative limit", http.MethodGet, "/tenants/guild-a/rotations/mvp/participants/1/history?limit=-1", nil, http.StatusBadRequest, CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env errorEnvelope
			code := f.do(t, tt.method, tt.path, tt.body, &env)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestTenantsAreIsolatedOverHTTP(t *testing.T) {
	f := newAPIFixture(t, "guild-a", "guild-b")
	f.createPlayer(t, "guild-a", "Alice")
	f.createPlayer(t, "guild-b", "Alice")
	f.createPlayer(t, "guild-b", "Bob")

	var a, b []rotationdomain.Participant
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tenants/guild-a/rotations/mvp/participants", nil, &a))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tenants/guild-b/rotations/mvp/participants", nil, &b))
	assert.Len(t, a, 1)
	assert.Len(t, b, 2)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{tenantservice.ErrTenantNotFound, http.StatusNotFound, CodeTenantNotFound},
		{fmt.Errorf("resolve: %w", tenantservice.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{tenantservice.ErrTenantRequired, http.StatusBadRequest, CodeInvalidInput},
		{&rotationservice.NotEligibleError{Kind: rotationdomain.KindMVP}, http.StatusConflict, CodeNotEligible},
		{rotationservice.ErrInvariantViolation, http.StatusInternalServerError, CodeInvariantViolation},
		{rotationservice.ErrExclusionUnsupported, http.StatusBadRequest, CodeInvalidInput},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		status, code := Classify(tt.err)
		assert.Equal(t, tt.wantStatus, status, tt.err.Error())
		assert.Equal(t, tt.wantCode, code, tt.err.Error())
	}
}
