package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fakeAPI(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCronNext_PrintsFiringTimes(t *testing.T) {
	cmd := newCronNextCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	from := time.Date(2026, 1, 1, 10, 7, 0, 0, time.Local)
	require.NoError(t, runCronNext(cmd, "*/15 * * * *", 3, from))

	assert.Contains(t, out.String(), "2026-01-01 10:15")
	assert.Contains(t, out.String(), "2026-01-01 10:30")
	assert.Contains(t, out.String(), "2026-01-01 10:45")
	assert.NotContains(t, out.String(), "11:00")
}

func TestCronNext_RejectsInvalidInput(t *testing.T) {
	_, err := runCLI(t, "cron", "next", "not a schedule")
	require.Error(t, err)

	_, err = runCLI(t, "cron", "next", "@hourly", "-n", "0")
	require.Error(t, err)
}

func TestSitesList_RendersTable(t *testing.T) {
	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"GET /api/sites": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dto.SitesResponse{Sites: []dto.Site{
				{ID: "site-1", Name: "blog", Status: "running", Runtime: "process", Port: 3000, Source: "local", LocalPath: "/srv/blog"},
			}})
		},
	})

	out, err := runCLI(t, "--remote", srv.URL, "sites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "blog")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "/srv/blog")
}

func TestSitesBuild_ResolvesByName(t *testing.T) {
	var built bool
	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"GET /api/sites/{id}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "site not found", Kind: "not_found"})
		},
		"GET /api/sites": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dto.SitesResponse{Sites: []dto.Site{{ID: "site-1", Name: "blog", Status: "stopped"}}})
		},
		"POST /api/sites/site-1/build": func(w http.ResponseWriter, r *http.Request) {
			built = true
			writeJSON(w, http.StatusOK, dto.Site{ID: "site-1", Name: "blog", Status: "built"})
		},
	})

	out, err := runCLI(t, "--remote", srv.URL, "sites", "build", "blog")
	require.NoError(t, err)
	assert.True(t, built)
	assert.Contains(t, out, "blog build: built")
}

func TestSitesStart_SurfacesConflict(t *testing.T) {
	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"GET /api/sites/{id}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dto.Site{ID: "site-1", Name: "blog", Status: "created"})
		},
		"POST /api/sites/site-1/start": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "cannot start a site that is created", Kind: "invalid_transition"})
		},
	})

	_, err := runCLI(t, "--remote", srv.URL, "sites", "start", "site-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "cannot start")
}

func TestSitesDelete_WithYes(t *testing.T) {
	var deleted bool
	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"GET /api/sites/{id}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dto.Site{ID: "site-1", Name: "blog", Status: "stopped"})
		},
		"DELETE /api/sites/site-1": func(w http.ResponseWriter, r *http.Request) {
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		},
	})

	out, err := runCLI(t, "--remote", srv.URL, "sites", "delete", "site-1", "--yes")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Contains(t, out, "Deleted blog")
}

func TestCronTrigger_PrintsFailedExecution(t *testing.T) {
	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"GET /api/cron": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dto.CronJobsResponse{Jobs: []dto.CronJob{{ID: "job-1", Name: "cleanup"}}})
		},
		"POST /api/cron/job-1/trigger": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dto.Execution{ID: "e1", Status: "failed", Error: "exit status 1", Output: "boom"})
		},
	})

	out, err := runCLI(t, "--remote", srv.URL, "cron", "trigger", "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "cleanup failed: exit status 1")
	assert.Contains(t, out, "boom")
}

func TestStatus_UsesEnvRemote(t *testing.T) {
	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"GET /api/health": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok", Version: "1.2.3", Uptime: "1m0s", Sites: map[string]int{"running": 2}})
		},
	})
	t.Setenv("OCTOPUS_REMOTE", srv.URL)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Octopus 1.2.3")
	assert.Contains(t, out, "running: 2")
}
