package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/adapters/out/execlog"
	"github.com/ltuffery/Octopus/internal/adapters/out/memstore"
	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/boundaries/out/mocks"
	"github.com/ltuffery/Octopus/internal/domain"
	"github.com/ltuffery/Octopus/internal/usecase/cron"
	"github.com/ltuffery/Octopus/internal/usecase/health"
	"github.com/ltuffery/Octopus/internal/usecase/logs"
	"github.com/ltuffery/Octopus/internal/usecase/site"
	"github.com/ltuffery/Octopus/internal/usecase/webhook"
)

type testAPI struct {
	server *Server
	runner *mocks.MockProcessRunner
	driver *mocks.MockContainerDriver
	prober *mocks.MockHTTPProber
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memstore.New()
	execLog := execlog.New(execlog.Config{})
	runner := mocks.NewMockProcessRunner(t)
	driver := mocks.NewMockContainerDriver(t)
	dispatcher := mocks.NewMockWebhookDispatcher(t)
	prober := mocks.NewMockHTTPProber(t)
	drivers := map[domain.SiteRuntime]out.ContainerDriver{domain.RuntimeProcess: driver}

	sites := site.NewService(store.Sites, store.Executions, runner, drivers, nil, execLog, nil,
		site.Config{WorkspaceDir: t.TempDir()})
	scheduler := cron.NewScheduler(store.CronJobs, store.Executions, store.Webhooks, runner, dispatcher, sites, execLog, nil, cron.Config{})
	handler := NewHandler(
		sites,
		scheduler,
		webhook.NewService(store.Webhooks, store.CronJobs),
		logs.NewService(execLog, store.Sites, nil),
		health.NewService(store.Sites, drivers, prober, ""),
		"test",
	)

	return &testAPI{
		server: NewServer(Config{}, handler, prometheus.NewRegistry(), zerowrap.Default()),
		runner: runner,
		driver: driver,
		prober: prober,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func siteRequest(t *testing.T, name string) dto.SiteRequest {
	return dto.SiteRequest{
		Name:         name,
		Source:       "local",
		LocalPath:    t.TempDir(),
		Framework:    "node",
		BuildCommand: "npm run build",
		StartCommand: "npm start",
		Port:         3000,
	}
}

func (a *testAPI) createSite(t *testing.T, name string) dto.Site {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/sites", siteRequest(t, name))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.Site](t, rec)
}

func TestHandler_Health(t *testing.T) {
	a := newTestAPI(t)
	a.createSite(t, "blog")

	rec := a.do(t, http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[dto.HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 1, body.Sites["pending"])
}

func TestHandler_CreateAndGetSite(t *testing.T) {
	a := newTestAPI(t)
	created := a.createSite(t, "blog")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "process", created.Runtime)
	assert.Empty(t, created.SourceURL)

	rec := a.do(t, http.MethodGet, "/api/sites/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Name, decode[dto.Site](t, rec).Name)

	rec = a.do(t, http.MethodGet, "/api/sites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.SitesResponse](t, rec).Sites, 1)
}

func TestHandler_CreateSite_ValidationError(t *testing.T) {
	a := newTestAPI(t)
	req := siteRequest(t, "blog")
	req.LocalPath = ""

	rec := a.do(t, http.MethodPost, "/api/sites", req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[dto.ErrorResponse](t, rec)
	assert.Equal(t, string(domain.KindValidation), body.Kind)
	require.NotEmpty(t, body.Fields)
	assert.Equal(t, "localPath", body.Fields[0].Field)
}

func TestHandler_CreateSite_MalformedBody(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/sites", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	a.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetSite_NotFound(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/sites/missing", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(domain.KindNotFound), decode[dto.ErrorResponse](t, rec).Kind)
}

func TestHandler_BuildThenDeleteRunningSite(t *testing.T) {
	a := newTestAPI(t)
	created := a.createSite(t, "blog")

	a.runner.EXPECT().Run(mock.Anything, mock.Anything).Return(&domain.ProcessResult{Stdout: "ok"}, nil).Once()
	a.driver.EXPECT().Start(mock.Anything, mock.Anything).Return("proc-1", nil).Once()

	rec := a.do(t, http.MethodPost, "/api/sites/"+created.ID+"/build", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	built := decode[dto.Site](t, rec)
	assert.Equal(t, "running", built.Status)
	assert.Equal(t, "proc-1", built.Handle)

	rec = a.do(t, http.MethodDelete, "/api/sites/"+created.ID, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(domain.KindInvalidTransition), decode[dto.ErrorResponse](t, rec).Kind)

	rec = a.do(t, http.MethodGet, "/api/sites/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	execs := decode[dto.ExecutionsResponse](t, rec).Executions
	require.Len(t, execs, 2)
	assert.Equal(t, "delete", execs[0].Trigger)
	assert.Equal(t, "failed", execs[0].Status)
	assert.Equal(t, "build", execs[1].Trigger)
	assert.Equal(t, "success", execs[1].Status)
}

func TestHandler_BuildFailure(t *testing.T) {
	a := newTestAPI(t)
	created := a.createSite(t, "blog")

	a.runner.EXPECT().Run(mock.Anything, mock.Anything).Return(
		&domain.ProcessResult{ExitCode: 1, Stderr: "boom"},
		domain.Errorf(domain.KindExecutionFailure, "run", "command exited with code 1: boom"),
	).Once()

	rec := a.do(t, http.MethodPost, "/api/sites/"+created.ID+"/build", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(domain.KindExecutionFailure), decode[dto.ErrorResponse](t, rec).Kind)

	rec = a.do(t, http.MethodGet, "/api/logs?level=error&subject="+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[dto.LogsResponse](t, rec).Entries
	require.Len(t, entries, 1)
	assert.Equal(t, string(domain.KindExecutionFailure), entries[0].Kind)
	assert.Contains(t, entries[0].Metadata["stderr"], "boom")

	rec = a.do(t, http.MethodGet, "/api/logs/stats?subject="+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[dto.LogStatsResponse](t, rec)
	assert.Equal(t, 1, stats.Errors)
}

func TestHandler_SiteUsage_NotRunning(t *testing.T) {
	a := newTestAPI(t)
	created := a.createSite(t, "blog")

	rec := a.do(t, http.MethodGet, "/api/sites/"+created.ID+"/usage", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_SiteOutput(t *testing.T) {
	a := newTestAPI(t)
	created := a.createSite(t, "blog")

	rec := a.do(t, http.MethodGet, "/api/sites/"+created.ID+"/output?lines=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[dto.SiteOutputResponse](t, rec).Lines)

	rec = a.do(t, http.MethodGet, "/api/sites/"+created.ID+"/output?lines=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SiteHealth(t *testing.T) {
	a := newTestAPI(t)
	created := a.createSite(t, "blog")

	rec := a.do(t, http.MethodGet, "/api/sites/"+created.ID+"/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[dto.SiteHealth](t, rec)
	assert.False(t, body.Healthy)
	assert.Equal(t, "site is pending", body.Error)
}

func TestHandler_CronLifecycle(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/cron", dto.CronJobRequest{
		Name:     "cleanup",
		Schedule: "not a schedule",
		Command:  "echo hi",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(domain.KindInvalidSchedule), decode[dto.ErrorResponse](t, rec).Kind)

	rec = a.do(t, http.MethodPost, "/api/cron", dto.CronJobRequest{
		Name:     "cleanup",
		Schedule: "*/5 * * * *",
		Command:  "echo hi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decode[dto.CronJob](t, rec)
	assert.True(t, job.Enabled)
	assert.Equal(t, "command", job.Target.Kind)
	require.NotNil(t, job.NextRun)

	a.runner.EXPECT().Run(mock.Anything, mock.MatchedBy(func(c domain.Command) bool {
		return c.Line == "echo hi"
	})).Return(&domain.ProcessResult{Stdout: "hi\n"}, nil).Once()

	rec = a.do(t, http.MethodPost, "/api/cron/"+job.ID+"/trigger", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exec := decode[dto.Execution](t, rec)
	assert.Equal(t, "success", exec.Status)
	assert.Equal(t, "manual", exec.Trigger)

	rec = a.do(t, http.MethodPost, "/api/cron/"+job.ID+"/toggle", dto.ToggleRequest{Enabled: false})
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[dto.CronJob](t, rec)
	assert.False(t, toggled.Enabled)
	assert.Nil(t, toggled.NextRun)

	rec = a.do(t, http.MethodGet, "/api/cron/"+job.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.ExecutionsResponse](t, rec).Executions, 1)

	rec = a.do(t, http.MethodDelete, "/api/cron/"+job.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/cron/"+job.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CronPreview(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/cron/next?expr=@hourly&n=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[dto.NextRunsResponse](t, rec)
	require.Len(t, body.Runs, 3)
	assert.True(t, body.Runs[0].Before(body.Runs[1]))

	rec = a.do(t, http.MethodGet, "/api/cron/next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/cron/next?expr=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_WebhookReferencedByCronCannotBeDeleted(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/webhooks", dto.WebhookRequest{
		Name: "ping",
		URL:  "https://example.com/hook",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hook := decode[dto.Webhook](t, rec)
	assert.Equal(t, http.MethodPost, hook.Method)
	assert.True(t, hook.IsActive)

	rec = a.do(t, http.MethodPost, "/api/cron", dto.CronJobRequest{
		Name:     "ping-hourly",
		Schedule: "@hourly",
		Target:   dto.CronTarget{Kind: "webhook", WebhookID: hook.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decode[dto.CronJob](t, rec)

	rec = a.do(t, http.MethodDelete, "/api/webhooks/"+hook.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/cron/"+job.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/webhooks/"+hook.ID, nil).Code)

	rec = a.do(t, http.MethodGet, "/api/webhooks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[dto.WebhooksResponse](t, rec).Webhooks)
}

func TestHandler_LogsBadQuery(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/logs?from=yesterday", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/logs?limit=-1", nil).Code)
}

func TestHandler_UnknownRoute(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/nope", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[dto.ErrorResponse](t, rec).Error)
}

func TestHandler_Metrics(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodGet, "/api/health", nil)

	rec := a.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "octopus_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := map[domain.ErrorKind]int{
		domain.KindValidation:          http.StatusBadRequest,
		domain.KindInvalidSchedule:     http.StatusBadRequest,
		domain.KindNotFound:            http.StatusNotFound,
		domain.KindInvalidTransition:   http.StatusConflict,
		domain.KindConcurrentOperation: http.StatusConflict,
		domain.KindTimeout:             http.StatusUnprocessableEntity,
		domain.KindExecutionFailure:    http.StatusUnprocessableEntity,
		"":                             http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusFor(kind), kind)
	}
}
