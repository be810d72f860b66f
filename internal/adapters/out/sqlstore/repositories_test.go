package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltuffery/Octopus/internal/domain"
)

var t0 = time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "octopus.db"))
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSiteRepository_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	site := &domain.Site{
		ID:           "s1",
		Name:         "Shop",
		Source:       domain.SourceGitHub,
		SourceURL:    "https://github.com/acme/shop",
		Branch:       "main",
		StartCommand: "npm start",
		EnvVars:      []string{"A=1", "B=2"},
		Port:         3000,
		Runtime:      domain.RuntimeProcess,
		Status:       domain.SiteStatusPending,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	require.NoError(t, s.Sites.Save(ctx, site))

	got, err := s.Sites.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, site.SourceURL, got.SourceURL)
	assert.Empty(t, got.LocalPath)
	assert.Equal(t, []string{"A=1", "B=2"}, got.EnvVars)
	assert.True(t, t0.Equal(got.UpdatedAt))

	site.Status = domain.SiteStatusRunning
	site.Handle = "proc-s1-42"
	site.UpdatedAt = t0.Add(time.Minute)
	require.NoError(t, s.Sites.Save(ctx, site))

	byName, err := s.Sites.GetByName(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusRunning, byName.Status)
	assert.Equal(t, "proc-s1-42", byName.Handle)

	list, err := s.Sites.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Sites.Delete(ctx, "s1"))
	_, err = s.Sites.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Sites.Delete(ctx, "s1"), domain.ErrNotFound)
}

func TestCronJobRepository_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	last := t0.Add(-time.Hour)

	job := &domain.CronJob{
		ID:        "j1",
		Name:      "nightly",
		Schedule:  "0 3 * * *",
		Target:    domain.CronTarget{Kind: domain.TargetSite, SiteID: "s1", SiteAction: domain.ActionRestart},
		Enabled:   true,
		LastRun:   &last,
		NextRun:   t0,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	require.NoError(t, s.CronJobs.Save(ctx, job))

	got, err := s.CronJobs.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, job.Target, got.Target)
	require.NotNil(t, got.LastRun)
	assert.True(t, last.Equal(*got.LastRun))
	assert.True(t, got.NextRun.IsZero())
}

func TestExecutionRepository_ListByParent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i, id := range []string{"e1", "e2"} {
		exec := domain.NewExecution(id, domain.CronParent("j1"), domain.TriggerSchedule, t0.Add(time.Duration(i)*time.Minute))
		exec.AppendOutput("HTTP 200\nok")
		exec.Succeed(t0.Add(time.Duration(i)*time.Minute + time.Second))
		require.NoError(t, s.Executions.Save(ctx, exec))
	}
	other := domain.NewExecution("e3", domain.SiteParent("j1"), domain.TriggerBuild, t0)
	require.NoError(t, s.Executions.Save(ctx, other))

	execs, err := s.Executions.ListByParent(ctx, domain.CronParent("j1"))

	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, "e2", execs[0].ID)
	assert.Equal(t, domain.ExecutionSuccess, execs[0].Status)
	require.NotNil(t, execs[0].FinishedAt)
	assert.Equal(t, time.Second, execs[0].Duration())
}

func TestWebhookRepository_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	hook := &domain.Webhook{
		ID:        "w1",
		Name:      "deploy",
		URL:       "https://hooks.example.com/deploy",
		Method:    "POST",
		Headers:   map[string]string{"Authorization": "Bearer x"},
		IsActive:  true,
		CreatedAt: t0,
	}
	require.NoError(t, s.Webhooks.Save(ctx, hook))

	got, err := s.Webhooks.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, hook.Headers, got.Headers)
	assert.True(t, got.IsActive)

	_, err = s.Webhooks.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
