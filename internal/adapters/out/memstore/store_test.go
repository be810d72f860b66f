package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltuffery/Octopus/internal/domain"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func TestSiteRepository_CRUD(t *testing.T) {
	repo := NewSiteRepository()
	ctx := context.Background()

	site := &domain.Site{ID: "s1", Name: "Blog", Status: domain.SiteStatusPending, EnvVars: []string{"A=1"}, CreatedAt: t0}
	require.NoError(t, repo.Save(ctx, site))
	site.EnvVars[0] = "A=mutated"

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A=1"}, got.EnvVars)

	byName, err := repo.GetByName(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, "s1", byName.ID)

	_, err = repo.GetByName(ctx, "other")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "s1"), domain.ErrNotFound)
}

func TestSiteRepository_ListOrderedByCreation(t *testing.T) {
	repo := NewSiteRepository()
	ctx := context.Background()
	_ = repo.Save(ctx, &domain.Site{ID: "b", Name: "second", CreatedAt: t0.Add(time.Minute)})
	_ = repo.Save(ctx, &domain.Site{ID: "a", Name: "first", CreatedAt: t0})

	sites, err := repo.List(ctx)

	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "first", sites[0].Name)
}

func TestCronJobRepository_DropsNextRun(t *testing.T) {
	repo := NewCronJobRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.CronJob{ID: "j1", Schedule: "* * * * *", NextRun: t0, CreatedAt: t0}))

	got, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, got.NextRun.IsZero())
}

func TestExecutionRepository_ListByParentNewestFirst(t *testing.T) {
	repo := NewExecutionRepository()
	ctx := context.Background()
	for i, id := range []string{"e1", "e2", "e3"} {
		exec := domain.NewExecution(id, domain.SiteParent("s1"), domain.TriggerBuild, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Save(ctx, exec))
	}
	require.NoError(t, repo.Save(ctx, domain.NewExecution("c1", domain.CronParent("s1"), domain.TriggerSchedule, t0)))

	execs, err := repo.ListByParent(ctx, domain.SiteParent("s1"))

	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.Equal(t, "e3", execs[0].ID)
	assert.Equal(t, "e1", execs[2].ID)
}

func TestWebhookRepository_CRUD(t *testing.T) {
	repo := NewWebhookRepository()
	ctx := context.Background()

	hook := &domain.Webhook{ID: "w1", Name: "deploy", Headers: map[string]string{"X": "1"}, CreatedAt: t0}
	require.NoError(t, repo.Save(ctx, hook))
	hook.Headers["X"] = "2"

	got, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.Headers["X"])

	list, _ := repo.List(ctx)
	assert.Len(t, list, 1)
	require.NoError(t, repo.Delete(ctx, "w1"))
}
