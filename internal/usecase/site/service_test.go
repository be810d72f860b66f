package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ltuffery/Octopus/internal/adapters/out/execlog"
	"github.com/ltuffery/Octopus/internal/adapters/out/memstore"
	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/boundaries/out/mocks"
	"github.com/ltuffery/Octopus/internal/domain"
)

type fixture struct {
	svc    *Service
	store  *memstore.Store
	logs   *execlog.Store
	runner *mocks.MockProcessRunner
	driver *mocks.MockContainerDriver
}

func testContext() context.Context {
	return zerowrap.WithCtx(context.Background(), zerowrap.Default())
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	runner := mocks.NewMockProcessRunner(t)
	f := newFixtureWithRunner(t, runner, config)
	f.runner = runner
	return f
}

func newFixtureWithRunner(t *testing.T, runner out.ProcessRunner, config Config) *fixture {
	t.Helper()
	store := memstore.New()
	logs := execlog.New(execlog.Config{})
	driver := mocks.NewMockContainerDriver(t)
	if config.WorkspaceDir == "" {
		config.WorkspaceDir = filepath.Join(t.TempDir(), "sites")
	}

	svc := NewService(
		store.Sites,
		store.Executions,
		runner,
		map[domain.SiteRuntime]out.ContainerDriver{domain.RuntimeProcess: driver},
		nil,
		logs,
		nil,
		config,
	)
	return &fixture{svc: svc, store: store, logs: logs, driver: driver}
}

func localSpec(t *testing.T, name string) domain.SiteSpec {
	return domain.SiteSpec{
		Name:         name,
		Source:       domain.SourceLocal,
		LocalPath:    t.TempDir(),
		Framework:    "node",
		BuildCommand: "npm run build",
		StartCommand: "npm start",
		EnvVars:      []string{"NODE_ENV=production"},
		Port:         3000,
	}
}

// seed stores a site directly in the given status.
func (f *fixture) seed(t *testing.T, spec domain.SiteSpec, status domain.SiteStatus, handle string) *domain.Site {
	t.Helper()
	site, err := f.svc.Create(testContext(), spec)
	require.NoError(t, err)
	site.Status = status
	site.Handle = handle
	require.NoError(t, f.store.Sites.Save(testContext(), site))
	return site
}

func (f *fixture) status(t *testing.T, id string) *domain.Site {
	t.Helper()
	site, err := f.store.Sites.Get(testContext(), id)
	require.NoError(t, err)
	return site
}

func (f *fixture) errorEntries(t *testing.T, id string) []domain.LogEntry {
	t.Helper()
	entries, err := f.logs.Query(testContext(), domain.LogFilter{Level: domain.LogError, SubjectID: id})
	require.NoError(t, err)
	return entries
}

func TestCreate_LocalRoundTrip(t *testing.T) {
	f := newFixture(t, Config{})
	spec := localSpec(t, "my-site")

	created, err := f.svc.Create(testContext(), spec)
	require.NoError(t, err)

	got, err := f.svc.Get(testContext(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, spec.LocalPath, got.LocalPath)
	assert.Empty(t, got.SourceURL)
	assert.Equal(t, domain.SiteStatusPending, got.Status)
	assert.Equal(t, domain.RuntimeProcess, got.Runtime)
	assert.NotEmpty(t, got.ID)
}

func TestCreate_PublishesEvent(t *testing.T) {
	f := newFixture(t, Config{})
	events := mocks.NewMockEventPublisher(t)
	f.svc.events = events

	events.EXPECT().Publish(domain.EventSiteCreated, mock.MatchedBy(func(p domain.SiteEventPayload) bool {
		return p.Name == "evented" && p.Status == domain.SiteStatusPending
	})).Return(nil).Once()

	_, err := f.svc.Create(testContext(), localSpec(t, "evented"))
	require.NoError(t, err)
}

func TestCreate_ValidationErrors(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.svc.Create(testContext(), localSpec(t, "taken"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*domain.SiteSpec)
		field  string
	}{
		{"missing local path", func(s *domain.SiteSpec) { s.LocalPath = "" }, "localPath"},
		{"duplicate name", func(s *domain.SiteSpec) { s.Name = "TAKEN" }, "name"},
		{"runtime not enabled", func(s *domain.SiteSpec) { s.Runtime = domain.RuntimeDocker }, "runtime"},
		{"url on local source", func(s *domain.SiteSpec) { s.SourceURL = "https://github.com/u/r" }, "sourceUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := localSpec(t, "fresh-site")
			tt.mutate(&spec)

			_, err := f.svc.Create(testContext(), spec)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var typed *domain.Error
			require.True(t, errors.As(err, &typed))
			fields := make([]string, 0, len(typed.Fields))
			for _, fe := range typed.Fields {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	sites, err := f.svc.List(testContext())
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}

func TestBuild_Success(t *testing.T) {
	f := newFixture(t, Config{BuildTimeout: time.Minute})
	site := f.seed(t, localSpec(t, "builder"), domain.SiteStatusPending, "")

	f.runner.EXPECT().Run(mock.Anything, mock.MatchedBy(func(c domain.Command) bool {
		return c.Line == "npm run build" &&
			c.Dir == site.LocalPath &&
			c.Timeout == time.Minute &&
			slices.Contains(c.Env, "PORT=3000") &&
			slices.Contains(c.Env, "NODE_ENV=production")
	})).Return(&domain.ProcessResult{Stdout: "built"}, nil).Once()

	f.driver.EXPECT().Start(mock.Anything, mock.MatchedBy(func(s domain.RuntimeSpec) bool {
		return s.SiteID == site.ID && s.Command == "npm start" && s.Port == 3000 && s.Image == "node:20-alpine"
	})).Return("proc-1", nil).Once()

	got, err := f.svc.Build(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusRunning, got.Status)
	assert.Equal(t, "proc-1", got.Handle)

	execs, err := f.svc.Executions(testContext(), site.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.ExecutionSuccess, execs[0].Status)
	assert.Equal(t, domain.TriggerBuild, execs[0].Trigger)
	assert.Contains(t, execs[0].Output, "built")
	assert.Empty(t, f.errorEntries(t, site.ID))
}

func TestBuild_EmptyBuildCommandIsNoop(t *testing.T) {
	f := newFixture(t, Config{})
	spec := localSpec(t, "static-site")
	spec.BuildCommand = ""
	site := f.seed(t, spec, domain.SiteStatusStopped, "")

	f.driver.EXPECT().Start(mock.Anything, mock.Anything).Return("proc-2", nil).Once()

	got, err := f.svc.Build(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusRunning, got.Status)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestBuild_NonZeroExitMovesSiteToError(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "broken"), domain.SiteStatusPending, "")

	f.runner.EXPECT().Run(mock.Anything, mock.Anything).Return(
		&domain.ProcessResult{ExitCode: 2, Stderr: "npm ERR! missing script: build\n"},
		domain.Errorf(domain.KindExecutionFailure, "run", "command exited with code 2: npm ERR! missing script: build"),
	).Once()

	_, err := f.svc.Build(testContext(), site.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecutionFailure)

	got := f.status(t, site.ID)
	assert.Equal(t, domain.SiteStatusError, got.Status)
	assert.Contains(t, got.LastError, "missing script")

	entries := f.errorEntries(t, site.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.KindExecutionFailure, entries[0].Kind)
	assert.Equal(t, "2", entries[0].Metadata["exit_code"])
	assert.Contains(t, entries[0].Metadata["stderr"], "npm ERR! missing script")

	execs, err := f.svc.Executions(testContext(), site.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.ExecutionFailed, execs[0].Status)
	assert.Equal(t, 2, execs[0].ExitCode)
	f.driver.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestBuild_RemoteSourceClonesFreshCopy(t *testing.T) {
	workspace := filepath.Join(t.TempDir(), "sites")
	f := newFixture(t, Config{WorkspaceDir: workspace})
	site := f.seed(t, domain.SiteSpec{
		Name:         "remote-app",
		Source:       domain.SourceGitHub,
		SourceURL:    "https://github.com/acme/app",
		Branch:       "release",
		StartCommand: "./serve",
		Port:         8080,
	}, domain.SiteStatusPending, "")
	dir := filepath.Join(workspace, "remote-app")

	f.runner.EXPECT().Run(mock.Anything, mock.MatchedBy(func(c domain.Command) bool {
		return len(c.Args) > 0 && c.Args[0] == "git"
	})).RunAndReturn(func(_ context.Context, c domain.Command) (*domain.ProcessResult, error) {
		assert.Equal(t, []string{"git", "clone", "--depth", "1", "--branch", "release", "https://github.com/acme/app", dir}, c.Args)
		return &domain.ProcessResult{Stderr: "Cloning into '" + dir + "'..."}, os.MkdirAll(dir, 0o755)
	}).Once()

	f.driver.EXPECT().Start(mock.Anything, mock.MatchedBy(func(s domain.RuntimeSpec) bool {
		return s.Workdir == dir
	})).Return("proc-3", nil).Once()

	got, err := f.svc.Build(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusRunning, got.Status)
}

func TestConcurrentOperations_OnlyOneProceeds(t *testing.T) {
	const n = 8
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "contended"), domain.SiteStatusStopped, "")

	unblock := make(chan struct{})
	f.driver.EXPECT().Start(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, domain.RuntimeSpec) (string, error) {
		<-unblock
		return "proc-4", nil
	}).Once()

	results := make(chan error, n)
	for range n {
		go func() {
			_, err := f.svc.Start(testContext(), site.ID)
			results <- err
		}()
	}

	var errs []error
	for range n - 1 {
		select {
		case err := <-results:
			errs = append(errs, err)
		case <-time.After(5 * time.Second):
			t.Fatal("rejected operations did not fail fast")
		}
	}
	close(unblock)
	errs = append(errs, <-results)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConcurrentOperation)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, domain.SiteStatusRunning, f.status(t, site.ID).Status)
	assert.Zero(t, f.svc.locks.Len())

	execs, err := f.svc.Executions(testContext(), site.ID)
	require.NoError(t, err)
	assert.Len(t, execs, n)
}

func TestDifferentSitesRunConcurrently(t *testing.T) {
	f := newFixture(t, Config{})
	a := f.seed(t, localSpec(t, "site-a"), domain.SiteStatusStopped, "")
	b := f.seed(t, localSpec(t, "site-b"), domain.SiteStatusStopped, "")

	entered := make(chan struct{}, 2)
	unblock := make(chan struct{})
	f.driver.EXPECT().Start(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, s domain.RuntimeSpec) (string, error) {
		entered <- struct{}{}
		<-unblock
		return "proc-" + s.Name, nil
	}).Times(2)

	done := make(chan error, 2)
	for _, id := range []string{a.ID, b.ID} {
		go func(id string) {
			_, err := f.svc.Start(testContext(), id)
			done <- err
		}(id)
	}

	for range 2 {
		select {
		case <-entered:
		case <-time.After(5 * time.Second):
			t.Fatal("sites did not start concurrently")
		}
	}
	close(unblock)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
}

func TestDelete_RunningSiteIsInvalidTransition(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "live"), domain.SiteStatusRunning, "proc-5")

	err := f.svc.Delete(testContext(), site.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.SiteStatusRunning, f.status(t, site.ID).Status)
	f.driver.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)

	execs, err := f.svc.Executions(testContext(), site.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.KindInvalidTransition, execs[0].FailureKind)
}

func TestDelete_StoppedSiteTearsDownUnit(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "retired"), domain.SiteStatusStopped, "")

	f.driver.EXPECT().Remove(mock.Anything, "", mock.MatchedBy(func(s domain.RuntimeSpec) bool {
		return s.Name == "retired" && s.SiteID == site.ID
	})).Return(nil).Once()

	require.NoError(t, f.svc.Delete(testContext(), site.ID))

	_, err := f.svc.Get(testContext(), site.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStopThenStart(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "cycler"), domain.SiteStatusRunning, "proc-6")

	f.driver.EXPECT().Stop(mock.Anything, "proc-6").Return(nil).Once()
	f.driver.EXPECT().Start(mock.Anything, mock.Anything).Return("proc-7", nil).Once()

	stopped, err := f.svc.Stop(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusStopped, stopped.Status)
	assert.Empty(t, stopped.Handle)

	_, err = f.svc.Stop(testContext(), site.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	started, err := f.svc.Start(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusRunning, started.Status)
	assert.Equal(t, "proc-7", started.Handle)
}

func TestRestart_FromErrorClearsLastError(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "recovering"), domain.SiteStatusError, "proc-8")
	site.LastError = "unit proc-8 is error"
	require.NoError(t, f.store.Sites.Save(testContext(), site))

	f.driver.EXPECT().Stop(mock.Anything, "proc-8").Return(nil).Once()
	f.driver.EXPECT().Start(mock.Anything, mock.Anything).Return("proc-9", nil).Once()

	got, err := f.svc.Restart(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusRunning, got.Status)
	assert.Equal(t, "proc-9", got.Handle)
	assert.Empty(t, f.status(t, site.ID).LastError)
}

func TestRestart_FailedStopAborts(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "stuck"), domain.SiteStatusRunning, "proc-10")

	f.driver.EXPECT().Stop(mock.Anything, "proc-10").
		Return(domain.NewError(domain.KindExecutionFailure, "stop", "daemon unavailable")).Once()

	_, err := f.svc.Restart(testContext(), site.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecutionFailure)
	assert.Equal(t, domain.SiteStatusError, f.status(t, site.ID).Status)
	f.driver.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestRebuild_FromRunningStopsThenBuilds(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "rebuilt"), domain.SiteStatusRunning, "proc-20")

	var order []string
	f.driver.EXPECT().Stop(mock.Anything, "proc-20").RunAndReturn(func(context.Context, string) error {
		order = append(order, "stop")
		return nil
	}).Once()
	f.runner.EXPECT().Run(mock.Anything, mock.MatchedBy(func(c domain.Command) bool {
		return c.Line == "npm run build"
	})).RunAndReturn(func(context.Context, domain.Command) (*domain.ProcessResult, error) {
		order = append(order, "build")
		return &domain.ProcessResult{Stdout: "rebuilt"}, nil
	}).Once()
	f.driver.EXPECT().Start(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, domain.RuntimeSpec) (string, error) {
		order = append(order, "start")
		return "proc-21", nil
	}).Once()

	got, err := f.svc.Rebuild(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"stop", "build", "start"}, order)
	assert.Equal(t, domain.SiteStatusRunning, got.Status)
	assert.Equal(t, "proc-21", got.Handle)

	execs, err := f.svc.Executions(testContext(), site.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.TriggerRebuild, execs[0].Trigger)
	assert.Equal(t, domain.ExecutionSuccess, execs[0].Status)
}

func TestRebuild_FromError(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "broken"), domain.SiteStatusError, "")

	f.runner.EXPECT().Run(mock.Anything, mock.Anything).Return(&domain.ProcessResult{}, nil).Once()
	f.driver.EXPECT().Start(mock.Anything, mock.Anything).Return("proc-22", nil).Once()

	got, err := f.svc.Rebuild(testContext(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusRunning, got.Status)
	f.driver.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything)
}

func TestRebuild_FromPendingIsInvalidTransition(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "fresh"), domain.SiteStatusPending, "")

	_, err := f.svc.Rebuild(testContext(), site.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.SiteStatusPending, f.status(t, site.ID).Status)
}

func TestStart_DefaultImage(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		image  string
		want   string
	}{
		{"no prefix", "", "", "node:20-alpine"},
		{"mirror prefix", "registry.local/mirror/", "", "registry.local/mirror/node:20-alpine"},
		{"explicit image wins", "registry.local/mirror", "ghcr.io/acme/web:1.2", "ghcr.io/acme/web:1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{ImagePrefix: tt.prefix})
			spec := localSpec(t, "imaged")
			spec.Image = tt.image
			site := f.seed(t, spec, domain.SiteStatusStopped, "")

			f.driver.EXPECT().Start(mock.Anything, mock.MatchedBy(func(s domain.RuntimeSpec) bool {
				return s.Image == tt.want
			})).Return("proc-30", nil).Once()

			_, err := f.svc.Start(testContext(), site.ID)
			require.NoError(t, err)
		})
	}
}

func TestStart_DriverTimeout(t *testing.T) {
	f := newFixture(t, Config{StartTimeout: 50 * time.Millisecond})
	site := f.seed(t, localSpec(t, "slow-start"), domain.SiteStatusStopped, "")

	f.driver.EXPECT().Start(mock.Anything, mock.Anything).RunAndReturn(func(ctx context.Context, _ domain.RuntimeSpec) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}).Once()

	_, err := f.svc.Start(testContext(), site.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)

	entries := f.errorEntries(t, site.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.KindTimeout, entries[0].Kind)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, Config{})
	site := f.seed(t, localSpec(t, "editable"), domain.SiteStatusStopped, "")
	_ = f.seed(t, localSpec(t, "other-site"), domain.SiteStatusStopped, "")

	spec := localSpec(t, "edited")
	spec.Port = 4000
	got, err := f.svc.Update(testContext(), site.ID, spec)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Name)
	assert.Equal(t, 4000, got.Port)

	spec.Name = "other-site"
	_, err = f.svc.Update(testContext(), site.ID, spec)
	assert.ErrorIs(t, err, domain.ErrValidation)

	running := f.seed(t, localSpec(t, "running-site"), domain.SiteStatusRunning, "proc-11")
	_, err = f.svc.Update(testContext(), running.ID, localSpec(t, "running-site"))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUsage(t *testing.T) {
	f := newFixture(t, Config{})
	stopped := f.seed(t, localSpec(t, "idle-site"), domain.SiteStatusStopped, "")
	running := f.seed(t, localSpec(t, "busy-site"), domain.SiteStatusRunning, "proc-12")

	_, err := f.svc.Usage(testContext(), stopped.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	f.driver.EXPECT().Usage(mock.Anything, "proc-12").Return(domain.ResourceUsage{CPUPercent: 12.5, MemoryBytes: 1 << 20}, nil).Once()
	usage, err := f.svc.Usage(testContext(), running.ID)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, usage.CPUPercent, 0.001)
	assert.Equal(t, uint64(1<<20), usage.MemoryBytes)
}

func TestCreate_AutoBuild(t *testing.T) {
	f := newFixture(t, Config{AutoBuild: true})
	spec := localSpec(t, "auto-site")
	spec.BuildCommand = ""

	f.driver.EXPECT().Start(mock.Anything, mock.Anything).Return("proc-13", nil).Once()

	site, err := f.svc.Create(testContext(), spec)
	require.NoError(t, err)
	assert.Equal(t, domain.SiteStatusPending, site.Status)

	f.svc.Wait()
	assert.Equal(t, domain.SiteStatusRunning, f.status(t, site.ID).Status)
}

func TestMergeEnv(t *testing.T) {
	merged := mergeEnv(
		[]string{"A=file", "B=file"},
		[]string{"B=site", "C=site"},
		[]string{"PORT=80"},
	)
	assert.Equal(t, []string{"A=file", "B=site", "C=site", "PORT=80"}, merged)
}
