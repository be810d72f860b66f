package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/domain"
)

// workspaceDir is the directory a site builds and runs in.
func (s *Service) workspaceDir(site *domain.Site) string {
	if site.Source.IsRemote() {
		return filepath.Join(s.config.WorkspaceDir, site.Name)
	}
	return site.LocalPath
}

// prepareWorkspace checks a local path or makes a fresh shallow clone of a remote source.
func (s *Service) prepareWorkspace(ctx context.Context, op *operation) (string, error) {
	site := op.site
	dir := s.workspaceDir(site)

	if !site.Source.IsRemote() {
		return s.existingWorkspace(site)
	}

	log := zerowrap.FromCtx(ctx)
	if err := os.RemoveAll(dir); err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "clone", fmt.Errorf("failed to clear workspace %s: %w", dir, err))
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "clone", fmt.Errorf("failed to create workspace root: %w", err))
	}

	log.Info().Str("url", site.SourceURL).Str("branch", site.Branch).Str(zerowrap.FieldPath, dir).Msg("cloning site source")

	res, err := s.runner.Run(ctx, domain.Command{
		Args:    []string{"git", "clone", "--depth", "1", "--branch", site.Branch, site.SourceURL, dir},
		Env:     []string{"GIT_TERMINAL_PROMPT=0"},
		Timeout: s.config.GitTimeout,
	})
	op.record(res)
	if err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "clone", err)
	}
	return dir, nil
}

// existingWorkspace returns the workspace of a site that must already be on disk.
func (s *Service) existingWorkspace(site *domain.Site) (string, error) {
	dir := s.workspaceDir(site)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if site.Source.IsRemote() {
			return "", domain.Errorf(domain.KindExecutionFailure, "workspace", "workspace %s is missing, rebuild the site", dir)
		}
		return "", domain.Errorf(domain.KindExecutionFailure, "workspace", "local path %s is not a directory", dir)
	}
	return dir, nil
}

func (s *Service) removeWorkspace(site *domain.Site) error {
	dir := s.workspaceDir(site)
	root := filepath.Clean(s.config.WorkspaceDir)
	if s.config.WorkspaceDir == "" || !strings.HasPrefix(filepath.Clean(dir), root+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s outside of workspace root", dir)
	}
	return os.RemoveAll(dir)
}

// environment merges the workspace dotenv file, the site variables and PORT.
// Later layers win on duplicate keys.
func (s *Service) environment(ctx context.Context, site *domain.Site, dir string) ([]string, error) {
	var fromFile []string
	if s.envLoader != nil {
		loaded, err := s.envLoader.LoadEnv(ctx, dir)
		if err != nil {
			return nil, domain.WrapError(domain.KindExecutionFailure, "environment", err)
		}
		fromFile = loaded
	}
	return mergeEnv(fromFile, site.EnvVars, []string{"PORT=" + strconv.Itoa(site.Port)}), nil
}

func mergeEnv(layers ...[]string) []string {
	all := lo.Flatten(layers)
	last := make(map[string]int, len(all))
	for i, kv := range all {
		key, _, _ := strings.Cut(kv, "=")
		last[key] = i
	}
	return lo.Filter(all, func(kv string, i int) bool {
		key, _, _ := strings.Cut(kv, "=")
		return last[key] == i
	})
}
