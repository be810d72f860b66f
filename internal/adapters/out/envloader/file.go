// Package envloader reads .env files from site workspaces.
package envloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/bnema/zerowrap"
	"github.com/joho/godotenv"
)

// DefaultFileName is the env file looked up in a workspace.
const DefaultFileName = ".env"

// FileLoader implements the EnvLoader interface with godotenv.
type FileLoader struct {
	fileName string
}

// NewFileLoader creates a loader reading fileName from each workspace.
func NewFileLoader(fileName string) *FileLoader {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &FileLoader{fileName: fileName}
}

// LoadEnv returns the KEY=value pairs of the workspace env file, sorted by
// key. A missing file yields no variables.
func (l *FileLoader) LoadEnv(ctx context.Context, dir string) ([]string, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "envloader",
		zerowrap.FieldAction:  "LoadEnv",
		zerowrap.FieldPath:    dir,
	})
	log := zerowrap.FromCtx(ctx)

	envFile := filepath.Join(dir, l.fileName)
	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("env_file", envFile).Msg("no env file in workspace")
			return []string{}, nil
		}
		return nil, log.WrapErr(err, "failed to parse env file")
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+values[k])
	}

	log.Debug().Int(zerowrap.FieldCount, len(env)).Msg("loaded env file")
	return env, nil
}
