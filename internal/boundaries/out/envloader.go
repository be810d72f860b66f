package out

import "context"

// EnvLoader loads extra environment variables for a site workspace,
// typically from a dotenv file at its root.
type EnvLoader interface {
	LoadEnv(ctx context.Context, dir string) ([]string, error)
}
