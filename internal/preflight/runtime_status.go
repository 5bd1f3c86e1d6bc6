package preflight

import (
	"context"

	"despatch/internal/config"
)

// CheckTransportFromConfig evaluates the configured transport. Hot folders
// get the same write probe as the shared output; HTTP intakes get a
// reachability request.
func CheckTransportFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Transport"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	switch cfg.Transport.Mode {
	case config.TransportHotFolder:
		check := CheckSharedOutput("Hot folder", cfg.Transport.HotFolder)
		return Result{Name: name, Passed: check.Passed, Detail: "hot folder " + check.Detail}
	case config.TransportHTTP:
		check := CheckIntake(ctx, cfg.Transport.IntakeURL)
		return Result{Name: name, Passed: check.Passed, Detail: "intake " + check.Detail}
	default:
		return Result{Name: name, Detail: "unsupported mode " + cfg.Transport.Mode}
	}
}
