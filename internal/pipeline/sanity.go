package pipeline

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"vtond/internal/common/fsutil"
)

// PreflightCheck is a single named check result.
type PreflightCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Preflight validates that the weights directory and the configured runtime
// are usable. It does not mutate state and is safe to call at any time.
func (m *Manager) Preflight(ctx context.Context) []PreflightCheck {
	cfg := m.cfg
	var out []PreflightCheck

	exists := fsutil.IsDir(cfg.WeightsDir)
	c := PreflightCheck{Name: "weights_dir_exists", OK: exists}
	if !exists {
		c.Message = cfg.WeightsDir + " is not a directory"
	}
	out = append(out, c)
	if exists {
		c = PreflightCheck{Name: "weights_dir_readable", OK: true}
		if err := checkWeightsDir(cfg.WeightsDir); err != nil {
			c.OK = false
			c.Message = err.Error()
		}
		out = append(out, c)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendRemote:
		c = PreflightCheck{Name: "worker_reachable", OK: true}
		if cfg.WorkerURL == "" {
			c.OK = false
			c.Message = "worker url not configured"
		} else {
			hctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := newWorkerClient(cfg.WorkerURL, 0, 2*time.Second).health(hctx)
			cancel()
			if err != nil {
				c.OK = false
				c.Message = err.Error()
			}
		}
		out = append(out, c)
	default:
		c = PreflightCheck{Name: "worker_bin_found", OK: true}
		if p, err := exec.LookPath(cfg.WorkerBin); err != nil {
			c.OK = false
			c.Message = err.Error()
		} else {
			c.Message = p
		}
		out = append(out, c)
	}
	return out
}

// PreflightOK reports whether every check passed.
func PreflightOK(checks []PreflightCheck) bool {
	for _, c := range checks {
		if !c.OK {
			return false
		}
	}
	return true
}
