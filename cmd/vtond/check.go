package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vtond/internal/pipeline"
)

type checkReport struct {
	OK         bool                      `json:"ok"`
	WeightsDir string                    `json:"weights_dir"`
	Backend    string                    `json:"backend"`
	Checks     []pipeline.PreflightCheck `json:"checks"`
}

// runCheck prints preflight results as JSON and fails when any check fails.
func runCheck(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := resolveConfig(cmd, fv)
	if err != nil {
		return err
	}
	mgr := pipeline.NewWithConfig(managerConfig(cfg, zerolog.Nop()))
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	checks := mgr.Preflight(ctx)
	rep := checkReport{
		OK:         pipeline.PreflightOK(checks),
		WeightsDir: mgr.WeightsDir(),
		Backend:    cfg.Backend,
		Checks:     checks,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return err
	}
	if !rep.OK {
		return fmt.Errorf("preflight failed")
	}
	return nil
}
