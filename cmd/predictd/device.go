package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"predictd/internal/device"
	"predictd/internal/predictor"
	"predictd/pkg/types"
)

// deviceReport is printed by `predictd device`.
type deviceReport struct {
	Device types.Device           `json:"device"`
	Sanity predictor.SanityReport `json:"sanity"`
}

func newDeviceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show the compute device and backend readiness without loading the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			dev, err := device.Resolve(cfg.Device, cfg.GPULayers)
			if err != nil {
				return err
			}
			p := newPredictor(cfg, log)
			defer p.Close()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(deviceReport{Device: dev, Sanity: p.SanityCheck(cmd.Context())})
		},
	}
}
