package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"predictd/internal/artifact"
	"predictd/internal/config"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the configured weights into the cache and print their path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			p, err := fetchArtifact(cmd.Context(), cfg, &artifact.Store{
				Dir:    cfg.CacheDir,
				HubURL: cfg.HubURL,
				Token:  cfg.HubToken,
				Logger: log.With().Str("component", "artifact").Logger(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func fetchArtifact(ctx context.Context, cfg config.Config, store *artifact.Store) (string, error) {
	ref := artifact.Ref{ModelID: cfg.ModelID, File: cfg.ModelFile, Revision: cfg.Revision}
	p, err := store.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	return p, nil
}
