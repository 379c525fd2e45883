package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"folio/api/internal/app"
	"folio/api/internal/auth"
	"folio/api/internal/search"
	"folio/api/internal/store"
)

func newMigrateCmd(rt *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeStore, err := openStore(cmd.Context(), rt)
			if err != nil {
				return err
			}
			closeStore()
			rt.log.Info().Str("store", rt.cfg.StoreDriver).Msg("migrations applied")
			return nil
		},
	}
}

func newTreeCmd(rt *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <workspace-id>",
		Short: "Print the live page tree of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataStore, closeStore, err := openStore(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer closeStore()

			tree, err := app.New(rt.cfg, dataStore).GetTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tree.Walk(func(p store.Page, depth int) bool {
				fmt.Fprintf(out, "%s%s  (%s)\n", strings.Repeat("  ", depth), p.Title, p.ID)
				return true
			})
			return nil
		},
	}
}

func newReindexCmd(rt *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <workspace-id>...",
		Short: "Push every page of the given workspaces to Meilisearch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(rt.cfg.MeiliURL) == "" {
				return fmt.Errorf("MEILI_URL is not set")
			}
			dataStore, closeStore, err := openStore(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer closeStore()

			meiliClient := search.NewMeili(rt.cfg.MeiliURL, rt.cfg.MeiliMasterKey, rt.log)
			defer meiliClient.Close()
			if !meiliClient.Healthy() {
				return fmt.Errorf("meilisearch at %s is unavailable", rt.cfg.MeiliURL)
			}
			svc := search.NewService(meiliClient, search.NewStoreScan(dataStore), rt.log)
			for _, workspaceID := range args {
				n, err := svc.ReindexWorkspace(cmd.Context(), dataStore, workspaceID)
				if err != nil {
					return fmt.Errorf("reindex %s: %w", workspaceID, err)
				}
				rt.log.Info().Str("workspace", workspaceID).Int("pages", n).Msg("workspace reindexed")
			}
			return nil
		},
	}
}

func newTokenCmd(rt *cliEnv) *cobra.Command {
	var (
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.NewTokens(rt.cfg.TokenSecret).Issue(auth.NewClaims(args[0], name, ttl, time.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
