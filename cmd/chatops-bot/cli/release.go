package cli

import (
	"fmt"

	"github.com/jeremiehuchet/chatops-bot/internal/application"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/config"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/gitlab_http"
	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/logging"
	"github.com/spf13/cobra"
)

var releaseCmd = &cobra.Command{
	Use:   "release <project_path> <version>",
	Short: "Merge develop into master and tag the release",
	Args:  cobra.MatchAll(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, version := args[0], args[1]

		log := logging.New()
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		gl := gitlab_http.New(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.Timeout)
		uc := application.NewReleaseUseCase(log, gl)

		if err := uc.Release(cmd.Context(), project, version); err != nil {
			return err
		}

		fmt.Printf("released v%s of project %s\n", version, project)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(releaseCmd)
}
