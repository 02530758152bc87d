package cli

import (
	"fmt"

	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var disableCmd = &cobra.Command{
	Use:   "disable <project_path>",
	Short: "Disable a watched project by path in config.yaml",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		changed := false
		for i := range cfg.Watch.Projects {
			if cfg.Watch.Projects[i].Path == path {
				if cfg.Watch.Projects[i].Enabled {
					cfg.Watch.Projects[i].Enabled = false
					changed = true
				}
			}
		}

		if !changed {
			fmt.Printf("no change (project %q already disabled or not found)\n", path)
			return nil
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}
		fmt.Printf("disabled: %s\n", path)

		return nil
	},
}

func init() {
	disableCmd.ValidArgsFunction = enableCmd.ValidArgsFunction

	rootCmd.AddCommand(disableCmd)
}
