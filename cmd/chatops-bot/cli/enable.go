package cli

import (
	"fmt"

	"github.com/jeremiehuchet/chatops-bot/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <project_path>",
	Short: "Enable a watched project by path in config.yaml",
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
				if !cfg.Watch.Projects[i].Enabled {
					cfg.Watch.Projects[i].Enabled = true
					changed = true
				}
			}
		}

		if !changed {
			fmt.Printf("no change (project %q already enabled or not found)\n", path)
			return nil
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}

		fmt.Printf("enabled: %s\n", path)
		return nil
	},
}

func init() {
	enableCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		out := make([]string, 0, len(cfg.Watch.Projects))
		for _, p := range cfg.Watch.Projects {
			if p.Path == "" {
				continue
			}

			if toComplete == "" || startsWith(p.Path, toComplete) {
				out = append(out, p.Path)
			}
		}

		return out, cobra.ShellCompDirectiveNoFileComp
	}

	rootCmd.AddCommand(enableCmd)
}

func startsWith(s, pref string) bool {
	if len(pref) > len(s) {
		return false
	}

	return s[:len(pref)] == pref
}
