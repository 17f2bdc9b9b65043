package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lscgrid/pkg/config"
)

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage lscgrid configuration files",
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configCheckCommand())

	return cmd
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := appName + ".toml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().WriteTOML(path); err != nil {
				return err
			}
			printSuccess("Configuration written")
			printFile(path)
			printNextStep("Generate", appName+" generate -c "+path+" hgrid.gr3")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}

// configCheckCommand creates the "config check" subcommand.
func (c *CLI) configCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			printSuccess("Configuration is valid")
			printKeyValue("stretch", fmt.Sprintf("theta=%g b=%g hc=%g eta=%g",
				cfg.Stretch.Theta, cfg.Stretch.B, cfg.Stretch.Hc, cfg.Stretch.Eta))
			printKeyValue("layers", fmt.Sprintf("%d..%d", cfg.Defaults.MinLayer, cfg.Defaults.MaxLayer))
			zs, err := cfg.ZoneList()
			if err != nil {
				return err
			}
			for _, z := range zs {
				printDetail("zone %s", z)
			}
			return nil
		},
	}
}
