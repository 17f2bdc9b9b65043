package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lscgrid/pkg/cache"
)

// cacheCommand groups the file cache maintenance subcommands. Redis
// entries are not touched; they expire by TTL.
func (c *CLI) cacheCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (TOML or YAML)")

	dir := func() (string, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return "", err
		}
		d, err := cacheDir(cfg)
		if err != nil {
			return "", fmt.Errorf("get cache dir: %w", err)
		}
		return d, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove all cached layer counts and grids",
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := dir()
				if err != nil {
					return err
				}
				n, err := sweepCacheDir(d, (*cache.FileCache).Clear)
				return reportSweep(n, err, "Cleared", d)
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Remove expired cache entries",
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := dir()
				if err != nil {
					return err
				}
				n, err := sweepCacheDir(d, (*cache.FileCache).Prune)
				return reportSweep(n, err, "Pruned", d)
			},
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show cache location and size",
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := dir()
				if err != nil {
					return err
				}
				return printCacheInfo(d)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory path",
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := dir()
				if err != nil {
					return err
				}
				emit(d)
				return nil
			},
		},
	)
	return cmd
}

// sweepCacheDir runs sweep over the file cache in dir. A missing dir has
// nothing to sweep.
func sweepCacheDir(dir string, sweep func(*cache.FileCache) (int, error)) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return 0, err
	}
	return sweep(fc)
}

// clearCacheDir removes every file cache entry in dir.
func clearCacheDir(dir string) (int, error) {
	return sweepCacheDir(dir, (*cache.FileCache).Clear)
}

func reportSweep(n int, err error, verb, dir string) error {
	if err != nil {
		return err
	}
	if n == 0 {
		printInfo("Nothing to remove")
		return nil
	}
	printSuccess("%s %d cached entries", verb, n)
	printDetail("Directory: %s", dir)
	return nil
}

func printCacheInfo(dir string) error {
	printKeyValue("directory", dir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printKeyValue("entries", "0")
		return nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	u, err := fc.Usage()
	if err != nil {
		return err
	}
	printKeyValue("entries", fmt.Sprint(u.Entries))
	printKeyValue("size", formatBytes(u.Bytes))
	if u.Expired > 0 {
		printKeyValue("expired", fmt.Sprintf("%d (run %s cache prune)", u.Expired, appName))
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
