// Package cli implements the hdfscli cobra commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/politusanalytics/hdfs/internal/config"
	"github.com/politusanalytics/hdfs/pkg/client"
	"github.com/politusanalytics/hdfs/pkg/logging"
	"github.com/politusanalytics/hdfs/pkg/retry"
)

var (
	cfg *config.Config
	cl  *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "hdfscli",
	Short: "WebHDFS command-line client",
	Long: `hdfscli talks to an HDFS cluster over its WebHDFS REST interface.
Configuration is loaded from a .env file or environment variables
(HDFS_URLS, HDFS_ROOT, HDFS_USER, HDFS_TOKEN, ...).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := cfg.LogLevel
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		if err := logging.Init(level, cfg.LogFormat); err != nil {
			return err
		}

		c, err := client.New(client.Config{
			URLs:    cfg.URLs,
			Root:    cfg.Root,
			User:    cfg.User,
			Token:   cfg.Token,
			Timeout: cfg.Timeout,
			Retry:   retryConfig(cfg.RetryAttempts),
		})
		if err != nil {
			return err
		}
		cl = c
		return nil
	},
}

// Execute runs the root command against the loaded configuration.
func Execute(c *config.Config) error {
	cfg = c
	defer logging.Sync()
	return rootCmd.Execute()
}

func retryConfig(attempts int) retry.Config {
	rc := retry.DefaultConfig()
	if attempts > 0 {
		rc.MaxAttempts = attempts
	}
	return rc
}

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
