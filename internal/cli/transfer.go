package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/politusanalytics/hdfs/pkg/client"
)

var uploadCmd = &cobra.Command{
	Use:   "upload LOCAL REMOTE",
	Short: "Upload a local file or directory tree",
	Example: `  # Upload a single file
  hdfscli upload report.csv data/report.csv

  # Upload a directory tree with 4 concurrent transfers
  hdfscli upload ./logs logs -r --workers 4

  # Replace pre-existing remote files
  hdfscli upload ./logs logs -r -f`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cl.Upload(cmd.Context(), args[1], args[0], transferOptions(cmd))
		printReport(report)
		return err
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download REMOTE LOCAL",
	Short: "Download a remote file or directory tree",
	Example: `  # Download a single file
  hdfscli download data/report.csv report.csv

  # Mirror a remote directory locally
  hdfscli download logs ./logs -r --workers 4`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cl.Download(cmd.Context(), args[0], args[1], transferOptions(cmd))
		printReport(report)
		return err
	},
}

func transferOptions(cmd *cobra.Command) client.TransferOptions {
	recursive, _ := cmd.Flags().GetBool("recursive")
	overwrite, _ := cmd.Flags().GetBool("force")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.Workers
	}
	return client.TransferOptions{
		Recursive: recursive,
		Overwrite: overwrite,
		Workers:   workers,
	}
}

func printReport(report *client.TransferReport) {
	if report == nil {
		return
	}
	var ok, skipped, failed int
	for _, r := range report.Results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Printf("failed   %s: %v\n", r.RemotePath, r.Err)
		case r.Skipped:
			skipped++
			fmt.Printf("skipped  %s (target exists)\n", r.RemotePath)
		default:
			ok++
		}
	}
	fmt.Printf("%s: %d transferred, %d skipped, %d failed\n", report.Path, ok, skipped, failed)
}

func init() {
	for _, cmd := range []*cobra.Command{uploadCmd, downloadCmd} {
		cmd.Flags().BoolP("recursive", "r", false, "Transfer directory trees")
		cmd.Flags().BoolP("force", "f", false, "Overwrite pre-existing targets")
		cmd.Flags().Int("workers", 0, "Max concurrent file transfers (default from HDFS_WORKERS)")
	}
}
