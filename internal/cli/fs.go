package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/politusanalytics/hdfs/pkg/client"
)

var lsCmd = &cobra.Command{
	Use:   "ls PATH",
	Short: "List a remote directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cl.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			kind := "-"
			if e.IsDir() {
				kind = "d"
			}
			mtime := time.UnixMilli(e.ModificationTime).Format("2006-01-02 15:04")
			fmt.Printf("%s%s %3d %-8s %-8s %12d %s %s\n",
				kind, e.Permission, e.Replication, e.Owner, e.Group, e.Length, mtime, e.PathSuffix)
		}
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat PATH",
	Short: "Print the status of a remote path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := cl.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "Create a remote directory and missing parents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		permission, _ := cmd.Flags().GetString("permission")
		ok, err := cl.MkDirs(cmd.Context(), args[0], permission)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("mkdir %s refused by service", args[0])
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Delete a remote path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		ok, err := cl.Delete(cmd.Context(), args[0], recursive)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%s did not exist\n", args[0])
		}
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv SRC DST",
	Short: "Rename a remote path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := cl.Rename(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("rename %s to %s refused by service", args[0], args[1])
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "Stream a remote file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := cl.Open(cmd.Context(), args[0], client.OpenOptions{})
		if err != nil {
			return err
		}
		defer r.Close()
		_, err = io.Copy(os.Stdout, r)
		return err
	},
}

var checksumCmd = &cobra.Command{
	Use:   "checksum PATH",
	Short: "Print the remote checksum of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := cl.Checksum(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(sum)
	},
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Print the remote home directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := cl.HomeDirectory(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(home)
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	mkdirCmd.Flags().StringP("permission", "p", "", "Octal permission for the new directory")
	rmCmd.Flags().BoolP("recursive", "r", false, "Delete directories and their contents")
}
