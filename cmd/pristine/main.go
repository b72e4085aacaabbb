// Command pristine is the CLI front end for the pristine graph engine:
// record, unrecord, log, channel management, checkout, and version.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/orneryd/pristine/pkg/config"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/repo"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "pristine",
		Short: "A commutative, content-addressed version control engine",
	}
	rootCmd.PersistentFlags().String("repo", ".", "Repository root directory")
	rootCmd.PersistentFlags().String("channel", "main", "Channel name")

	rootCmd.AddCommand(
		versionCmd(),
		recordCmd(),
		unrecordCmd(),
		logCmd(),
		checkoutCmd(),
		channelCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pristine v%s\n", version)
		},
	}
}

func openRepo(cmd *cobra.Command) (*repo.Repo, string, error) {
	root, _ := cmd.Flags().GetString("repo")
	channelName, _ := cmd.Flags().GetString("channel")
	cfg := config.LoadFromEnv()
	r, err := repo.Open(root, cfg)
	return r, channelName, err
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record [path]",
		Short: "Record the current state of path as a new change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, channelName, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			h, err := r.RecordFile(context.Background(), channelName, args[0])
			if err != nil {
				return err
			}
			size := "unknown size"
			if info, statErr := os.Stat(args[0]); statErr == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			fmt.Printf("recorded %s on %s (%s)\n", h, channelName, size)
			return nil
		},
	}
	return cmd
}

func unrecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unrecord [hash]",
		Short: "Remove a recorded change from a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, channelName, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			h, err := pristine.ParseHash(args[0])
			if err != nil {
				return fmt.Errorf("invalid hash %q: %w", args[0], err)
			}
			if err := r.Unrecord(context.Background(), channelName, h); err != nil {
				return err
			}
			fmt.Printf("unrecorded %s from %s\n", h, channelName)
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List every change recorded on a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, channelName, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			entries, err := r.Log(context.Background(), channelName)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s", e.Hash)
				for _, d := range e.Dependencies {
					fmt.Printf(" <- %s", d)
				}
				fmt.Println()
			}
			fmt.Printf("%s changes on %s\n", humanize.Comma(int64(len(entries))), channelName)
			return nil
		},
	}
	return cmd
}

func checkoutCmd() *cobra.Command {
	var nameConflicts bool
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Render a channel's state onto the working copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, channelName, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			conflicts, err := r.Checkout(context.Background(), channelName, nameConflicts)
			if err != nil {
				return err
			}
			for _, c := range conflicts {
				fmt.Printf("conflict: %s %s\n", c.Kind, c.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&nameConflicts, "name-conflicts", false, "Disambiguate name conflicts instead of dropping them")
	return cmd
}

func channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Channel management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create [name]",
		Short: "Create a new, empty channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()
			return r.CreateChannel(context.Background(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fork [from] [to]",
		Short: "Fork a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()
			return r.ForkChannel(context.Background(), args[0], args[1])
		},
	})
	return cmd
}
