package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/elonfeng/subreader/internal/config"
	"github.com/elonfeng/subreader/pkg/source"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "subreader",
		Short:         "Collect top reddit submissions into a local store and browse them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(envFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with credentials")

	root.AddCommand(initCmd())
	root.AddCommand(populateCmd())
	root.AddCommand(listCmd())
	root.AddCommand(subredditCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func populateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "populate <subreddit> [limit] [time]",
		Short: "Add the top submissions of a subreddit (or all/popular) to the store",
		Long: "Adds the top submissions of a subreddit to the store. limit is at most 1000 " +
			"(default 1000); time is one of hour, day, week, month, year or all (default all).",
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := source.MaxListing
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n <= 0 {
					return fmt.Errorf("limit must be a positive integer, got %q", args[1])
				}
				limit = n
			}
			period := source.TimeAll
			if len(args) > 2 {
				tf, err := source.ParseTimeFilter(args[2])
				if err != nil {
					return err
				}
				period = tf
			}
			return runPopulate(args[0], limit, period)
		},
	}
}

func listCmd() *cobra.Command {
	var (
		jsonOutput  bool
		limit       int
		days        int
		showRead    bool
		withIgnored bool
	)

	cmd := &cobra.Command{
		Use:   "list [subreddit]",
		Short: "Show the highest scoring stored submissions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return runList(name, limit, days, showRead, withIgnored, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "max submissions to show")
	cmd.Flags().IntVar(&days, "days", 0, "only submissions from the last N days (default: no limit)")
	cmd.Flags().BoolVar(&showRead, "read", false, "include submissions already read")
	cmd.Flags().BoolVar(&withIgnored, "ignored", false, "include ignored subreddits")
	return cmd
}

func subredditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subreddit",
		Short: "Mark stored subreddits as ignored or favorite",
	}

	set := func(use, short string, apply subredditFlag, value bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <name>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSetSubredditFlag(args[0], apply, value)
			},
		}
	}

	cmd.AddCommand(set("ignore", "Hide a subreddit from the front page and subreddit list", flagIgnored, true))
	cmd.AddCommand(set("unignore", "Show an ignored subreddit again", flagIgnored, false))
	cmd.AddCommand(set("favorite", "Sort a subreddit first in the subreddit list", flagFavorite, true))
	cmd.AddCommand(set("unfavorite", "Remove a subreddit from the favorites", flagFavorite, false))
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduled ingestion and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
