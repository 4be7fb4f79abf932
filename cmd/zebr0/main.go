// Command zebr0 sets up the zebr0 client configuration of a machine and
// looks keys up from the command line.
//
// Usage:
//
//	zebr0 [flags]             - Persist the configuration built from the flags
//	zebr0 --test <key>        - Same, then print the value of key
//	zebr0 show [key]          - Show the effective configuration and, for a key, the URLs tried
//	zebr0 version             - Show version information
//
// Examples:
//
//	zebr0 -u http://127.0.0.1:8000 -l my-project -l production
//	zebr0 -l my-project,production --test database/host
//	zebr0 show database/host
//
// Flags left unset keep the value found in the configuration file, or the
// built-in default. The configuration file is /etc/zebr0.conf unless -f says
// otherwise.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/zebr0/zebr0-go/internal/buildinfo"
	"github.com/zebr0/zebr0-go/internal/config"
	"github.com/zebr0/zebr0-go/pkg/zebr0"
)

const lookupTimeout = 30 * time.Second

type flags struct {
	url        string
	levels     []string
	cache      int
	configFile string
	test       string
}

func (f *flags) client() (*zebr0.Client, error) {
	return zebr0.New(
		zebr0.WithURL(f.url),
		zebr0.WithLevels(f.levels...),
		zebr0.WithCache(f.cache),
		zebr0.WithConfigurationFile(f.configFile),
	)
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		color.New(color.FgHiRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "zebr0",
		Short: "zebr0 client setup",
		Long: `zebr0 configures how this machine reaches its key-value configuration server.
The configuration built from the flags, the existing configuration file and the
built-in defaults is written back to the configuration file on every run.`,
		Example:       "zebr0 -u http://127.0.0.1:8000 -l my-project -l production --test database/host",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := f.client()
			if err != nil {
				return err
			}
			if err := client.SaveConfiguration(f.configFile); err != nil {
				return err
			}
			if f.test == "" {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
			defer cancel()
			value, err := client.Get(ctx, f.test)
			fmt.Fprintln(out, value)
			return err
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&f.url, "url", "u", "", "base URL of the key-value server (default "+config.DefaultURL+")")
	pf.StringSliceVarP(&f.levels, "levels", "l", nil, "levels, root first; repeat the flag or separate with commas")
	pf.IntVarP(&f.cache, "cache", "c", 0, "seconds responses are cached for (default "+strconv.Itoa(config.DefaultCache)+")")
	pf.StringVarP(&f.configFile, "configuration-file", "f", config.DefaultPath, "path to the configuration file")
	root.Flags().StringVar(&f.test, "test", "", "print the value of this key")

	root.AddCommand(newShowCmd(f), newVersionCmd())
	return root
}

func newShowCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [key]",
		Short: "Show the effective configuration",
		Long: `Show the configuration a client would use with the same flags, without saving it.
With a key, also list the URLs it is looked up at, most specific first.`,
		Example: "zebr0 show database/host",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cfg := client.Configuration()

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Setting", "Value"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.Append([]string{"url", cfg.URL})
			table.Append([]string{"levels", strings.Join(cfg.Levels, ", ")})
			table.Append([]string{"cache", fmt.Sprintf("%ds", cfg.Cache)})
			table.Append([]string{"configuration file", f.configFile})
			table.Render()

			if len(args) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			candidates := tablewriter.NewWriter(out)
			candidates.SetHeader([]string{"#", "Candidate URL"})
			candidates.SetBorder(false)
			candidates.SetAutoWrapText(false)
			for i, u := range client.Candidates(args[0]) {
				candidates.Append([]string{strconv.Itoa(i + 1), u})
			}
			candidates.Render()
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "version: %s\n", buildinfo.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", buildinfo.Commit)
		},
	}
}
