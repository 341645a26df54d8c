package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information, set at build time.
var (
	version   = "0.1.0"
	commit    = "development"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inspectra",
		Short: "Detect the technologies powering a website",
		Long: "inspectra matches a technology signature database against signals " +
			"collected from a live page (HTML, headers, cookies, scripts, JS " +
			"globals, DOM, CSS, DNS) and reports what the site is built with.",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("signatures", "", "Signature database directory (default: embedded ruleset)")
	root.PersistentFlags().String("signatures-url", "", "Download the signature database from this URL")
	root.PersistentFlags().String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	root.PersistentFlags().String("log-file", "", "Write logs to a rotated file instead of stderr")
	for _, flag := range []string{"signatures", "signatures-url", "log-level", "log-format", "log-file"} {
		_ = viper.BindPFlag(flag, root.PersistentFlags().Lookup(flag))
	}

	viper.SetEnvPrefix("INSPECTRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(newInspectCmd())
	root.AddCommand(newCategoriesCmd())
	root.AddCommand(newSignaturesCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("inspectra %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
