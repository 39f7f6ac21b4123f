package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/cardtrans/internal/cli"
	"codeberg.org/snonux/cardtrans/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	// Config file and environment fill in what the command line left out
	cli.ApplyConfig(cmd)
	if len(args) > 0 {
		flags.SourceDir = args[0]
	}

	logger, err := cli.NewLogger(flags.LogLevel)
	if err != nil {
		return err
	}

	// Interrupting keeps every committed batch; the next run resumes
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := processor.NewProcessor(flags, logger)

	// Handle --list-models flag
	if flags.ListModels {
		return proc.ListModels(ctx)
	}

	report, err := proc.Run(ctx)
	if err != nil {
		return err
	}
	if report != nil && report.Failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d units failed and kept their source text, rerun to retry them\n", report.Failed)
	}

	fmt.Printf("\nDone! Output saved to: %s\n", flags.OutputDir)
	return nil
}
