package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/MakeNowJust/heredoc"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"aster/internal/app"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

var (
	coloredNotice  = color.New(color.Bold, color.FgCyan).SprintFunc()
	coloredError   = color.New(color.Bold, color.FgHiRed).SprintFunc()
	coloredSuccess = color.New(color.Bold, color.FgHiGreen).SprintFunc()
	coloredWarn    = color.New(color.FgYellow).SprintFunc()
	coloredDim     = color.New(color.Faint).SprintFunc()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, coloredError("error:"), err)
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

type serviceFactory func() (*app.Service, error)

type rootFlags struct {
	configPath string
	cwd        string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{ConfigPath: flags.configPath, Cwd: flags.cwd})
	}

	cmd := &cobra.Command{
		Use:   "aster",
		Short: "Copy UI components from registries into your project",
		Long: heredoc.Doc(`
			aster resolves components from the official registry, GitHub repositories,
			plain URLs, namespace registries or local files, and copies their source
			into your project. Installed files are tracked in aster.lock.
		`),
		Example: heredoc.Doc(`
			$ aster init
			$ aster add button card
			$ aster add github:acme/widgets/card@v2
			$ aster add @acme/chart --dry-run
			$ aster diff button
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file (default ~/.aster/config.toml, or $ASTER_CONFIG)")
	cmd.PersistentFlags().StringVar(&flags.cwd, "cwd", "", "project directory (default current directory)")
	cmd.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "output JSON")

	jsonOutput := &flags.jsonOutput
	cmd.AddCommand(newInitCmd(newSvc, jsonOutput))
	cmd.AddCommand(newAddCmd(newSvc, jsonOutput))
	cmd.AddCommand(newRemoveCmd(newSvc, jsonOutput))
	cmd.AddCommand(newUpdateCmd(newSvc, jsonOutput))
	cmd.AddCommand(newDiffCmd(newSvc, jsonOutput))
	cmd.AddCommand(newListCmd(newSvc, jsonOutput))
	cmd.AddCommand(newSearchCmd(newSvc, jsonOutput))
	cmd.AddCommand(newViewCmd(newSvc, jsonOutput))
	cmd.AddCommand(newCacheCmd(newSvc, jsonOutput))
	cmd.AddCommand(newRegistryCmd(newSvc, jsonOutput))
	cmd.AddCommand(newInfoCmd(newSvc, jsonOutput))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newVersionCmd(jsonOutput))
	return cmd
}

func print(w io.Writer, jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(blob))
		return nil
	}
	if message != "" {
		fmt.Fprintln(w, message)
	}
	return nil
}
