package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"aster/internal/app"
	"aster/internal/installer"
)

func newAddCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var opts app.AddOptions
	cmd := &cobra.Command{
		Use:   "add <ids...>",
		Short: "Add components to the project",
		Long: heredoc.Doc(`
			Resolve the given components and their registry dependencies, then copy
			their files into the project. Files that differ locally are skipped
			unless --force is given.

			Identifiers:
			  button                          official registry
			  config:nativewind               official config bundle
			  github:owner/repo/card[@ref]    registry.json in a GitHub repository
			  https://example.com/card.json   any URL serving a resource
			  @acme/chart                     namespace registry from aster.json
			  ./components/local.json         local resource file
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			p := newProgress(*jsonOutput)
			p.Start("resolving " + strings.Join(args, ", "))
			result, err := svc.Add(cmd.Context(), args, opts)
			p.Stop()
			out := cmd.OutOrStdout()
			if *jsonOutput {
				if perr := print(out, true, result, ""); perr != nil {
					return perr
				}
				return err
			}
			for _, w := range result.Warnings {
				fmt.Fprintln(out, coloredWarn("warning:"), w)
			}
			if err != nil {
				return err
			}
			if result.DryRun {
				fmt.Fprint(out, resolutionTree(result.Resolved))
				return nil
			}
			printInstallReport(out, *result.Report)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite files that differ locally")
	cmd.Flags().BoolVar(&opts.SkipExport, "skip-export", false, "do not add export lines to the components index")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be installed without writing")
	return cmd
}

// resolutionTree renders resolved items nested under the input that first
// referenced them.
func resolutionTree(items []app.ResolvedItem) string {
	tree := treeprint.New()
	tree.SetValue("resolution")
	branches := map[string]treeprint.Tree{}
	for _, item := range items {
		parent := tree
		if b, ok := branches[item.Via]; ok && item.Via != "" {
			parent = b
		}
		label := fmt.Sprintf("%s (%s, %s)", item.Name, item.Type, item.Source)
		if item.Cached {
			label += " cached"
		}
		branch := parent.AddBranch(label)
		for _, f := range item.Files {
			branch.AddNode(f)
		}
		branches[item.Input] = branch
	}
	return tree.String()
}

func printInstallReport(out io.Writer, report installer.Report) {
	for _, item := range report.Items {
		for _, f := range item.Files {
			switch f.Status {
			case installer.FileWritten, installer.FileOverwritten:
				fmt.Fprintf(out, "%s %s %s\n", coloredSuccess("✔"), f.Path, coloredDim("("+string(f.Status)+")"))
			case installer.FileUnchanged:
				fmt.Fprintf(out, "%s %s %s\n", coloredDim("="), f.Path, coloredDim("(unchanged)"))
			case installer.FileConflict:
				fmt.Fprintf(out, "%s %s: local %d lines, incoming %d lines; use --force to overwrite\n",
					coloredWarn("skipped"), f.Path, f.LocalLines, f.RemoteLines)
			}
		}
		for _, t := range item.Transforms {
			line := fmt.Sprintf("  %s %s: %s", t.Op, t.File, t.Status)
			if t.Error != "" {
				line += " (" + t.Error + ")"
			}
			fmt.Fprintln(out, coloredDim(line))
		}
		for _, f := range item.Findings {
			fmt.Fprintf(out, "  %s %s %s: %s\n", coloredWarn(strings.ToUpper(f.Severity.String())), f.RuleID, f.Target, f.Description)
		}
		for _, h := range item.Hooks {
			switch {
			case h.Blocked:
				fmt.Fprintln(out, coloredWarn("hook blocked:"), h.Command)
			case h.Error != "":
				fmt.Fprintln(out, coloredWarn("hook failed:"), h.Command+":", h.Error)
			}
		}
	}
	deps := report.Dependencies
	if len(deps.Installed)+len(deps.DevInstalled) > 0 {
		fmt.Fprintf(out, "%s %s\n", coloredNotice(deps.Manager), strings.Join(append(append([]string{}, deps.Installed...), deps.DevInstalled...), " "))
	}
	for _, e := range deps.Errors {
		fmt.Fprintln(out, coloredWarn("dependency install failed:"), e)
	}
	for _, e := range report.Exports {
		fmt.Fprintln(out, coloredDim("index: "+e))
	}
	conflicts := len(report.Conflicts())
	summary := fmt.Sprintf("%d file(s) written", report.Written())
	if conflicts > 0 {
		summary += fmt.Sprintf(", %d skipped", conflicts)
	}
	fmt.Fprintln(out, summary)
}
