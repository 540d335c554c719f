package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"aster/internal/app"
	"aster/internal/installer"
)

func newUpdateCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var all, force bool
	cmd := &cobra.Command{
		Use:   "update [ids...]",
		Short: "Update installed components from their sources",
		Long: heredoc.Doc(`
			Compare installed components with their sources and reinstall the ones
			whose content changed. Without --force the outdated components are
			offered for selection. Updating overwrites local modifications.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := newProgress(*jsonOutput)
			p.Start("checking for updates")
			checks, err := svc.CheckUpdates(cmd.Context(), args, all)
			p.Stop()
			if err != nil {
				return err
			}

			var outdated []app.UpdateCheck
			for _, c := range checks {
				switch {
				case c.Error != "":
					if !*jsonOutput {
						fmt.Fprintln(out, coloredWarn("skipped:"), c.Name+":", c.Error)
					}
				case c.HasUpdate:
					outdated = append(outdated, c)
				}
			}
			if len(outdated) == 0 {
				return print(out, *jsonOutput, map[string]any{"checks": checks, "updated": []string{}}, coloredSuccess("✔")+" everything is up to date")
			}

			selected := outdated
			if !force {
				names := make([]string, len(outdated))
				for i, c := range outdated {
					names[i] = c.Name
				}
				picked, err := prompt.MultiSelect("Select components to update", names, true)
				if err != nil {
					if errors.Is(err, errNotInteractive) {
						return fmt.Errorf("CLI_UPDATE: %d update(s) available (%s); pass --force to apply", len(names), strings.Join(names, ", "))
					}
					return err
				}
				selected = pick(outdated, picked)
			}
			if len(selected) == 0 {
				return print(out, *jsonOutput, map[string]any{"checks": checks, "updated": []string{}}, "nothing selected")
			}

			report, err := svc.Update(cmd.Context(), selected)
			if *jsonOutput {
				updated := make([]string, len(selected))
				for i, c := range selected {
					updated[i] = c.Name
				}
				if perr := print(out, true, map[string]any{"checks": checks, "updated": updated, "report": report}, ""); perr != nil {
					return perr
				}
				return err
			}
			if err != nil {
				return err
			}
			for _, c := range selected {
				fmt.Fprintf(out, "%s %s %s\n", coloredSuccess("✔"), c.Name, coloredDim(versionLabel(c)))
			}
			printInstallReport(out, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "check every installed component")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "apply all updates without prompting")
	return cmd
}

func pick(checks []app.UpdateCheck, names []string) []app.UpdateCheck {
	want := map[string]struct{}{}
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []app.UpdateCheck
	for _, c := range checks {
		if _, ok := want[c.Name]; ok {
			out = append(out, c)
		}
	}
	return out
}

func versionLabel(c app.UpdateCheck) string {
	switch {
	case c.RemoteVersion == "":
		return ""
	case c.LocalVersion == "" || c.VersionHint == "":
		return "(" + c.RemoteVersion + ")"
	default:
		return fmt.Sprintf("(%s -> %s)", c.LocalVersion, c.RemoteVersion)
	}
}

func newDiffCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [id]",
		Short: "Show differences between installed components and their sources",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				outdated, err := svc.Outdated(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return print(out, true, outdated, "")
				}
				if len(outdated) == 0 {
					fmt.Fprintln(out, "no differences")
					return nil
				}
				for _, c := range outdated {
					if c.Error != "" {
						fmt.Fprintf(out, "%s %s: %s\n", coloredWarn("?"), c.Name, c.Error)
						continue
					}
					fmt.Fprintf(out, "%s %s %s\n", coloredWarn("●"), c.Name, coloredDim(versionLabel(c)))
				}
				fmt.Fprintln(out, coloredDim("run `aster diff <id>` for details"))
				return nil
			}
			check, err := svc.Diff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(out, true, check, "")
			}
			return printDiff(out, check.Files)
		},
	}
	return cmd
}

func printDiff(out io.Writer, diffs []installer.FileDiff) error {
	if !installer.HasChanges(diffs) {
		fmt.Fprintln(out, "no differences")
		return nil
	}
	for _, d := range diffs {
		switch d.Status {
		case installer.DiffSame:
			continue
		case installer.DiffMissing:
			fmt.Fprintf(out, "%s %s (not installed locally, %d lines)\n", coloredWarn("missing"), d.Path, d.RemoteLines)
		default:
			text, err := d.Unified(3)
			if err != nil {
				return err
			}
			for _, line := range strings.SplitAfter(text, "\n") {
				switch {
				case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
					fmt.Fprint(out, coloredNotice(line))
				case strings.HasPrefix(line, "+"):
					fmt.Fprint(out, coloredSuccess(line))
				case strings.HasPrefix(line, "-"):
					fmt.Fprint(out, coloredError(line))
				default:
					fmt.Fprint(out, line)
				}
			}
		}
	}
	return nil
}
