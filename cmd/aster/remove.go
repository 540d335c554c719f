package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRemoveCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove [ids...]",
		Aliases: []string{"rm", "uninstall"},
		Short:   "Remove installed components",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			names := args
			if len(names) == 0 {
				installed, err := svc.Installed()
				if err != nil {
					return err
				}
				if len(installed) == 0 {
					return print(out, *jsonOutput, []string{}, "no components installed")
				}
				names, err = prompt.MultiSelect("Select components to remove", installed, false)
				if err != nil {
					if errors.Is(err, errNotInteractive) {
						return fmt.Errorf("CLI_REMOVE: name the components to remove")
					}
					return err
				}
				if len(names) == 0 {
					return print(out, *jsonOutput, []string{}, "nothing selected")
				}
			}
			if !yes {
				ok, err := prompt.Confirm("Remove " + strings.Join(names, ", ") + "?")
				if err != nil {
					if errors.Is(err, errNotInteractive) {
						return fmt.Errorf("CLI_REMOVE: confirmation required; pass --yes")
					}
					return err
				}
				if !ok {
					return print(out, *jsonOutput, []string{}, "cancelled")
				}
			}
			results, err := svc.Remove(cmd.Context(), names)
			if *jsonOutput {
				if perr := print(out, true, results, ""); perr != nil {
					return perr
				}
				return err
			}
			for _, r := range results {
				if !r.Found {
					fmt.Fprintln(out, coloredWarn("not installed:"), r.Name)
					continue
				}
				fmt.Fprintf(out, "%s removed %s %s\n", coloredSuccess("✔"), r.Name, coloredDim("("+strings.Join(r.Removed, ", ")+")"))
				for _, m := range r.Missing {
					fmt.Fprintln(out, coloredDim("  already gone: "+m))
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
