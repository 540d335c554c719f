package main

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

func newRegistryCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:     "registry",
		Aliases: []string{"registries"},
		Short:   "Manage namespace registries in aster.json",
	}

	var headers []string
	addCmd := &cobra.Command{
		Use:   "add <@namespace> <url>",
		Short: "Add a namespace registry",
		Long: heredoc.Doc(`
			Register a namespace so that "aster add @namespace/name" can fetch from it.
			The url may contain {name} and {style} placeholders; without {name} the
			component name is appended as a path segment. Header values may
			reference environment variables as ${VAR}.
		`),
		Example: heredoc.Doc(`
			$ aster registry add @acme https://registry.acme.dev/r/{style}/{name}.json
			$ aster registry add @private https://r.example.com --header "Authorization=Bearer ${REGISTRY_TOKEN}"
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			view, err := svc.RegistryAdd(args[0], args[1], headers)
			if err != nil {
				return err
			}
			return print(cmd.OutOrStdout(), *jsonOutput, view, fmt.Sprintf("added registry %s -> %s", view.Name, view.URL))
		},
	}
	addCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header as Name=value (repeatable)")

	removeCmd := &cobra.Command{
		Use:     "remove <@namespace>",
		Aliases: []string{"rm"},
		Short:   "Remove a namespace registry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if err := svc.RegistryRemove(args[0]); err != nil {
				return err
			}
			return print(cmd.OutOrStdout(), *jsonOutput, map[string]string{"removed": args[0]}, "removed registry "+args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List namespace registries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			regs := svc.RegistryList()
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, regs, "")
			}
			if len(regs) == 0 {
				fmt.Fprintln(out, "no registries configured")
				return nil
			}
			for _, r := range regs {
				line := fmt.Sprintf("- %s %s", r.Name, r.URL)
				if len(r.Headers) > 0 {
					line += coloredDim(" headers=" + strings.Join(r.Headers, ","))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	registryCmd.AddCommand(addCmd, removeCmd, listCmd)
	return registryCmd
}
