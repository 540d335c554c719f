package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"aster/internal/app"
	"aster/internal/fsutil"
	"aster/internal/source"
)

func newListCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var installed bool
	var typ string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List available or installed components",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if installed {
				entries, err := svc.InstalledEntries()
				if err != nil {
					return err
				}
				if *jsonOutput {
					return print(out, true, entries, "")
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "no components installed")
					return nil
				}
				fmt.Fprint(out, installedTable(entries))
				return nil
			}
			p := newProgress(*jsonOutput)
			p.Start("fetching registry index")
			items, err := svc.List(cmd.Context(), typ)
			p.Stop()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(out, true, items, "")
			}
			printIndex(out, items)
			fmt.Fprintln(out, coloredDim("run `aster add <name>` to add a component"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&installed, "installed", false, "list components recorded in aster.lock")
	cmd.Flags().StringVar(&typ, "type", "", "filter by type: ui|lib|hook|config")
	return cmd
}

func newSearchCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "search [query]",
		Aliases: []string{"find"},
		Short:   "Search the official registry",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			items, err := svc.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, items, "")
			}
			if len(items) == 0 {
				fmt.Fprintf(out, "no components match %q\n", query)
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(out, "  %s %s\n", coloredSuccess(fmt.Sprintf("%-20s", item.Name)), coloredDim(item.Description))
			}
			return nil
		},
	}
}

var typeHeadings = []struct {
	typ     string
	heading string
}{
	{"ui", "UI components"},
	{"lib", "Libraries"},
	{"hook", "Hooks"},
	{"config", "Config bundles"},
}

// printIndex groups index items by type.
func printIndex(out io.Writer, items []source.IndexItem) {
	grouped := map[string][]source.IndexItem{}
	for _, item := range items {
		t := source.ShortType(item.Type)
		grouped[t] = append(grouped[t], item)
	}
	for _, h := range typeHeadings {
		group := grouped[h.typ]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintln(out, coloredNotice(h.heading+":"))
		for _, item := range group {
			fmt.Fprintf(out, "  %s - %s\n", item.Name, coloredDim(item.Description))
		}
		fmt.Fprintln(out)
	}
}

func installedTable(entries []app.InstalledEntry) string {
	buff := &bytes.Buffer{}
	table := tablewriter.NewWriter(buff)
	table.SetBorder(false)
	table.SetHeader([]string{"Name", "Type", "Version", "Source", "Installed", "Files"})
	for _, e := range entries {
		installedAt := "-"
		if e.InstalledAt != nil {
			installedAt = e.InstalledAt.Local().Format(time.DateTime)
		}
		source := e.Source
		if e.Untracked {
			source = "(untracked)"
		}
		table.Append([]string{
			e.Name,
			strings.TrimSuffix(string(e.Section), "s"),
			e.Version,
			source,
			installedAt,
			fmt.Sprint(len(e.Files)),
		})
	}
	table.Render()
	return buff.String()
}

func newViewCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "Show a component's metadata and files without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, res, "")
			}
			fmt.Fprintf(out, "%s %s\n", coloredNotice(res.Name), coloredDim("("+source.ShortType(res.Type)+")"))
			if res.Description != "" {
				fmt.Fprintln(out, res.Description)
			}
			if res.Version != "" {
				fmt.Fprintln(out, "version:", res.Version)
			}
			if len(res.RegistryDependencies) > 0 {
				fmt.Fprintln(out, "requires:", strings.Join(res.RegistryDependencies, ", "))
			}
			if deps := append(append([]string{}, res.Dependencies...), res.DevDependencies...); len(deps) > 0 {
				fmt.Fprintln(out, "packages:", strings.Join(deps, ", "))
			}
			for _, f := range res.Files {
				fmt.Fprintf(out, "  %s %s\n", f.Path, coloredDim(fmt.Sprintf("%d lines", fsutil.CountLines(f.Content))))
			}
			return nil
		},
	}
}
