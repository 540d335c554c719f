package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"aster/internal/app"
)

func newCacheCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	cacheCmd := &cobra.Command{Use: "cache", Short: "Inspect and prune the resource cache"}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache location, size and entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			st, err := svc.CacheStatus()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, st, "")
			}
			fmt.Fprintf(out, "%s %s\n", coloredNotice("dir:"), st.Dir)
			fmt.Fprintf(out, "%s %t  %s %s\n", coloredNotice("enabled:"), st.Enabled, coloredNotice("ttl:"), st.TTL)
			fmt.Fprintf(out, "%s %d (%s)\n", coloredNotice("entries:"), st.Count, humanSize(st.Size))
			if len(st.Entries) > 0 {
				fmt.Fprint(out, cacheTable(st.Entries))
			}
			return nil
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			n, err := svc.CacheClean()
			if err != nil {
				return err
			}
			return print(cmd.OutOrStdout(), *jsonOutput, map[string]int{"removed": n}, fmt.Sprintf("removed %d expired entries", n))
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			n, err := svc.CacheClear()
			if err != nil {
				return err
			}
			return print(cmd.OutOrStdout(), *jsonOutput, map[string]int{"removed": n}, fmt.Sprintf("removed %d entries", n))
		},
	}

	cacheCmd.AddCommand(statusCmd, cleanCmd, clearCmd)
	return cacheCmd
}

func cacheTable(entries []app.CacheEntryView) string {
	buff := &bytes.Buffer{}
	table := tablewriter.NewWriter(buff)
	table.SetBorder(false)
	table.SetHeader([]string{"Name", "Source", "Cached", "State"})
	for _, e := range entries {
		state := "fresh"
		if e.Expired {
			state = "expired"
		}
		table.Append([]string{e.Name, e.Source, e.CachedAt.Local().Format(time.DateTime), state})
	}
	table.Render()
	return buff.String()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
