package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"aster/internal/app"
	"aster/internal/config"
)

func newInitCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var style string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default aster.json in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			p, err := svc.Init(style, force)
			if err != nil {
				return err
			}
			return print(cmd.OutOrStdout(), *jsonOutput, p,
				fmt.Sprintf("%s wrote aster.json (style %s, components in %s)", coloredSuccess("✔"), p.Style, p.Paths.Components))
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "styling system: nativewind|stylesheet")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing aster.json")
	return cmd
}

func newInfoCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "info",
		Aliases: []string{"doctor"},
		Short:   "Show project configuration and health",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			info, err := svc.Info(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, info, "")
			}
			printInfo(out, info)
			return nil
		},
	}
}

func printInfo(out io.Writer, info app.Info) {
	fmt.Fprintf(out, "%s %s\n", coloredNotice("config:"), info.ConfigPath)
	fmt.Fprintf(out, "%s %s\n", coloredNotice("cache:"), info.CacheDir)
	fmt.Fprintf(out, "%s %s\n", coloredNotice("package manager:"), info.PackageManager)
	if info.Project != nil {
		p := info.Project
		fmt.Fprintf(out, "%s %s  %s %s  %s %t\n",
			coloredNotice("framework:"), p.Framework,
			coloredNotice("style:"), p.Style,
			coloredNotice("typescript:"), p.TypeScript)
		for _, d := range info.Dirs {
			state := coloredDim("not created")
			if d.Exists {
				state = coloredSuccess("exists")
			}
			fmt.Fprintf(out, "  %-10s %s %s\n", d.Role, d.Path, state)
		}
		fmt.Fprintf(out, "%s %d\n", coloredNotice("installed:"), len(info.Installed))
		for _, r := range info.Registries {
			fmt.Fprintf(out, "  %s %s\n", r.Name, r.URL)
		}
	}
	for _, f := range info.Doctor.Findings {
		level := coloredDim(f.Level)
		switch f.Level {
		case "error":
			level = coloredError(f.Level)
		case "warn":
			level = coloredWarn(f.Level)
		}
		fmt.Fprintf(out, "%s %s %s\n", level, f.Code, f.Message)
	}
	if info.Doctor.Healthy {
		fmt.Fprintln(out, coloredSuccess("healthy"))
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Inspect the global configuration"}
	path := func() string {
		if flags.configPath != "" {
			return flags.configPath
		}
		return config.DefaultConfigPath()
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path())
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return print(cmd.OutOrStdout(), true, cfg, "")
			}
			blob, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(blob)
			return err
		},
	}
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return print(cmd.OutOrStdout(), flags.jsonOutput, map[string]string{"path": path()}, path())
		},
	}
	configCmd.AddCommand(showCmd, pathCmd)
	return configCmd
}
