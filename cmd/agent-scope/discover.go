// ABOUTME: The discover subcommand: probe a gateway for its agent identity
// ABOUTME: Prints the resolved identity and optionally saves the URL to settings

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/agent-scope/internal/discovery"
)

func discoverCmd() *cobra.Command {
	var saveFlag bool

	cmd := &cobra.Command{
		Use:   "discover [url]",
		Short: "Probe a gateway and print its agent identity",
		Long: "Normalizes the given URL (loopback hosts get http, everything else https),\n" +
			"probes the well-known config locations in order and prints the first\n" +
			"identity that parses. Without an argument the configured service URL is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw := app.serviceURL()
			if len(args) == 1 {
				raw = args[0]
			}
			if raw == "" {
				return fmt.Errorf("no gateway URL: pass one or set service_url in %s", app.cfg.Path())
			}

			base, err := discovery.NormalizeBaseURL(raw)
			if err != nil {
				return err
			}

			resolver := discovery.NewResolver(nil, app.logger)
			ident, err := resolver.Resolve(cmd.Context(), base, app.authToken())
			if err != nil {
				return err
			}

			printIdentity(ident, base)

			if saveFlag {
				if err := app.cfg.SetServiceURL(base); err != nil {
					return fmt.Errorf("saving service URL: %w", err)
				}
				fmt.Printf("\nSaved %s to %s\n", base, app.cfg.Path())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&saveFlag, "save", false, "write the normalized URL to the settings file")
	return cmd
}

func printIdentity(ident *discovery.Identity, base string) {
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	cyan.Println(ident.Name)
	gray.Printf("  url:      %s\n", base)
	if ident.ID != "" {
		gray.Printf("  id:       %s\n", ident.ID)
	}
	gray.Printf("  version:  %s\n", ident.Version)
	if len(ident.Capabilities) > 0 {
		gray.Printf("  caps:     %s\n", strings.Join(ident.Capabilities, ", "))
	}
	if len(ident.Tools) > 0 {
		gray.Println("  tools:")
		for _, t := range ident.Tools {
			if t.Description != "" {
				gray.Printf("    %-20s %s\n", t.Name, t.Description)
			} else {
				gray.Printf("    %s\n", t.Name)
			}
		}
	}
}
