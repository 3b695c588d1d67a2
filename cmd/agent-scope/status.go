// ABOUTME: The status subcommand: settings summary, token inspection, gateway ping
// ABOUTME: Warns on expired bearer tokens before any request is attempted

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/agent-scope/internal/discovery"
	"github.com/2389/agent-scope/internal/token"
)

func statusCmd() *cobra.Command {
	var noPingFlag bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, token health and gateway reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			s := app.cfg.Get()
			gray := color.New(color.FgHiBlack)

			fmt.Println("Settings")
			gray.Printf("  file:           %s\n", app.cfg.Path())
			gray.Printf("  service_url:    %s\n", orDash(app.serviceURL()))
			gray.Printf("  persist_chats:  %v\n", s.PersistChats)
			gray.Printf("  merge_strategy: %s\n", s.MergeStrategy)
			gray.Printf("  archive:        %s\n", app.archivePath())
			fmt.Println()

			printTokenStatus(app.authToken())

			if noPingFlag {
				return nil
			}
			return pingGateway(cmd.Context(), app)
		},
	}
	cmd.Flags().BoolVar(&noPingFlag, "no-ping", false, "skip the gateway reachability probe")
	return cmd
}

func printTokenStatus(raw string) {
	fmt.Println("Token")
	gray := color.New(color.FgHiBlack)

	if raw == "" {
		gray.Println("  none configured")
		fmt.Println()
		return
	}

	info, err := token.Inspect(raw)
	if errors.Is(err, token.ErrNotJWT) {
		gray.Println("  opaque (not a JWT)")
		fmt.Println()
		return
	}
	if err != nil {
		color.Yellow("  unreadable: %v", err)
		fmt.Println()
		return
	}

	if info.Subject != "" {
		gray.Printf("  subject:  %s\n", info.Subject)
	}
	if info.Issuer != "" {
		gray.Printf("  issuer:   %s\n", info.Issuer)
	}
	if info.ExpiresAt.IsZero() {
		gray.Println("  expires:  never")
	} else if info.Expired(time.Now()) {
		color.New(color.FgRed, color.Bold).Printf("  expires:  %s (EXPIRED)\n", info.ExpiresAt.Local().Format(time.RFC3339))
	} else {
		gray.Printf("  expires:  %s\n", info.ExpiresAt.Local().Format(time.RFC3339))
	}
	fmt.Println()
}

func pingGateway(ctx context.Context, app *app) error {
	fmt.Println("Gateway")

	raw := app.serviceURL()
	if raw == "" {
		color.New(color.FgHiBlack).Println("  not configured")
		return nil
	}
	base, err := discovery.NormalizeBaseURL(raw)
	if err != nil {
		return err
	}

	resolver := discovery.NewResolver(nil, app.logger)
	ident, err := resolver.Resolve(ctx, base, app.authToken())
	if err != nil {
		color.New(color.FgRed).Printf("  unreachable: %v\n", err)
		return nil
	}

	green := color.New(color.FgGreen)
	green.Print("  ● ")
	fmt.Printf("%s", ident.Name)
	color.New(color.FgHiBlack).Printf("  v%s  %s\n", ident.Version, base)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
