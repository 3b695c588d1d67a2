// ABOUTME: The chats subcommand: list, rename and delete gateway conversations
// ABOUTME: Lists in date buckets; destructive actions prompt before calling out

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/agent-scope/internal/agentapi"
	"github.com/2389/agent-scope/internal/directory"
	"github.com/2389/agent-scope/internal/discovery"
)

func chatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Browse the gateway's stored conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}
			printBuckets(dir.Buckets(time.Now()))
			return nil
		},
	}
	cmd.AddCommand(chatsRenameCmd(), chatsDeleteCmd())
	return cmd
}

func chatsRenameCmd() *cobra.Command {
	var yesFlag bool

	cmd := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}

			conv, err := dir.Get(args[0])
			if err != nil {
				return err
			}
			if !yesFlag && !confirm(fmt.Sprintf("Rename %q to %q?", conv.DisplayTitle(), args[1])) {
				fmt.Println("Cancelled.")
				return nil
			}

			if err := dir.Rename(cmd.Context(), conv.ID, args[1]); err != nil {
				return err
			}
			fmt.Printf("Renamed %s\n", conv.ID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func chatsDeleteCmd() *cobra.Command {
	var yesFlag bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation from the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}

			conv, err := dir.Get(args[0])
			if err != nil {
				return err
			}
			if !yesFlag && !confirm(fmt.Sprintf("Delete %q? This cannot be undone.", conv.DisplayTitle())) {
				fmt.Println("Cancelled.")
				return nil
			}

			if err := dir.Remove(cmd.Context(), conv.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", conv.ID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// openDirectory wires a gateway client into a refreshed directory service.
func openDirectory(ctx context.Context) (*directory.Service, error) {
	app, err := newApp()
	if err != nil {
		return nil, err
	}

	raw := app.serviceURL()
	if raw == "" {
		return nil, fmt.Errorf("no gateway URL: pass --server or set service_url in %s", app.cfg.Path())
	}
	base, err := discovery.NormalizeBaseURL(raw)
	if err != nil {
		return nil, err
	}

	client := agentapi.New(base, app.authToken(), nil, app.logger)
	dir := directory.New(client, app.logger)
	if err := dir.Refresh(ctx); err != nil {
		return nil, err
	}
	return dir, nil
}

func printBuckets(b directory.Buckets) {
	if b.Empty() {
		fmt.Println("No conversations.")
		return
	}
	printBucket("Today", b.Today)
	printBucket("Yesterday", b.Yesterday)
	printBucket("Previous 7 Days", b.Week)
	printBucket("Older", b.Older)
}

func printBucket(label string, convs []directory.Conversation) {
	if len(convs) == 0 {
		return
	}
	color.New(color.FgCyan, color.Bold).Println(label)
	gray := color.New(color.FgHiBlack)
	for _, c := range convs {
		title := c.DisplayTitle()
		if len(title) > 60 {
			title = strings.TrimSpace(title[:60]) + "…"
		}
		fmt.Printf("  %s  ", title)
		gray.Printf("%s  %s\n", c.ID, c.UpdatedAt.Local().Format("Jan 2 15:04"))
	}
	fmt.Println()
}
