// ABOUTME: The archive subcommand: browse transcripts saved from past sessions
// ABOUTME: Reads the local SQLite archive written by the repl's /save command

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/agent-scope/internal/archive"
)

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse locally archived transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(cmd)
		},
	}
	cmd.AddCommand(archiveListCmd(), archiveShowCmd(), archiveDeleteCmd())
	return cmd
}

func archiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(cmd)
		},
	}
}

func runArchiveList(cmd *cobra.Command) error {
	arc, err := openArchive()
	if err != nil {
		return err
	}
	defer arc.Close()

	entries, err := arc.ListTranscripts(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Archive is empty.")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Printf("%s  ", title)
		gray.Printf("%s  %s  %s  %d messages\n",
			e.ID, e.AgentName, e.ArchivedAt.Local().Format("Jan 2 2006 15:04"), e.Messages)
	}
	return nil
}

func archiveShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := openArchive()
			if err != nil {
				return err
			}
			defer arc.Close()

			entry, msgs, err := arc.GetTranscript(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			title := entry.Title
			if title == "" {
				title = "Untitled"
			}
			color.New(color.FgCyan, color.Bold).Println(title)
			color.New(color.FgHiBlack).Printf("%s  %s  archived %s\n\n",
				entry.AgentName, entry.ServiceURL, entry.ArchivedAt.Local().Format("Jan 2 2006 15:04"))

			printTranscript(msgs)
			return nil
		},
	}
}

func archiveDeleteCmd() *cobra.Command {
	var yesFlag bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := openArchive()
			if err != nil {
				return err
			}
			defer arc.Close()

			entry, _, err := arc.GetTranscript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			title := entry.Title
			if title == "" {
				title = "Untitled"
			}
			if !yesFlag && !confirm(fmt.Sprintf("Delete archived transcript %q?", title)) {
				fmt.Println("Cancelled.")
				return nil
			}
			if err := arc.DeleteTranscript(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func openArchive() (*archive.Archive, error) {
	app, err := newApp()
	if err != nil {
		return nil, err
	}
	arc, err := archive.Open(app.archivePath(), app.logger)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return arc, nil
}
