// ABOUTME: The repl subcommand: an interactive streaming chat console
// ABOUTME: Slash commands browse, open, retry, rate, share and archive chats

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2389/agent-scope/internal/agentapi"
	"github.com/2389/agent-scope/internal/archive"
	"github.com/2389/agent-scope/internal/chat"
	"github.com/2389/agent-scope/internal/directory"
	"github.com/2389/agent-scope/internal/discovery"
	"github.com/2389/agent-scope/internal/history"
	"github.com/2389/agent-scope/internal/session"
	"github.com/2389/agent-scope/internal/settings"
	"github.com/2389/agent-scope/internal/stream"
)

const banner = `
                          _
  __ _  __ _  ___ _ __ | |_      ___  ___ ___  _ __   ___
 / _' |/ _' |/ _ \ '_ \| __|____/ __|/ __/ _ \| '_ \ / _ \
| (_| | (_| |  __/ | | | |_|_____\__ \ (_| (_) | |_) |  __/
 \__,_|\__, |\___|_| |_|\__|     |___/\___\___/| .__/ \___|
       |___/                                   |_|
`

// historyWait bounds how long /open blocks on the async history load.
const historyWait = 10 * time.Second

func replCmd() *cobra.Command {
	var ephemeralFlag bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive console: stream exchanges, browse and manage chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			return runRepl(cmd.Context(), app, ephemeralFlag)
		},
	}
	cmd.Flags().BoolVar(&ephemeralFlag, "ephemeral", false, "start with persistence off regardless of settings")
	return cmd
}

type repl struct {
	app      *app
	base     string
	ctl      *session.Controller
	dir      *directory.Service
	streamer *stream.Streamer
}

func runRepl(ctx context.Context, app *app, ephemeral bool) error {
	raw := app.serviceURL()
	if raw == "" {
		return fmt.Errorf("no gateway URL: pass --server or set service_url in %s", app.cfg.Path())
	}
	base, err := discovery.NormalizeBaseURL(raw)
	if err != nil {
		return err
	}

	color.New(color.FgCyan).Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)

	client := agentapi.New(base, app.authToken(), nil, app.logger)
	ctl := session.New(history.New(client, app.logger), client, app.logger)
	dir := directory.New(client, app.logger)
	dir.OnRemoved(ctl.HandleConversationRemoved)

	s := app.cfg.Get()
	if s.MergeStrategy == "append" {
		ctl.SetMergeStrategy(session.MergeAppend)
	}
	ctl.SetPersist(s.PersistChats && !ephemeral)

	r := &repl{
		app:      app,
		base:     base,
		ctl:      ctl,
		dir:      dir,
		streamer: stream.New(base, app.authToken(), app.logger),
	}

	// Settings edits apply live while the repl runs.
	go func() {
		err := app.cfg.Watch(ctx, func(s settings.Settings) {
			ctl.SetPersist(s.PersistChats)
			if s.MergeStrategy == "append" {
				ctl.SetMergeStrategy(session.MergeAppend)
			} else {
				ctl.SetMergeStrategy(session.MergeReplace)
			}
			app.logger.Debug("settings reloaded")
		})
		if err != nil && ctx.Err() == nil {
			app.logger.Warn("settings watch stopped", "error", err)
		}
	}()

	ctl.BeginDiscovery()
	resolver := discovery.NewResolver(nil, app.logger)
	ident, err := resolver.Resolve(ctx, base, app.authToken())
	if err != nil {
		ctl.FailDiscovery(err)
		color.New(color.FgRed).Printf("discovery failed: %v\n", err)
		fmt.Println("The console stays open; /status shows details, /quit exits.")
	} else {
		ctl.CompleteDiscovery(ident, base)
		color.New(color.FgGreen).Print("● ")
		fmt.Printf("%s", ident.Name)
		color.New(color.FgHiBlack).Printf("  v%s  %s\n", ident.Version, base)
	}
	r.drainEvents()

	fmt.Println("Type a message, or /help for commands.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		r.prompt()
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.handleSlash(ctx, line)
			if err != nil {
				color.New(color.FgRed).Printf("error: %v\n", err)
			}
			if quit {
				break
			}
			continue
		}
		r.send(ctx, line)
	}
	return scanner.Err()
}

func (r *repl) prompt() {
	snap := r.ctl.Snapshot()
	label := "new"
	if snap.Ref.IsServer() {
		label = snap.Ref.ID
		if conv, err := r.dir.Get(snap.Ref.ID); err == nil {
			label = conv.DisplayTitle()
		}
		if len(label) > 24 {
			label = strings.TrimSpace(label[:24]) + "…"
		}
	}
	if !snap.Persist {
		label += " (off the record)"
	}
	color.New(color.FgHiBlack).Printf("[%s] ", label)
	color.New(color.FgCyan, color.Bold).Print("› ")
}

func (r *repl) handleSlash(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return true, nil
	case "/help":
		r.printHelp()
		return false, nil
	case "/chats":
		return false, r.cmdChats(ctx)
	case "/open":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /open <id>")
		}
		return false, r.cmdOpen(ctx, args[0])
	case "/new":
		r.ctl.NewChat()
		r.dir.SetOpenConversation("")
		fmt.Println("Started a new conversation.")
		return false, nil
	case "/persist":
		return false, r.cmdPersist(args)
	case "/retry":
		return false, r.cmdRetry(ctx, args)
	case "/like":
		return false, r.cmdFeedback(ctx, args, true, false)
	case "/dislike":
		return false, r.cmdFeedback(ctx, args, false, true)
	case "/share":
		return false, r.cmdShare(args)
	case "/save":
		return false, r.cmdSave(ctx)
	case "/status":
		r.cmdStatus()
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
}

func (r *repl) printHelp() {
	gray := color.New(color.FgHiBlack)
	rows := [][2]string{
		{"/chats", "list the gateway's conversations"},
		{"/open <id>", "open a conversation and load its history"},
		{"/new", "start a fresh conversation"},
		{"/persist [on|off]", "toggle server-side persistence (resets the conversation)"},
		{"/retry [id]", "re-send the user message behind a response"},
		{"/like [id]", "mark a response as liked"},
		{"/dislike [id]", "mark a response as disliked"},
		{"/share [id]", "copy a response to the clipboard"},
		{"/save", "archive the current transcript locally"},
		{"/status", "show session state"},
		{"/quit", "exit"},
	}
	for _, row := range rows {
		fmt.Printf("  %-18s", row[0])
		gray.Println(row[1])
	}
}

func (r *repl) cmdChats(ctx context.Context) error {
	if err := r.dir.Refresh(ctx); err != nil {
		return err
	}
	printBuckets(r.dir.Buckets(time.Now()))
	return nil
}

func (r *repl) cmdOpen(ctx context.Context, id string) error {
	resolved := id
	if conv, err := r.dir.Get(id); err == nil {
		resolved = conv.ID
	} else if matches := prefixMatches(r.dir.List(), id); len(matches) == 1 {
		resolved = matches[0].ID
	} else if len(matches) > 1 {
		return fmt.Errorf("%q matches %d conversations, be more specific", id, len(matches))
	}

	r.ctl.SelectConversation(ctx, chat.ServerRef(resolved))
	r.dir.SetOpenConversation(resolved)

	snap := r.ctl.Snapshot()
	if snap.State == session.StateConnected && snap.Persist {
		r.waitHistory(resolved)
	}

	if msgs := r.ctl.Messages(); len(msgs) > 0 {
		printTranscript(msgs)
	} else {
		fmt.Println("(no messages)")
	}
	return nil
}

func prefixMatches(convs []directory.Conversation, prefix string) []directory.Conversation {
	var out []directory.Conversation
	for _, c := range convs {
		if strings.HasPrefix(c.ID, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// waitHistory blocks until the load for the given conversation settles,
// skimming unrelated session events along the way.
func (r *repl) waitHistory(id string) {
	timer := time.NewTimer(historyWait)
	defer timer.Stop()
	for {
		select {
		case ev := <-r.ctl.Events():
			if ev.Ref.ID != id {
				continue
			}
			switch ev.Kind {
			case session.EventHistoryApplied:
				return
			case session.EventHistoryFailed:
				color.New(color.FgYellow).Printf("history load failed: %v\n", ev.Err)
				return
			}
		case <-timer.C:
			color.New(color.FgYellow).Println("history load timed out")
			return
		}
	}
}

// drainEvents empties the session event buffer without rendering.
func (r *repl) drainEvents() {
	for {
		select {
		case <-r.ctl.Events():
		default:
			return
		}
	}
}

func (r *repl) cmdPersist(args []string) error {
	target := !r.ctl.Persist()
	if len(args) == 1 {
		switch args[0] {
		case "on":
			target = true
		case "off":
			target = false
		default:
			return fmt.Errorf("usage: /persist [on|off]")
		}
	} else if len(args) > 1 {
		return fmt.Errorf("usage: /persist [on|off]")
	}

	changed := target != r.ctl.Persist()
	r.ctl.SetPersist(target)
	if err := r.app.cfg.SetPersistChats(target); err != nil {
		r.app.logger.Warn("saving persist setting", "error", err)
	}
	if changed {
		r.dir.SetOpenConversation("")
	}

	switch {
	case !changed:
		fmt.Printf("Persistence already %s.\n", onOff(target))
	case target:
		fmt.Println("Persistence on. Started a fresh conversation; exchanges are stored by the gateway.")
	default:
		fmt.Println("Persistence off. Started a fresh local-only conversation.")
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (r *repl) cmdRetry(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("expected at most one message id")
	}
	msgs := r.ctl.Messages()
	if len(msgs) == 0 {
		return fmt.Errorf("nothing to retry")
	}

	var src chat.Message
	if len(args) == 1 {
		m, err := r.ctl.RetrySend(args[0])
		if err != nil {
			return err
		}
		src = m
	} else if last := msgs[len(msgs)-1]; last.Role == chat.RoleUser {
		// A trailing user message never got a response; that line
		// itself is the retry target.
		src = last
	} else {
		m, err := r.ctl.RetrySend(last.ID)
		if err != nil {
			return err
		}
		src = m
	}
	preview := src.Content
	if len(preview) > 60 {
		preview = strings.TrimSpace(preview[:60]) + "…"
	}
	color.New(color.FgHiBlack).Printf("(retrying: %s)\n", preview)
	r.send(ctx, src.Content)
	return nil
}

func (r *repl) cmdFeedback(ctx context.Context, args []string, liked, disliked bool) error {
	id, err := r.targetMessageID(args)
	if err != nil {
		return err
	}
	if err := r.ctl.Feedback(ctx, id, liked, disliked); err != nil {
		return err
	}
	if liked {
		fmt.Println("Marked liked.")
	} else {
		fmt.Println("Marked disliked.")
	}
	return nil
}

func (r *repl) cmdShare(args []string) error {
	id, err := r.targetMessageID(args)
	if err != nil {
		return err
	}
	content, err := r.ctl.Share(id)
	if err != nil {
		return err
	}
	if err := copyToClipboard(content); err != nil {
		return err
	}
	fmt.Printf("Copied %d bytes to the clipboard.\n", len(content))
	return nil
}

// targetMessageID picks the message a feedback or share command acts on:
// an explicit id argument, or the newest assistant message.
func (r *repl) targetMessageID(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most one message id")
	}
	msgs := r.ctl.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleAssistant && msgs[i].ID != "" {
			return msgs[i].ID, nil
		}
	}
	return "", fmt.Errorf("no assistant message to target")
}

func (r *repl) cmdSave(ctx context.Context) error {
	snap := r.ctl.Snapshot()
	msgs := r.ctl.Messages()
	if len(msgs) == 0 {
		return fmt.Errorf("nothing to save")
	}

	title := ""
	if snap.Ref.IsServer() {
		if conv, err := r.dir.Get(snap.Ref.ID); err == nil {
			title = conv.Title
		}
	}
	if title == "" {
		for _, m := range msgs {
			if m.Role == chat.RoleUser && m.Content != "" {
				title = firstLine(m.Content, 60)
				break
			}
		}
	}
	agentName := ""
	if snap.Identity != nil {
		agentName = snap.Identity.Name
	}
	serviceURL := snap.BaseURL
	if serviceURL == "" {
		serviceURL = r.base
	}

	arc, err := archive.Open(r.app.archivePath(), r.app.logger)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer arc.Close()

	entry := archive.Entry{
		ID:         snap.Ref.ID,
		Title:      title,
		AgentName:  agentName,
		ServiceURL: serviceURL,
		ArchivedAt: time.Now(),
	}
	if err := arc.SaveTranscript(ctx, entry, msgs); err != nil {
		return err
	}
	fmt.Printf("Saved %d messages to %s\n", len(msgs), r.app.archivePath())
	return nil
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > max {
		s = strings.TrimSpace(s[:max]) + "…"
	}
	return s
}

func (r *repl) cmdStatus() {
	snap := r.ctl.Snapshot()
	gray := color.New(color.FgHiBlack)

	fmt.Print("state:    ")
	switch snap.State {
	case session.StateConnected:
		color.New(color.FgGreen).Println(snap.State.String())
	case session.StateConnecting:
		color.New(color.FgYellow).Println(snap.State.String())
	case session.StateError:
		color.New(color.FgRed).Println(snap.State.String())
	default:
		gray.Println(snap.State.String())
	}

	if snap.Identity != nil {
		fmt.Printf("agent:    %s", snap.Identity.Name)
		gray.Printf("  v%s\n", snap.Identity.Version)
	}
	fmt.Printf("chat:     %s\n", snap.Ref)
	fmt.Printf("persist:  %s\n", onOff(snap.Persist))
	fmt.Printf("messages: %d\n", len(r.ctl.Messages()))
	if snap.LastErr != nil {
		color.New(color.FgRed).Printf("last err: %v\n", snap.LastErr)
	}
}

func (r *repl) send(ctx context.Context, text string) {
	snap := r.ctl.Snapshot()
	chatID := ""
	if snap.Ref.IsServer() {
		chatID = snap.Ref.ID
	}

	r.ctl.AppendLive(chat.Message{
		ID:        uuid.New().String(),
		Role:      chat.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})

	events, err := r.streamer.Send(ctx, text, stream.SendOptions{ChatID: chatID, Persist: snap.Persist})
	if err != nil {
		color.New(color.FgRed).Printf("send failed: %v\n", err)
		return
	}

	color.New(color.FgGreen, color.Bold).Print("agent › ")
	res, err := stream.Collect(events, renderStreamEvent)
	fmt.Println()
	keep := err == nil
	switch {
	case err == nil:
	case errors.Is(err, stream.ErrTruncated):
		color.New(color.FgYellow).Println("(stream ended early, partial response kept)")
		keep = true
	default:
		color.New(color.FgRed).Printf("stream error: %v\n", err)
	}

	if keep && (res.Message.Content != "" || len(res.Message.ToolSteps) > 0) {
		r.ctl.AppendLive(res.Message)
	}
	// The gateway may have announced the conversation id before the
	// stream failed; the chat exists server-side either way.
	if res.ChatID != "" && !snap.Ref.IsServer() {
		r.ctl.AdoptServerConversation(res.ChatID)
		r.dir.SetOpenConversation(res.ChatID)
		color.New(color.FgHiBlack).Printf("(conversation persisted as %s)\n", res.ChatID)
	}
}

func renderStreamEvent(ev stream.Event) {
	switch ev.Kind {
	case stream.EventThinking:
		color.New(color.FgHiBlack).Print(ev.Text)
	case stream.EventText:
		fmt.Print(ev.Text)
	case stream.EventToolUse:
		fmt.Println()
		color.New(color.FgYellow).Printf("  ⚙ %s", ev.ToolName)
		if ev.Input != "" && len(ev.Input) <= 80 {
			color.New(color.FgHiBlack).Printf(" %s", ev.Input)
		}
		fmt.Println()
	case stream.EventToolResult:
		name := ev.ToolName
		if name == "" {
			name = ev.ToolCallID
		}
		status := ev.Status
		if status == "" {
			status = "complete"
		}
		color.New(color.FgHiBlack).Printf("  ✔ %s %s\n", name, status)
	}
}

func printTranscript(msgs []chat.Message) {
	userC := color.New(color.FgCyan, color.Bold)
	agentC := color.New(color.FgGreen, color.Bold)
	gray := color.New(color.FgHiBlack)

	for _, m := range msgs {
		switch m.Role {
		case chat.RoleUser:
			userC.Print("you   › ")
		case chat.RoleAssistant:
			agentC.Print("agent › ")
		default:
			gray.Printf("%-5s › ", m.Role)
		}
		fmt.Println(m.Content)

		for _, step := range m.ToolSteps {
			gray.Printf("        ⚙ %s %s\n", step.Name, step.Status)
		}
		for _, src := range m.KnowledgeSources {
			gray.Printf("        ▸ %s  %s\n", src.Title, src.URL)
		}
		if m.Liked {
			gray.Println("        (liked)")
		}
		if m.Disliked {
			gray.Println("        (disliked)")
		}
	}
}
