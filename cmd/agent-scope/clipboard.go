// ABOUTME: Terminal clipboard copy via the OSC 52 escape sequence
// ABOUTME: Works over SSH and inside tmux with allow-passthrough on

package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// copyToClipboard writes text to the terminal clipboard using OSC 52. The
// sequence goes to the controlling tty so it survives piped stdout.
func copyToClipboard(text string) error {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("opening tty: %w", err)
	}
	defer tty.Close()

	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	osc52 := fmt.Sprintf("\x1b]52;c;%s\x07", encoded)

	// Detect tmux: TMUX env var (local tmux), or TERM prefix
	// (forwarded through SSH from a local tmux session).
	inTmux := os.Getenv("TMUX") != "" ||
		strings.HasPrefix(os.Getenv("TERM"), "tmux") ||
		strings.HasPrefix(os.Getenv("TERM"), "screen")

	if inTmux {
		// tmux DCS passthrough: escapes are doubled inside the DCS
		// wrapper. Uses BEL as OSC terminator to avoid double-escaping
		// ST. Requires tmux allow-passthrough on.
		fmt.Fprintf(tty, "\x1bPtmux;\x1b%s\x1b\\", osc52)
	}

	// Direct OSC 52: works without tmux, or with tmux
	// set-clipboard on/external (tmux intercepts and forwards).
	if _, err := tty.WriteString(osc52); err != nil {
		return fmt.Errorf("writing escape sequence: %w", err)
	}
	return nil
}
