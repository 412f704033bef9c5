package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events <code>",
		Short: "Stream a room's live events",
		Long: `Connect to the room's event stream and print events as they happen.

Events include:
  - roster-changed: Players joined or left
  - game-started: A game (or rematch) has started
  - new-round: A round opened with a new entity
  - round-result: A round was won, or nobody found it
  - game-over: Final scores and winners
  - rematch-status: Rematch votes so far
  - new-chat-message: A chat message was sent
  - room-closed: The room no longer exists

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Disconnect after this many events (0 streams until the room closes)")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func streamEvents(ctx context.Context, w io.Writer, code string, limit int) error {
	jsonOutput := cfg.Output == "json"

	body, err := client.Stream(ctx, roomPath(code)+"/events")
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if !jsonOutput {
		fmt.Fprintf(w, "Connected to room %s\n", strings.ToUpper(code))
	}

	// Parse SSE stream
	scanner := bufio.NewScanner(body)
	var currentEvent string
	var dataLines []string
	seen := 0

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event; keepalive comments carry no name
			if currentEvent == "" || currentEvent == "connected" {
				currentEvent = ""
				dataLines = nil
				continue
			}
			printEvent(w, currentEvent, strings.Join(dataLines, "\n"), jsonOutput)
			closed := currentEvent == "room-closed"
			currentEvent = ""
			dataLines = nil

			seen++
			if closed || (limit > 0 && seen >= limit) {
				return nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			if !jsonOutput {
				fmt.Fprintln(w, "\nDisconnected")
			}
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

func printEvent(w io.Writer, event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := SSEEvent{Time: now, Event: event, Data: json.RawMessage(data)}
		if !json.Valid(evt.Data) {
			evt.Data, _ = json.Marshal(data)
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Fprintln(w, string(jsonData))
		return
	}

	timestamp := now.Format(time.DateTime)
	// Truncate data if it's too long for display
	displayData := data
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, event, displayData)
}
