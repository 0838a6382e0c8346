package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/mathlan/internal/host"
	"github.com/mcoot/mathlan/internal/model"
)

func newEventsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <address>",
		Short: "Stream a host's events",
		Long: `Connect to a host's /events endpoint and stream its events in real time,
without taking a seat in the room. The address is host or host:port.

Events include:
  - host-started: The room opened
  - lobby: The roster changed
  - countdown: A round is about to begin
  - question: The next question is live
  - score: An answer was scored
  - result: The round ended
  - chat: A chat line was relayed
  - error: The host rejected an operation
  - host-stopped: The room closed

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hostAddr, port, err := ParseAddress(args[0], host.DefaultPort)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			url := "http://" + model.JoinHostPort(hostAddr, port) + "/events"
			return streamEvents(ctx, url, e.out)
		},
	}

	return cmd
}

// SSEEvent is one raw event read from the stream
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(ctx context.Context, url string, out *Output) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := readSSE(resp.Body, out); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			out.PrintMessage("Disconnected")
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}
	out.PrintMessage("Disconnected")
	return nil
}

// readSSE parses an event stream until it ends
func readSSE(r io.Reader, out *Output) error {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		} else if line == "" {
			// End of event
			if currentEvent != "" {
				printSSEEvent(out, currentEvent, strings.Join(dataLines, "\n"))
			}
			currentEvent = ""
			dataLines = nil
		}
	}
	return scanner.Err()
}

func printSSEEvent(out *Output, event, data string) {
	now := time.Now()

	if out.format == "json" {
		out.printJSONLine(SSEEvent{Time: now, Event: event, Data: data})
		return
	}

	timestamp := now.Format(time.DateTime)
	// Truncate data if it's too long for display
	displayData := data
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Fprintf(out.w, "[%s] %s: %s\n", timestamp, event, displayData)
}

