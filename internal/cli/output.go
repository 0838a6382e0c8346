package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcoot/mathlan/internal/lan"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/weakfacts"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		o.printJSONLine(map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		})
	} else {
		fmt.Fprintf(o.w, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSONLine(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintEvent outputs one core event. JSON output is one event per line.
func (o *Output) PrintEvent(event model.Event) {
	if o.format == "json" {
		o.printJSONLine(event)
		return
	}
	o.printEventText(event)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printJSONLine(data any) {
	_ = json.NewEncoder(o.w).Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case lan.HostStarted:
		o.printHostStarted(v)
	case []model.DiscoveredHost:
		o.printHosts(v)
	case model.LobbyState:
		o.printLobby(v)
	case PracticeSummary:
		o.printPracticeSummary(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// PracticeSummary is printed at the end of a practice drill
type PracticeSummary struct {
	Stats   model.RoundStats `json:"stats"`
	Weakest []weakfacts.Fact `json:"weakest,omitempty"`
}

func (o *Output) printHostStarted(h lan.HostStarted) {
	fmt.Fprintf(o.w, "Hosting room %s on %s\n", h.RoomCode, model.JoinHostPort(h.HostIP, h.Port))
}

func (o *Output) printHosts(hosts []model.DiscoveredHost) {
	if len(hosts) == 0 {
		fmt.Fprintln(o.w, "No hosts found")
		return
	}
	fmt.Fprintf(o.w, "Hosts (%d):\n", len(hosts))
	for _, h := range hosts {
		fmt.Fprintf(o.w, "  %-8s %-16s %-9s %-21s max %d\n",
			h.RoomCode, h.HostName, h.Mode, h.Address(), h.MaxPlayers)
	}
}

func (o *Output) printLobby(l model.LobbyState) {
	state := "waiting"
	if l.Started {
		state = "started"
	}
	fmt.Fprintf(o.w, "Room %s (%s) - %s\n", l.Room.RoomCode, l.Room.HostName, state)
	for _, p := range l.Players {
		var flags []string
		if p.Ready {
			flags = append(flags, "ready")
		}
		if !p.Connected {
			flags = append(flags, "away")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintf(o.w, "  - %s (%s) %d pts%s\n", p.Name, p.ID, p.Score, suffix)
	}
}

func (o *Output) printPracticeSummary(s PracticeSummary) {
	st := s.Stats
	fmt.Fprintf(o.w, "Score: %d\n", st.Score)
	fmt.Fprintf(o.w, "Correct: %d  Wrong: %d  Accuracy: %.0f%%\n", st.Correct, st.Wrong, st.Accuracy)
	fmt.Fprintf(o.w, "Average response: %.0fms\n", st.AverageResponseMs)
	fmt.Fprintf(o.w, "Best streak: %d\n", st.BestStreak)
	if len(s.Weakest) > 0 {
		fmt.Fprintln(o.w, "Needs practice:")
		for _, f := range s.Weakest {
			fmt.Fprintf(o.w, "  %s (%d/%d correct, %.0fms)\n",
				f.Key, f.Stats.Correct, f.Stats.Attempts, f.Stats.AverageMs)
		}
	}
}

func (o *Output) printEventText(event model.Event) {
	switch p := event.Payload.(type) {
	case model.HostsPayload:
		o.printHosts(p.Hosts)
	case model.HostStartedPayload:
		fmt.Fprintf(o.w, "Room %s is open on %s\n", p.Lobby.Room.RoomCode, p.Lobby.Room.Address())
	case model.LobbyPayload:
		o.printLobby(p.Lobby)
	case model.CountdownPayload:
		fmt.Fprintf(o.w, "Get ready! First question at %s\n", time.UnixMilli(p.StartsAt).Format(time.TimeOnly))
	case model.QuestionPayload:
		fmt.Fprintf(o.w, "Question %d/%d: %d x %d = ?\n", p.Index, p.Total, p.Question.A, p.Question.B)
	case model.ScorePayload:
		if p.Latest == nil {
			return
		}
		mark := "wrong"
		if p.Latest.Correct {
			mark = "correct"
		}
		fmt.Fprintf(o.w, "%s: %s (%+d, total %d)\n",
			playerName(p.Players, p.Latest.PlayerID), mark, p.Latest.Delta, playerScore(p.Players, p.Latest.PlayerID))
	case model.ResultPayload:
		winner := "nobody"
		if p.WinnerID != "" {
			winner = playerName(p.Players, p.WinnerID)
		}
		fmt.Fprintf(o.w, "Round over. Winner: %s\n", winner)
		for i, pl := range p.Players {
			fmt.Fprintf(o.w, "  %d. %s %d pts (%d correct, %d wrong)\n", i+1, pl.Name, pl.Score, pl.Correct, pl.Wrong)
		}
	case model.ChatPayload:
		fmt.Fprintf(o.w, "<%s> %s\n", p.PlayerID, p.Text)
	case model.ErrorPayload:
		fmt.Fprintf(o.w, "Error: %s\n", p.Message)
	case model.JoinedPayload:
		fmt.Fprintf(o.w, "Joined room %s as %s\n", p.RoomCode, p.PlayerID)
	case model.PongPayload:
		fmt.Fprintf(o.w, "Pong: %s\n", p.RTT)
	default:
		if event.Type == model.EventHostStopped {
			fmt.Fprintln(o.w, "Host stopped")
			return
		}
		fmt.Fprintf(o.w, "%s\n", event.Type)
	}
}

func playerName(players []model.PlayerState, id model.PlayerID) string {
	for _, p := range players {
		if p.ID == id {
			return p.Name
		}
	}
	return string(id)
}

func playerScore(players []model.PlayerState, id model.PlayerID) int {
	for _, p := range players {
		if p.ID == id {
			return p.Score
		}
	}
	return 0
}
