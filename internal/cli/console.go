package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/events"
	"github.com/mcoot/mathlan/internal/lan"
	"github.com/mcoot/mathlan/internal/model"
)

const consoleHelp = `Commands:
  <number>     answer the current question
  ready        mark yourself ready
  unready      clear your ready flag
  start        start the round (host only)
  lobby        show the lobby
  chat <text>  send a chat line
  ping         measure the round trip to the host
  quit         leave`

// console prints controller events and turns operator input into actions
type console struct {
	ctrl    *lan.Controller
	clock   clock.Clock
	out     *Output
	hosting bool
	// keepAlive keeps the console running after input ends
	keepAlive bool

	question *model.QuestionPayload
	shownAt  time.Time
}

// run returns when ctx is cancelled, the operator quits, input ends without
// keepAlive, or a joined player loses the host
func (c *console) run(ctx context.Context, in io.Reader, sub *events.Subscription) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go readLines(ctx, in, lines)

	input := (<-chan string)(lines)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-sub.C():
			if !ok {
				return nil
			}
			c.observe(event)
			c.out.PrintEvent(event)
			if event.Type == model.EventError && !c.hosting && !c.ctrl.Client().Connected() {
				return model.ErrDisconnected
			}

		case line, ok := <-input:
			if !ok {
				if !c.keepAlive {
					return nil
				}
				input = nil
				continue
			}
			if quit := c.handle(line); quit {
				return nil
			}
		}
	}
}

func readLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func (c *console) observe(event model.Event) {
	switch p := event.Payload.(type) {
	case model.QuestionPayload:
		c.question = &p
		c.shownAt = c.clock.Now()
	case model.ResultPayload:
		c.question = nil
	}
}

// handle executes one input line and reports whether the operator quit
func (c *console) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")

	var err error
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "help", "?":
		c.out.PrintMessage(consoleHelp)
	case "ready":
		err = c.ctrl.SetReady(true)
	case "unready":
		err = c.ctrl.SetReady(false)
	case "start":
		err = c.ctrl.StartGame()
		if startRejected(err) {
			// already published as an error event
			err = nil
		}
	case "lobby":
		var lobby model.LobbyState
		if lobby, err = c.ctrl.Lobby(); err == nil {
			c.out.Print(lobby)
		}
	case "chat", "say":
		err = c.ctrl.SendChat(arg)
	case "ping":
		err = c.ctrl.Ping()
	default:
		value, convErr := strconv.Atoi(cmd)
		if convErr != nil {
			err = fmt.Errorf("unknown command %q, try help", cmd)
			break
		}
		err = c.answer(value)
	}

	if err != nil {
		c.out.PrintError(err)
	}
	return false
}

func (c *console) answer(value int) error {
	if c.question == nil {
		return errors.New("no question to answer yet")
	}
	responseMs := float64(c.clock.Now().Sub(c.shownAt).Milliseconds())
	q := c.question.Question
	c.question = nil
	return c.ctrl.SubmitAnswer(q.ID, value, responseMs)
}

func startRejected(err error) bool {
	return errors.Is(err, model.ErrNoReadyPlayers) ||
		errors.Is(err, model.ErrGameInProgress) ||
		errors.Is(err, model.ErrSessionFinished)
}
