package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/mathlan/internal/dependencies/mocks"
	"github.com/mcoot/mathlan/internal/factory"
	"github.com/mcoot/mathlan/internal/lan"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/practice"
	"github.com/mcoot/mathlan/internal/services/questions"
	"github.com/mcoot/mathlan/internal/storage/memory"
	"github.com/mcoot/mathlan/internal/testutil"
)

const waitTimeout = 2 * time.Second

// syncBuffer is a bytes.Buffer safe to read while a command writes to it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"bare host", "192.168.1.20", "192.168.1.20", 9898, false},
		{"host and port", "192.168.1.20:7000", "192.168.1.20", 7000, false},
		{"hostname", "classroom.local:9000", "classroom.local", 9000, false},
		{"bracketed ipv6", "[::1]:9000", "::1", 9000, false},
		{"bad port", "10.0.0.1:http", "", 0, true},
		{"port out of range", "10.0.0.1:70000", "", 0, true},
		{"missing host", ":9000", "", 0, true},
		{"empty", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, port, err := ParseAddress(tt.addr, 9898)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, h)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestOutput_EventText(t *testing.T) {
	players := []model.PlayerState{
		{ID: "p-aaaaaa", Name: "Alice", Score: 138, Correct: 1},
		{ID: "p-bbbbbb", Name: "Bob", Score: -2, Wrong: 1},
	}

	tests := []struct {
		name  string
		event model.Event
		want  string
	}{
		{
			name:  "question",
			event: model.Event{Type: model.EventQuestion, Payload: model.QuestionPayload{Question: model.Question{A: 7, B: 8}, Index: 2, Total: 20}},
			want:  "Question 2/20: 7 x 8 = ?\n",
		},
		{
			name:  "score",
			event: model.Event{Type: model.EventScore, Payload: model.ScorePayload{Players: players, Latest: &model.ScoreUpdate{PlayerID: "p-aaaaaa", Delta: 138, Correct: true}}},
			want:  "Alice: correct (+138, total 138)\n",
		},
		{
			name:  "score without latest",
			event: model.Event{Type: model.EventScore, Payload: model.ScorePayload{Players: players}},
			want:  "",
		},
		{
			name:  "result",
			event: model.Event{Type: model.EventResult, Payload: model.ResultPayload{WinnerID: "p-aaaaaa", Players: players}},
			want:  "Round over. Winner: Alice\n  1. Alice 138 pts (1 correct, 0 wrong)\n  2. Bob -2 pts (0 correct, 1 wrong)\n",
		},
		{
			name:  "chat",
			event: model.Event{Type: model.EventChat, Payload: model.ChatPayload{PlayerID: "p-bbbbbb", Text: "gg"}},
			want:  "<p-bbbbbb> gg\n",
		},
		{
			name:  "error",
			event: model.Event{Type: model.EventError, Payload: model.ErrorPayload{Message: "Room is full"}},
			want:  "Error: Room is full\n",
		},
		{
			name:  "joined",
			event: model.Event{Type: model.EventJoined, Payload: model.JoinedPayload{PlayerID: "p-aaaaaa", RoomCode: "ROOM42"}},
			want:  "Joined room ROOM42 as p-aaaaaa\n",
		},
		{
			name:  "no hosts",
			event: model.Event{Type: model.EventHosts, Payload: model.HostsPayload{}},
			want:  "No hosts found\n",
		},
		{
			name:  "host stopped",
			event: model.Event{Type: model.EventHostStopped},
			want:  "Host stopped\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewOutput(&buf, "text").PrintEvent(tt.event)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, "json")

	out.PrintEvent(model.Event{Type: model.EventChat, Payload: model.ChatPayload{PlayerID: "host-local", Text: "hi", At: 5}})
	out.PrintError(errors.New("boom"))
	out.PrintMessage("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"type":"chat","timestamp":"0001-01-01T00:00:00Z","payload":{"playerId":"host-local","text":"hi","at":5}}`, lines[0])
	assert.JSONEq(t, `{"error":{"message":"boom"}}`, lines[1])
	assert.JSONEq(t, `{"message":"done"}`, lines[2])
}

func TestReadSSE(t *testing.T) {
	stream := "event: connected\ndata: {\"status\":\"connected\"}\n\n" +
		": keepalive\n\n" +
		"event: chat\ndata: {\"type\":\"chat\"}\n\n"

	var buf bytes.Buffer
	require.NoError(t, readSSE(strings.NewReader(stream), NewOutput(&buf, "text")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `connected: {"status":"connected"}`)
	assert.Contains(t, lines[1], `chat: {"type":"chat"}`)
}

// expectedAnswers replays a drill answering everything correctly
func expectedAnswers(t *testing.T, seed uint32, count int) []int {
	cfg := practice.DefaultConfig()
	cfg.QuestionCount = count
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	drill, err := practice.New(cfg, nil, clk, questions.NewLCG(seed))
	require.NoError(t, err)

	var answers []int
	for !drill.Done() {
		q, err := drill.Next()
		require.NoError(t, err)
		answers = append(answers, q.Answer)
		_, _, err = drill.Answer(q.Answer, 0)
		require.NoError(t, err)
	}
	return answers
}

func TestPracticeRun(t *testing.T) {
	answers := expectedAnswers(t, 7, 3)
	input := "not a number\n"
	for _, a := range answers {
		input += fmt.Sprintf("%d\n", a)
	}

	store := memory.New()
	var out bytes.Buffer
	p := &practiceRun{
		store:   store,
		profile: "kid",
		clock:   mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		out:     NewOutput(&out, "text"),
		logger:  testutil.NopLogger(),
	}
	cfg := practice.DefaultConfig()
	cfg.QuestionCount = 3
	require.NoError(t, p.run(context.Background(), cfg, questions.NewLCG(7), strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "Question 1/3:")
	assert.Contains(t, text, "Question 3/3:")
	assert.Contains(t, text, "Enter a number")
	assert.Equal(t, 3, strings.Count(text, "Correct! +"))
	assert.Contains(t, text, "Correct: 3  Wrong: 0  Accuracy: 100%")
	assert.Contains(t, text, "Best streak: 3")

	facts, err := store.GetWeakFacts(context.Background(), "kid")
	require.NoError(t, err)
	assert.NotEmpty(t, facts)
}

func TestPracticeRun_HintsAfterWrongAnswers(t *testing.T) {
	tests := []struct {
		name      string
		tier      model.DifficultyTier
		wantHints int
	}{
		{"medium shows hints", model.TierMedium, 2},
		{"hard hides hints", model.TierHard, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := &practiceRun{
				store:  memory.New(),
				clock:  mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
				out:    NewOutput(&out, "text"),
				logger: testutil.NopLogger(),
			}
			cfg := practice.DefaultConfig()
			cfg.Difficulty = model.DefaultDifficulty(tt.tier)
			cfg.QuestionCount = 2
			require.NoError(t, p.run(context.Background(), cfg, questions.NewLCG(3), strings.NewReader("-1\n-1\n")))

			assert.Equal(t, tt.wantHints, strings.Count(out.String(), "Hint: "))
			if tt.wantHints > 0 {
				assert.Contains(t, out.String(), " groups of ")
			}
			assert.Contains(t, out.String(), "Correct: 0  Wrong: 2")
		})
	}
}

func TestPracticeRun_PromptPool(t *testing.T) {
	cfg := practice.DefaultConfig()
	cfg.QuestionCount = 3
	prompts := questions.BuildSeededPromptStream(21, 3, questions.PoolSequence, cfg.Difficulty)
	input := ""
	for _, prompt := range prompts {
		input += fmt.Sprintf("%d\n", prompt.Answer)
	}

	store := memory.New()
	var out bytes.Buffer
	p := &practiceRun{
		store:   store,
		profile: "kid",
		clock:   mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		out:     NewOutput(&out, "text"),
		logger:  testutil.NopLogger(),
	}
	require.NoError(t, p.runPrompts(cfg, questions.PoolSequence, 21, strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "Question 1/3: "+prompts[0].Text)
	assert.Equal(t, 3, strings.Count(text, "Correct! +"))
	assert.Contains(t, text, "Correct: 3  Wrong: 0  Accuracy: 100%")

	_, err := store.GetWeakFacts(context.Background(), "kid")
	assert.ErrorIs(t, err, model.ErrWeakFactsNotFound)
}

func TestPracticeCommand_RejectsUnknownPool(t *testing.T) {
	root := NewRootCmd(io.Discard)
	root.SetArgs([]string{"practice", "--pool", "geometry"})
	root.SetIn(strings.NewReader(""))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	assert.ErrorIs(t, root.Execute(), model.ErrInvalidConfig)
}

func TestPracticeCommand_InputEndsEarly(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd(io.Discard)
	root.SetArgs([]string{"practice", "--questions", "5"})
	root.SetIn(strings.NewReader(""))
	root.SetOut(&out)
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Question 1/5:")
	assert.Contains(t, out.String(), "Correct: 0  Wrong: 0  Accuracy: 0%")
}

func TestRootRejectsUnknownOutput(t *testing.T) {
	root := NewRootCmd(io.Discard)
	root.SetArgs([]string{"practice", "-o", "yaml"})
	root.SetIn(strings.NewReader(""))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	assert.Error(t, root.Execute())
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	root := NewRootCmd(io.Discard)
	root.SetArgs([]string{"practice", "--difficulty", "impossible"})
	root.SetIn(strings.NewReader(""))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	assert.ErrorIs(t, root.Execute(), model.ErrInvalidConfig)
}

func TestConsole_HostOperator(t *testing.T) {
	cfg := factory.TestConfig()
	cfg.Host.Play = true
	app := factory.NewTestApp(cfg)
	app.MockRandom.QueueString("CLIRM1")
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	sub := app.Controller.Events(256)
	_, err := app.Controller.StartHost(context.Background(), lan.HostOptions{})
	require.NoError(t, err)

	var out syncBuffer
	c := &console{
		ctrl:      app.Controller,
		clock:     app.MockClock,
		out:       NewOutput(&out, "text"),
		hosting:   true,
		keepAlive: true,
	}
	inR, inW := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- c.run(context.Background(), inR, sub) }()

	send := func(line string) {
		_, err := io.WriteString(inW, line+"\n")
		require.NoError(t, err)
	}
	waitOutput := func(s string) {
		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), s)
		}, waitTimeout, 10*time.Millisecond, "output never contained %q:\n%s", s, out.String())
	}

	waitOutput("Room CLIRM1 is open")

	send("unready")
	waitOutput("(host-local) 0 pts\n")

	send("start")
	waitOutput("Error: At least one ready player is required.")
	assert.NotContains(t, out.String(), "Error: at least one ready player")

	send("chat hello")
	waitOutput("<host-local> hello")

	send("42")
	waitOutput("Error: no question to answer yet")

	send("dance")
	waitOutput(`unknown command "dance"`)

	send("ready")
	send("start")
	waitOutput("Get ready!")
	app.MockClock.Advance(app.Config.Host.Countdown)
	waitOutput("Question 1/")

	send("quit")
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("console did not quit")
	}
	_ = inW.Close()
}
