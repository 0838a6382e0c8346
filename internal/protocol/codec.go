package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcoot/mathlan/internal/model"
)

type envelope struct {
	Type MessageType `json:"type"`
}

// Encode serializes a message as a single JSON object
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.MessageType(), err)
	}
	return data, nil
}

// DecodeClient parses a client to host message. Unknown types and messages
// missing required fields return ErrMalformedMessage or ErrUnknownMessage.
func DecodeClient(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}

	switch env.Type {
	case TypeJoin:
		var m Join
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return nil, fmt.Errorf("%w: join without name", model.ErrMalformedMessage)
		}
		return m, nil
	case TypeRejoin:
		var m Rejoin
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.PlayerID == "" {
			return nil, fmt.Errorf("%w: rejoin without playerId", model.ErrMalformedMessage)
		}
		return m, nil
	case TypeReady:
		var m Ready
		return decodeInto(data, &m)
	case TypeAnswer:
		var m Answer
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.QuestionID == "" {
			return nil, fmt.Errorf("%w: answer without questionId", model.ErrMalformedMessage)
		}
		return m, nil
	case TypeChat:
		var m ChatRequest
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		if strings.TrimSpace(m.Text) == "" {
			return nil, fmt.Errorf("%w: empty chat", model.ErrMalformedMessage)
		}
		return m, nil
	case TypePing:
		var m Ping
		return decodeInto(data, &m)
	case "":
		return nil, fmt.Errorf("%w: missing type", model.ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownMessage, env.Type)
	}
}

// DecodeHost parses a host to client message
func DecodeHost(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}

	switch env.Type {
	case TypeWelcome:
		var m Welcome
		return decodeInto(data, &m)
	case TypeLobby:
		var m Lobby
		return decodeInto(data, &m)
	case TypeCountdown:
		var m Countdown
		return decodeInto(data, &m)
	case TypeQuestion:
		var m Question
		return decodeInto(data, &m)
	case TypeScore:
		var m Score
		return decodeInto(data, &m)
	case TypeResult:
		var m Result
		return decodeInto(data, &m)
	case TypeChat:
		var m Chat
		return decodeInto(data, &m)
	case TypeError:
		var m Error
		return decodeInto(data, &m)
	case TypePong:
		var m Pong
		return decodeInto(data, &m)
	case "":
		return nil, fmt.Errorf("%w: missing type", model.ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownMessage, env.Type)
	}
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}
	return nil
}

// decodeInto unmarshals into a pointer to a message value and returns the value
func decodeInto[T Message](data []byte, m *T) (Message, error) {
	if err := unmarshal(data, m); err != nil {
		return nil, err
	}
	return *m, nil
}
