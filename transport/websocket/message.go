package websocket

import (
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"
	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const (
	actionNewGame = "game:new"
	actionState   = "game:state"
	actionTurn    = "game:turn"
	actionRestart = "game:restart"
	actionMode    = "game:mode"
	actionLeave   = "game:leave"
	actionError   = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Request is the decoded payload of an incoming message. Fields unused by an action are ignored.
type Request struct {
	GameID    string   `mapstructure:"game_id"`
	Mode      string   `mapstructure:"mode"`
	HumanMark string   `mapstructure:"human_mark"`
	Cell      *float64 `mapstructure:"cell"`
}

type ResponsePayload struct {
	Game   *entity.Session `json:"game,omitempty"`
	GameID string          `json:"game_id,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type Response struct {
	Action  string          `json:"action"`
	Payload ResponsePayload `json:"payload"`
}

func decodeRequest(msg *Message) (*Request, error) {
	var req Request

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &req,
		ErrorUnused: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build payload decoder: %w", err)
	}

	if err = decoder.Decode(msg.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return &req, nil
}

// cellIndex - converts a JSON number into a board index. Fractions are rejected, never truncated.
func cellIndex(raw float64) (int, error) {
	if raw != math.Trunc(raw) || raw < math.MinInt32 || raw > math.MaxInt32 {
		return -1, fmt.Errorf("%w: %v", apperror.ErrInvalidCell, raw)
	}
	return int(raw), nil
}
