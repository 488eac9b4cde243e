package presenter

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Op names the presentation operations the renderer understands. Delivery
// is fire-and-forget; the renderer never acknowledges.
type Op string

const (
	OpNames           Op = "names"
	OpMatchScene      Op = "match-scene"
	OpFightCards      Op = "fight-cards"
	OpJudges          Op = "judges"
	OpRSL             Op = "rsl"
	OpWinnerRed       Op = "winner-red"
	OpWinnerBlue      Op = "winner-blue"
	OpMatchQueue      Op = "match-queue"
	OpSwitchScene     Op = "switch-scene"
	OpTimer           Op = "timer"
	OpBackgroundColor Op = "background-color"
	OpNameColors      Op = "name-colors"
	OpStatus          Op = "status"
)

// Command is one named presentation operation with a JSON payload.
type Command struct {
	Op      Op              `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

// NewCommand wraps a payload value into a Command. Payload types are all
// local structs; a marshal failure is a programming error and degrades to
// an empty payload rather than a dropped update.
func NewCommand(op Op, payload any) Command {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("op", string(op)).Msg("failed to marshal command payload")
		data = []byte("{}")
	}
	return Command{Op: op, Payload: data}
}

// Renderer consumes presentation commands. Implementations must not fail
// the caller: delivery problems are logged and swallowed.
type Renderer interface {
	Render(cmd Command)
}

// Multi fans one command out to several transports.
type Multi []Renderer

func (m Multi) Render(cmd Command) {
	for _, r := range m {
		r.Render(cmd)
	}
}
