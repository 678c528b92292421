package protocol

// Message kinds carried on the wire. Every message is a single JSON object
// with a "type" field; unknown kinds are ignored by both sides.
const (
	MsgJoin    = "join"
	MsgWelcome = "welcome"
	MsgInput   = "input"
	MsgState   = "state"
)

// JoinMessage is the first message a client sends on a fresh connection.
type JoinMessage struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// WelcomeMessage carries the server-assigned player identifier.
type WelcomeMessage struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
}

// InputKeys holds the four directional flags reported by a client. Missing
// flags decode to false.
type InputKeys struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// InputMessage replaces the pending input for the sending player.
type InputMessage struct {
	Type string    `json:"type"`
	Keys InputKeys `json:"keys"`
}

// Player is the per-player slice of a state snapshot.
type Player struct {
	ID    uint64  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score int     `json:"score"`
}

// Coin is the per-coin slice of a state snapshot.
type Coin struct {
	ID uint64  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// StateMessage is the authoritative snapshot broadcast once per tick. The
// player list is exactly the set of registered connections at snapshot time.
type StateMessage struct {
	Type    string   `json:"type"`
	Players []Player `json:"players"`
	Coins   []Coin   `json:"coins"`
}

// NewJoin builds a join message ready for encoding.
func NewJoin(name string) JoinMessage {
	return JoinMessage{Type: MsgJoin, Name: name}
}

// NewWelcome builds a welcome message for the given player id.
func NewWelcome(id uint64) WelcomeMessage {
	return WelcomeMessage{Type: MsgWelcome, ID: id}
}

// NewInput builds an input message from the current key flags.
func NewInput(keys InputKeys) InputMessage {
	return InputMessage{Type: MsgInput, Keys: keys}
}
