package protocol

import (
	"bytes"
	"encoding/json"
)

// delimiter separates messages on the stream. JSON string escaping
// guarantees an encoded message never contains it.
const delimiter = '\n'

// Encode marshals a message and appends the line delimiter.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(data, delimiter), nil
}

// Raw is a complete decoded line: the message kind plus the full JSON
// payload for a second, kind-specific unmarshal by the caller.
type Raw struct {
	Type string
	Data []byte
}

type envelope struct {
	Type string `json:"type"`
}

// Decoder reassembles framed messages from a byte stream arriving in
// arbitrary chunk sizes. A partial trailing line is retained between calls.
// The zero value is ready to use.
type Decoder struct {
	buf []byte
}

// Feed appends a chunk and returns every message completed by it. Empty
// lines are skipped and malformed lines are dropped without disturbing the
// rest of the stream.
func (d *Decoder) Feed(chunk []byte) []Raw {
	d.buf = append(d.buf, chunk...)

	var msgs []Raw
	for {
		idx := bytes.IndexByte(d.buf, delimiter)
		if idx < 0 {
			break
		}
		line := bytes.TrimSpace(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil || env.Type == "" {
			continue
		}

		data := make([]byte, len(line))
		copy(data, line)
		msgs = append(msgs, Raw{Type: env.Type, Data: data})
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}
	return msgs
}

// Pending reports how many buffered bytes await a delimiter.
func (d *Decoder) Pending() int {
	return len(d.buf)
}
