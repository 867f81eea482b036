package offload

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ErrUnknownMessage is returned when decoding an envelope with an unrecognized type tag
var ErrUnknownMessage = errors.New("unknown offload message type")

// envelope is the tagged JSON form {type, data} used for protocol tracing
// Buffers and points are binary payload and never serialized
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeCommand serializes a command into its envelope
func EncodeCommand(c Command) ([]byte, error) {
	if c == nil {
		return nil, errors.New("[offload] nil command")
	}
	return encode(c.commandKind(), c)
}

// EncodeReply serializes a reply into its envelope
func EncodeReply(r Reply) ([]byte, error) {
	if r == nil {
		return nil, errors.New("[offload] nil reply")
	}
	return encode(r.replyKind(), r)
}

func encode(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "[offload] failed to encode %s", kind)
	}
	out, err := json.Marshal(envelope{Type: kind, Data: data})
	if err != nil {
		return nil, errors.Wrapf(err, "[offload] failed to encode %s envelope", kind)
	}
	return out, nil
}

// DecodeCommand parses an envelope back into a command value
func DecodeCommand(b []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, errors.Wrap(err, "[offload] invalid envelope")
	}

	var cmd Command
	switch env.Type {
	case "init":
		var c Init
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "requestFrame":
		var c RequestFrame
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "setBoost":
		var c SetBoost
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "setDimensions":
		var c SetDimensions
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "reset":
		cmd = Reset{}
	case "stopAnimation":
		cmd = StopAnimation{}
	case "cleanup":
		cmd = Cleanup{}
	default:
		return nil, errors.Wrapf(ErrUnknownMessage, "[offload] command %q", env.Type)
	}
	return cmd, nil
}

// DecodeReply parses an envelope back into a reply value
func DecodeReply(b []byte) (Reply, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, errors.Wrap(err, "[offload] invalid envelope")
	}

	var reply Reply
	var err error
	switch env.Type {
	case "initialized":
		var r Initialized
		err = decodeData(env, &r)
		reply = r
	case "frameUpdate":
		var r FrameUpdate
		err = decodeData(env, &r)
		reply = r
	case "statsUpdate":
		var r StatsUpdate
		err = decodeData(env, &r)
		reply = r
	default:
		return nil, errors.Wrapf(ErrUnknownMessage, "[offload] reply %q", env.Type)
	}
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func decodeData(env envelope, v any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return errors.Wrapf(err, "[offload] failed to decode %s", env.Type)
	}
	return nil
}

// typeName names a message for logs, falling back to its Go type
func typeName(v any) string {
	switch m := v.(type) {
	case Command:
		return m.commandKind()
	case Reply:
		return m.replyKind()
	}
	return fmt.Sprintf("%T", v)
}
