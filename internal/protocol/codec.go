package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownCodec is returned by CodecByName.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec encodes server messages and decodes client messages.
type Codec interface {
	Name() string
	// Binary reports whether frames must be sent as binary websocket messages.
	Binary() bool
	Encode(msg ServerMessage) ([]byte, error)
	Decode(data []byte) (ClientMessage, error)
}

// JSONCodec is the default text codec.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msg ServerMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode json: %w", err)
	}
	return msg, msg.Validate()
}

// MsgpackCodec is the compact binary codec.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(msg ServerMessage) ([]byte, error) {
	data, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return data, nil
}

func (MsgpackCodec) Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode msgpack: %w", err)
	}
	return msg, msg.Validate()
}

// Codecs lists every supported codec.
var Codecs = []Codec{JSONCodec{}, MsgpackCodec{}}

// CodecByName resolves a codec from a query parameter. Empty means JSON.
func CodecByName(name string) (Codec, error) {
	if name == "" {
		return JSONCodec{}, nil
	}
	for _, c := range Codecs {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownCodec)
}
