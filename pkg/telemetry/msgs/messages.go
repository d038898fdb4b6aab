// Package msgs defines telemetry and control messages exchanged with a link.
package msgs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/robotalks/uartecho/pkg/uart"
)

// Command ops.
const (
	OpStats   = "stats"
	OpSetBaud = "set-baud"
	OpSetMode = "set-mode"
)

// ErrUnknownCommand is replied for an unknown op.
var ErrUnknownCommand = errors.New("unknown command")

// Meta describes a running link. It is published retained.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Stats is the telemetry of a link.
type Stats struct {
	Time      time.Time `json:"time"`
	Processed uint64    `json:"processed"`
	Echoed    uint64    `json:"echoed"`
	Erased    uint64    `json:"erased"`
	Dropped   uint64    `json:"dropped"`
	BytesOut  uint64    `json:"bytes_out"`
	BaudRate  uint32    `json:"baud_rate"`
	Mode      string    `json:"mode"`
	LastByte  *byte     `json:"last_byte,omitempty"`
}

// StatsFrom converts link counters.
func StatsFrom(s uart.Stats, t time.Time) *Stats {
	return &Stats{
		Time:      t.UTC(),
		Processed: s.Processed,
		Echoed:    s.Echoed,
		Erased:    s.Erased,
		Dropped:   s.Dropped,
		BytesOut:  s.BytesOut,
		BaudRate:  s.BaudRate,
		Mode:      s.Mode.String(),
		LastByte:  s.LastByte,
	}
}

// Command is a remote request to a link.
type Command struct {
	Seq      uint32 `json:"seq"`
	Op       string `json:"op"`
	BaudRate uint32 `json:"baud_rate,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// Reply answers a Command with the same Seq.
type Reply struct {
	Seq   uint32 `json:"seq"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Stats *Stats `json:"stats,omitempty"`
}

// ReplyErr creates a failed reply.
func ReplyErr(seq uint32, err error) *Reply {
	return &Reply{Seq: seq, Error: err.Error()}
}

// Err returns the error carried by the reply.
func (r *Reply) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return errors.New("command failed")
	}
	return errors.New(r.Error)
}

// Encode encodes any message as JSON.
func Encode(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeCommand decodes a JSON Command.
func DecodeCommand(payload []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// DecodeReply decodes a JSON Reply.
func DecodeReply(payload []byte) (*Reply, error) {
	var r Reply
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeMeta decodes a JSON Meta.
func DecodeMeta(payload []byte) (*Meta, error) {
	var m Meta
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
