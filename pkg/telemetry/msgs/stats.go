package msgs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Format selects the stats payload encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatProto Format = "proto"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatProto:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown stats format %q", s)
}

// EncodeStats encodes stats in the format.
// Counters in proto format are carried as numbers (float64).
func EncodeStats(s *Stats, format Format) ([]byte, error) {
	if format != FormatProto {
		return json.Marshal(s)
	}
	fields := map[string]*structpb.Value{
		"time":      strValue(s.Time.Format(time.RFC3339Nano)),
		"processed": numValue(float64(s.Processed)),
		"echoed":    numValue(float64(s.Echoed)),
		"erased":    numValue(float64(s.Erased)),
		"dropped":   numValue(float64(s.Dropped)),
		"bytes_out": numValue(float64(s.BytesOut)),
		"baud_rate": numValue(float64(s.BaudRate)),
		"mode":      strValue(s.Mode),
	}
	if s.LastByte != nil {
		fields["last_byte"] = numValue(float64(*s.LastByte))
	}
	return proto.Marshal(&structpb.Struct{Fields: fields})
}

// DecodeStats decodes stats in either format. JSON payloads start with '{'.
func DecodeStats(payload []byte) (*Stats, error) {
	var s Stats
	if len(payload) > 0 && payload[0] == '{' {
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}
	var pb structpb.Struct
	if err := proto.Unmarshal(payload, &pb); err != nil {
		return nil, err
	}
	for key, val := range pb.Fields {
		switch key {
		case "time":
			t, err := time.Parse(time.RFC3339Nano, val.GetStringValue())
			if err != nil {
				return nil, fmt.Errorf("invalid time: %w", err)
			}
			s.Time = t
		case "processed":
			s.Processed = uint64(val.GetNumberValue())
		case "echoed":
			s.Echoed = uint64(val.GetNumberValue())
		case "erased":
			s.Erased = uint64(val.GetNumberValue())
		case "dropped":
			s.Dropped = uint64(val.GetNumberValue())
		case "bytes_out":
			s.BytesOut = uint64(val.GetNumberValue())
		case "baud_rate":
			s.BaudRate = uint32(val.GetNumberValue())
		case "mode":
			s.Mode = val.GetStringValue()
		case "last_byte":
			b := byte(val.GetNumberValue())
			s.LastByte = &b
		}
	}
	return &s, nil
}

func numValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func strValue(v string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: v}}
}

// String formats stats on one line.
func (s *Stats) String() string {
	last := "-"
	if s.LastByte != nil {
		last = fmt.Sprintf("0x%02x", *s.LastByte)
	}
	return fmt.Sprintf("processed=%d echoed=%d erased=%d dropped=%d out=%d baud=%d mode=%s last=%s",
		s.Processed, s.Echoed, s.Erased, s.Dropped, s.BytesOut, s.BaudRate, s.Mode, last)
}
