package durability

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-dds/pkg/types"
)

// ErrCorruptRecord 记录无法解码
var ErrCorruptRecord = errors.New("corrupt durability record")

const (
	fieldWriter   protowire.Number = 1
	fieldKind     protowire.Number = 2
	fieldKey      protowire.Number = 3
	fieldPayload  protowire.Number = 4
	fieldSource   protowire.Number = 5
	fieldSequence protowire.Number = 6
	fieldCookie   protowire.Number = 7
)

// Record 持久化的样本记录
type Record struct {
	Writer          types.GUID
	Kind            types.ChangeKind
	Key             string
	Payload         json.RawMessage
	SourceTimestamp time.Time
	Sequence        uint64
	Cookie          types.Cookie
}

// FromMessage 把写端消息转换为记录，负载编码为 JSON
func FromMessage(msg types.DataMessage) (Record, error) {
	rec := Record{
		Writer:          msg.Writer,
		Kind:            msg.Kind,
		Key:             msg.Key,
		SourceTimestamp: msg.SourceTimestamp,
		Sequence:        msg.Sequence,
		Cookie:          msg.Cookie,
	}
	if msg.Payload != nil {
		raw, ok := msg.Payload.(json.RawMessage)
		if !ok {
			b, err := json.Marshal(msg.Payload)
			if err != nil {
				return Record{}, fmt.Errorf("encode payload: %w", err)
			}
			raw = b
		}
		rec.Payload = raw
	}
	return rec, nil
}

// Message 还原为写端消息，负载为 json.RawMessage
func (r Record) Message() types.DataMessage {
	msg := types.DataMessage{
		Writer:          r.Writer,
		Kind:            r.Kind,
		Key:             r.Key,
		SourceTimestamp: r.SourceTimestamp,
		Sequence:        r.Sequence,
		Cookie:          r.Cookie,
	}
	if r.Payload != nil {
		msg.Payload = r.Payload
	}
	return msg
}

// Instance 返回记录的实例句柄
func (r Record) Instance() types.InstanceHandle {
	return types.KeyHandle(r.Key)
}

// Marshal 编码记录
func (r Record) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldWriter, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Writer.Bytes())
	if r.Kind != types.ChangeAlive {
		b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Kind))
	}
	if r.Key != "" {
		b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
		b = protowire.AppendString(b, r.Key)
	}
	if len(r.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Payload)
	}
	if !r.SourceTimestamp.IsZero() {
		b = protowire.AppendTag(b, fieldSource, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(r.SourceTimestamp.UnixNano()))
	}
	b = protowire.AppendTag(b, fieldSequence, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Sequence)
	if len(r.Cookie) > 0 {
		b = protowire.AppendTag(b, fieldCookie, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Cookie)
	}
	return b
}

// Unmarshal 解码记录，未知字段被跳过
func Unmarshal(b []byte) (Record, error) {
	var r Record
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldWriter && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: writer: %v", ErrCorruptRecord, protowire.ParseError(n))
			}
			g, err := types.GUIDFromBytes(v)
			if err != nil {
				return Record{}, fmt.Errorf("%w: writer: %v", ErrCorruptRecord, err)
			}
			r.Writer = g
			b = b[n:]
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: kind: %v", ErrCorruptRecord, protowire.ParseError(n))
			}
			r.Kind = types.ChangeKind(v)
			b = b[n:]
		case num == fieldKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: key: %v", ErrCorruptRecord, protowire.ParseError(n))
			}
			r.Key = v
			b = b[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: payload: %v", ErrCorruptRecord, protowire.ParseError(n))
			}
			r.Payload = append(json.RawMessage(nil), v...)
			b = b[n:]
		case num == fieldSource && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: source: %v", ErrCorruptRecord, protowire.ParseError(n))
			}
			r.SourceTimestamp = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
			b = b[n:]
		case num == fieldSequence && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: sequence: %v", ErrCorruptRecord, protowire.ParseError(n))
			}
			r.Sequence = v
			b = b[n:]
		case num == fieldCookie && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: cookie: %v", ErrCorruptRecord, protowire.ParseError(n))
			}
			r.Cookie = types.NewCookie(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: field %d: %v", ErrCorruptRecord, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return r, nil
}
