package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GUIDPrefix 参与者前缀（12 字节），同一参与者的所有实体共享
type GUIDPrefix [12]byte

// NewGUIDPrefix 基于随机 UUID 生成前缀
func NewGUIDPrefix() GUIDPrefix {
	id := uuid.New()
	var p GUIDPrefix
	copy(p[:], id[:12])
	return p
}

// String 返回十六进制表示
func (p GUIDPrefix) String() string {
	return hex.EncodeToString(p[:])
}

// IsZero 检查是否为零值
func (p GUIDPrefix) IsZero() bool {
	return p == GUIDPrefix{}
}

// EntityID 参与者内实体标识：高 24 位为序号，低 8 位为实体类型字节
type EntityID uint32

// 实体类型字节
const (
	entityKindParticipant byte = 0xc1
	entityKindPublisher   byte = 0x08
	entityKindSubscriber  byte = 0x09
	entityKindTopic       byte = 0x0a
	entityKindWriter      byte = 0x02
	entityKindReader      byte = 0x07
)

// EntityIDParticipant 参与者自身的实体标识
const EntityIDParticipant EntityID = 0x000001c1

// NewEntityID 由序号和实体类型构造实体标识
func NewEntityID(counter uint32, kind EntityKind) EntityID {
	return EntityID(counter<<8 | uint32(kind.idByte()))
}

// Kind 返回实体标识中编码的实体类型
func (id EntityID) Kind() EntityKind {
	switch byte(id) {
	case entityKindParticipant:
		return KindParticipant
	case entityKindPublisher:
		return KindPublisher
	case entityKindSubscriber:
		return KindSubscriber
	case entityKindTopic:
		return KindTopic
	case entityKindWriter:
		return KindDataWriter
	case entityKindReader:
		return KindDataReader
	default:
		return KindUnknown
	}
}

// GUID 全局唯一实体标识
type GUID struct {
	Prefix GUIDPrefix
	Entity EntityID
}

// GUIDUnknown 未知 GUID
var GUIDUnknown = GUID{}

// IsZero 检查是否为零值
func (g GUID) IsZero() bool {
	return g == GUIDUnknown
}

// Participant 返回该实体所属参与者的 GUID
func (g GUID) Participant() GUID {
	return GUID{Prefix: g.Prefix, Entity: EntityIDParticipant}
}

// Bytes 返回 16 字节编码
func (g GUID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, g.Prefix[:])
	binary.BigEndian.PutUint32(b[12:], uint32(g.Entity))
	return b
}

// GUIDFromBytes 从 16 字节编码解析 GUID
func GUIDFromBytes(b []byte) (GUID, error) {
	if len(b) != 16 {
		return GUIDUnknown, fmt.Errorf("%w: guid must be 16 bytes, got %d", ErrBadParameter, len(b))
	}
	var g GUID
	copy(g.Prefix[:], b[:12])
	g.Entity = EntityID(binary.BigEndian.Uint32(b[12:]))
	return g, nil
}

// String 返回 prefix:entity 形式的表示
func (g GUID) String() string {
	return fmt.Sprintf("%s:%08x", g.Prefix, uint32(g.Entity))
}
