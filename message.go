package omf

import (
	"fmt"
)

// Version is the OMF specification version sent in the omfversion
// header of every message.
const Version = "1.0"

// Wire header keys. These are protocol constants; changing them breaks
// the ingestion endpoint.
const (
	headerMessageType   = "messagetype"
	headerMessageFormat = "messageformat"
	headerCompression   = "compression"
	headerAction        = "action"
	headerVersion       = "omfversion"
)

// MessageType identifies the logical payload category of a message.
// All types post to the same endpoint; the messagetype header is the
// only wire-level distinction.
type MessageType uint8

const (
	// MessageTypeData carries time-series values, asset records, or
	// link records.
	MessageTypeData MessageType = iota
	// MessageTypeContainer declares containers binding stream IDs to
	// previously registered types.
	MessageTypeContainer
	// MessageTypeType registers type definitions referenced by later
	// container and data messages.
	MessageTypeType
)

// String returns the wire value of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeData:
		return "Data"
	case MessageTypeContainer:
		return "Container"
	case MessageTypeType:
		return "Type"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseMessageType parses a message type from its wire value.
func ParseMessageType(s string) (MessageType, error) {
	switch s {
	case "Data":
		return MessageTypeData, nil
	case "Container":
		return MessageTypeContainer, nil
	case "Type":
		return MessageTypeType, nil
	default:
		return 0, fmt.Errorf("omf: unknown message type: %q", s)
	}
}

// MessageFormat identifies the body serialization format.
// JSON is the only format defined by OMF v1.
type MessageFormat uint8

const (
	// FormatJSON indicates a UTF-8 JSON array body.
	FormatJSON MessageFormat = iota
)

// String returns the wire value of the message format.
func (f MessageFormat) String() string {
	switch f {
	case FormatJSON:
		return "JSON"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// Compression identifies the body compression applied to a message.
type Compression uint8

const (
	// CompressionNone indicates an uncompressed body.
	CompressionNone Compression = iota
	// CompressionGZip indicates a gzip-compressed body.
	CompressionGZip
)

// String returns the wire value of the compression kind.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionGZip:
		return "GZip"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression kind from its wire value.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "None":
		return CompressionNone, nil
	case "GZip":
		return CompressionGZip, nil
	default:
		return 0, fmt.Errorf("omf: unknown compression: %q", s)
	}
}

// Action is the semantic intent header of a message. It is sent
// verbatim and not validated against the payload shape.
type Action uint8

const (
	// ActionCreate creates the entities in the payload.
	ActionCreate Action = iota
	// ActionUpdate updates previously created entities.
	ActionUpdate
	// ActionDelete removes previously created entities.
	ActionDelete
)

// String returns the wire value of the action.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "Create"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAction parses an action from its wire value.
func ParseAction(s string) (Action, error) {
	switch s {
	case "Create":
		return ActionCreate, nil
	case "Update":
		return ActionUpdate, nil
	case "Delete":
		return ActionDelete, nil
	default:
		return 0, fmt.Errorf("omf: unknown action: %q", s)
	}
}

// Message is a single outbound OMF unit: enumerated header fields plus
// a raw body. Header values are always derived from the enumerated
// kinds and rendered to wire headers only at the HTTP boundary.
//
// A Message is constructed per outbound call and discarded after the
// response is read. It is not safe for concurrent use.
type Message struct {
	Type        MessageType
	Format      MessageFormat
	Compression Compression
	Action      Action
	Body        []byte
}

// NewMessage returns a message of the given type with default headers:
// JSON format, Create action, no compression.
func NewMessage(t MessageType, body []byte) *Message {
	return &Message{
		Type:        t,
		Format:      FormatJSON,
		Compression: CompressionNone,
		Action:      ActionCreate,
		Body:        body,
	}
}

// Headers renders the message metadata as wire headers.
func (m *Message) Headers() map[string]string {
	return map[string]string{
		headerMessageType:   m.Type.String(),
		headerMessageFormat: m.Format.String(),
		headerCompression:   m.Compression.String(),
		headerAction:        m.Action.String(),
		headerVersion:       Version,
	}
}

// Compress replaces the body with its compressed form and records the
// compression kind. Only gzip is supported; any other kind returns
// ErrUnsupportedCompression and leaves the message unchanged. The body
// and compression field change together or not at all.
func (m *Message) Compress(kind Compression) error {
	if kind != CompressionGZip {
		return fmt.Errorf("%w: %s", ErrUnsupportedCompression, kind)
	}
	compressed, err := gzipCompress(m.Body)
	if err != nil {
		return err
	}
	m.Body = compressed
	m.Compression = CompressionGZip
	return nil
}

// Decompress is the inverse of Compress, driven by the message's
// compression field. It is a no-op for an uncompressed message and
// returns ErrUnsupportedCompression for any kind it does not know.
func (m *Message) Decompress() error {
	switch m.Compression {
	case CompressionNone:
		return nil
	case CompressionGZip:
		body, err := gzipDecompress(m.Body)
		if err != nil {
			return err
		}
		m.Body = body
		m.Compression = CompressionNone
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCompression, m.Compression)
	}
}
