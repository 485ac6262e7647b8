// Package ipcproto implements the wire messages exchanged with the Unity
// Bridge: the handshake-only Control message (Hello/Welcome/Reject) and the
// post-handshake Envelope message (Request/Response/Event), plus the typed
// request/response/event payload families the façade exercises.
//
// The messages are protobuf wire format, encoded and decoded directly
// against google.golang.org/protobuf/encoding/protowire's low-level field
// primitives rather than through generated message types, so every message
// here — including the header-equivalents Control and Envelope — is
// assembled and parsed by hand, field by field.
package ipcproto

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// appendString appends a length-delimited string field, proto3-style: the
// field is omitted entirely when the value is the empty string.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendBytes appends a length-delimited bytes field, omitted when empty.
func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendVarint appends a varint field, omitted when zero (proto3 default).
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendFloat32(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func float32FromBits(v uint32) float32 {
	return math.Float32frombits(v)
}

// appendMessage appends a nested message field. When set is false the field
// is omitted entirely, matching proto3 "unset message field" semantics; when
// set is true an empty (nil) sub-message is still written as a zero-length
// field, so an empty request such as HealthRequest stays distinguishable.
func appendMessage(b []byte, num protowire.Number, sub []byte, set bool) []byte {
	if !set {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

// appendStrings appends a repeated string field as consecutive non-packed
// entries, the only legal encoding for string/bytes repeated fields.
func appendStrings(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

// appendStringMap appends a map<string,string> field as a sequence of
// MapEntry{1: key string, 2: value string} sub-messages, the standard
// protobuf map wire representation.
func appendStringMap(b []byte, num protowire.Number, m map[string]string) []byte {
	if len(m) == 0 {
		return b
	}
	for k, v := range m {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendString(entry, 2, v)
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func consumeStringMapEntry(b []byte) (key, value string, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", "", fmt.Errorf("ipcproto: consume map entry tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", "", fmt.Errorf("ipcproto: consume map key: %w", protowire.ParseError(n))
			}
			key = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", "", fmt.Errorf("ipcproto: consume map value: %w", protowire.ParseError(n))
			}
			value = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", "", fmt.Errorf("ipcproto: skip unknown map entry field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return key, value, nil
}

// fieldVisitor is called once per top-level field encountered while
// decoding a message. It returns the number of bytes of the field's value
// it consumed from b (not including the tag, which the caller already
// consumed), or -1 on error.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// checkConsume turns a protowire Consume* "n" result into an error when
// negative, and nil otherwise. Field visitors that already have their
// decoded value in hand still need to report malformed encodings.
func checkConsume(n int) error {
	if n < 0 {
		return protowire.ParseError(n)
	}
	return nil
}

// skipUnknown advances past a field the message doesn't recognize, matching
// protobuf's "preserve forward compatibility" contract for unknown fields.
func skipUnknown(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	return n, nil
}

// decodeFields drives a generic protobuf decode loop: consume a tag, hand
// the remaining bytes to visit, advance by whatever it consumed.
func decodeFields(data []byte, visit fieldVisitor) error {
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("ipcproto: consume tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		consumed, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if consumed < 0 {
			return fmt.Errorf("ipcproto: field %d: invalid encoding", num)
		}
		b = b[consumed:]
	}
	return nil
}
