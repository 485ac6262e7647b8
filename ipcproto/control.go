package ipcproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Reject codes, exchanged as plain strings on the wire (they are compared
// by the client against a small fixed vocabulary, not an enum the schema
// needs to evolve independently of the client).
const (
	RejectUnauthenticated     = "UNAUTHENTICATED"
	RejectFailedPrecondition  = "FAILED_PRECONDITION"
	RejectOutOfRange          = "OUT_OF_RANGE"
	RejectUnavailable         = "UNAVAILABLE"
	RejectInternal            = "INTERNAL"
)

// Hello is the client's handshake greeting.
type Hello struct {
	Token         string
	IpcVersion    string
	Features      []string
	SchemaHash    []byte
	ProjectRoot   string
	ClientName    string
	ClientVersion string
	Meta          map[string]string
}

func (m *Hello) Marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	var b []byte
	b = appendString(b, 1, m.Token)
	b = appendString(b, 2, m.IpcVersion)
	b = appendStrings(b, 3, m.Features)
	b = appendBytes(b, 4, m.SchemaHash)
	b = appendString(b, 5, m.ProjectRoot)
	b = appendString(b, 6, m.ClientName)
	b = appendString(b, 7, m.ClientVersion)
	b = appendStringMap(b, 8, m.Meta)
	return b, nil
}

func UnmarshalHello(data []byte) (*Hello, error) {
	m := &Hello{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Token = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.IpcVersion = v
			return n, checkConsume(n)
		case 3:
			v, n := protowire.ConsumeString(b)
			m.Features = append(m.Features, v)
			return n, checkConsume(n)
		case 4:
			v, n := protowire.ConsumeBytes(b)
			m.SchemaHash = append([]byte(nil), v...)
			return n, checkConsume(n)
		case 5:
			v, n := protowire.ConsumeString(b)
			m.ProjectRoot = v
			return n, checkConsume(n)
		case 6:
			v, n := protowire.ConsumeString(b)
			m.ClientName = v
			return n, checkConsume(n)
		case 7:
			v, n := protowire.ConsumeString(b)
			m.ClientVersion = v
			return n, checkConsume(n)
		case 8:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			k, v, err := consumeStringMapEntry(entry)
			if err != nil {
				return 0, err
			}
			if m.Meta == nil {
				m.Meta = make(map[string]string)
			}
			m.Meta[k] = v
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Hello: %w", err)
	}
	return m, nil
}

// Welcome is the server's handshake acceptance.
type Welcome struct {
	IpcVersion       string
	AcceptedFeatures []string
	SchemaHash       []byte
	ServerName       string
	ServerVersion    string
	EditorVersion    string
	SessionID        string
	Meta             map[string]string
}

func (m *Welcome) GetSessionID() string {
	if m == nil {
		return ""
	}
	return m.SessionID
}

func (m *Welcome) GetSchemaHash() []byte {
	if m == nil {
		return nil
	}
	return m.SchemaHash
}

func (m *Welcome) Marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	var b []byte
	b = appendString(b, 1, m.IpcVersion)
	b = appendStrings(b, 2, m.AcceptedFeatures)
	b = appendBytes(b, 3, m.SchemaHash)
	b = appendString(b, 4, m.ServerName)
	b = appendString(b, 5, m.ServerVersion)
	b = appendString(b, 6, m.EditorVersion)
	b = appendString(b, 7, m.SessionID)
	b = appendStringMap(b, 8, m.Meta)
	return b, nil
}

func UnmarshalWelcome(data []byte) (*Welcome, error) {
	m := &Welcome{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.IpcVersion = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.AcceptedFeatures = append(m.AcceptedFeatures, v)
			return n, checkConsume(n)
		case 3:
			v, n := protowire.ConsumeBytes(b)
			m.SchemaHash = append([]byte(nil), v...)
			return n, checkConsume(n)
		case 4:
			v, n := protowire.ConsumeString(b)
			m.ServerName = v
			return n, checkConsume(n)
		case 5:
			v, n := protowire.ConsumeString(b)
			m.ServerVersion = v
			return n, checkConsume(n)
		case 6:
			v, n := protowire.ConsumeString(b)
			m.EditorVersion = v
			return n, checkConsume(n)
		case 7:
			v, n := protowire.ConsumeString(b)
			m.SessionID = v
			return n, checkConsume(n)
		case 8:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			k, v, err := consumeStringMapEntry(entry)
			if err != nil {
				return 0, err
			}
			if m.Meta == nil {
				m.Meta = make(map[string]string)
			}
			m.Meta[k] = v
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Welcome: %w", err)
	}
	return m, nil
}

// Reject is the server's handshake refusal.
type Reject struct {
	Code    string
	Message string
}

func (m *Reject) GetCode() string {
	if m == nil {
		return ""
	}
	return m.Code
}

func (m *Reject) GetMessage() string {
	if m == nil {
		return ""
	}
	return m.Message
}

func (m *Reject) Marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	var b []byte
	b = appendString(b, 1, m.Code)
	b = appendString(b, 2, m.Message)
	return b, nil
}

func UnmarshalReject(data []byte) (*Reject, error) {
	m := &Reject{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Code = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.Message = v
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Reject: %w", err)
	}
	return m, nil
}

// Control is the handshake-only top-level message: exactly one of Hello,
// Welcome, or Reject is set.
type Control struct {
	Hello   *Hello
	Welcome *Welcome
	Reject  *Reject
}

func (m *Control) Marshal() ([]byte, error) {
	var b []byte
	if m.Hello != nil {
		sub, err := m.Hello.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 1, sub, true)
	}
	if m.Welcome != nil {
		sub, err := m.Welcome.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, sub, true)
	}
	if m.Reject != nil {
		sub, err := m.Reject.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 3, sub, true)
	}
	return b, nil
}

func UnmarshalControl(data []byte) (*Control, error) {
	m := &Control{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			hello, err := UnmarshalHello(sub)
			if err != nil {
				return 0, err
			}
			m.Hello = hello
			return n, nil
		case 2:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			welcome, err := UnmarshalWelcome(sub)
			if err != nil {
				return 0, err
			}
			m.Welcome = welcome
			return n, nil
		case 3:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			reject, err := UnmarshalReject(sub)
			if err != nil {
				return 0, err
			}
			m.Reject = reject
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Control: %w", err)
	}
	return m, nil
}
