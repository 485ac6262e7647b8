package ipcproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope is the post-handshake top-level message: a correlation id plus
// exactly one of Request, Response, or Event. Requests carry a
// client-assigned CorrelationID that Responses echo verbatim; Events carry
// none (CorrelationID is empty).
type Envelope struct {
	CorrelationID string
	Request       *Request
	Response      *Response
	Event         *Event
}

func (m *Envelope) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.CorrelationID)
	if m.Request != nil {
		sub, err := m.Request.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, sub, true)
	}
	if m.Response != nil {
		sub, err := m.Response.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 3, sub, true)
	}
	if m.Event != nil {
		sub, err := m.Event.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 4, sub, true)
	}
	return b, nil
}

func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	m := &Envelope{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.CorrelationID = v
			return n, checkConsume(n)
		case 2:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			req, err := UnmarshalRequest(sub)
			if err != nil {
				return 0, err
			}
			m.Request = req
			return n, nil
		case 3:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			resp, err := UnmarshalResponse(sub)
			if err != nil {
				return 0, err
			}
			m.Response = resp
			return n, nil
		case 4:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			evt, err := UnmarshalEvent(sub)
			if err != nil {
				return 0, err
			}
			m.Event = evt
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Envelope: %w", err)
	}
	return m, nil
}

// ---- Request payload families ----

type HealthRequest struct{}

func (m *HealthRequest) Marshal() ([]byte, error) { return nil, nil }

type AssetsImportRequest struct {
	Paths []string
}

func (m *AssetsImportRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendStrings(b, 1, m.Paths)
	return b, nil
}

func unmarshalAssetsImportRequest(data []byte) (*AssetsImportRequest, error) {
	m := &AssetsImportRequest{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Paths = append(m.Paths, v)
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type AssetsRefreshRequest struct{}

func (m *AssetsRefreshRequest) Marshal() ([]byte, error) { return nil, nil }

type AssetsMoveRequest struct {
	From string
	To   string
}

func (m *AssetsMoveRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.From)
	b = appendString(b, 2, m.To)
	return b, nil
}

func unmarshalAssetsMoveRequest(data []byte) (*AssetsMoveRequest, error) {
	m := &AssetsMoveRequest{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.From = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.To = v
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type BuildPlayerRequest struct {
	Target      string
	OutputPath  string
	Development bool
}

func (m *BuildPlayerRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Target)
	b = appendString(b, 2, m.OutputPath)
	b = appendBool(b, 3, m.Development)
	return b, nil
}

func unmarshalBuildPlayerRequest(data []byte) (*BuildPlayerRequest, error) {
	m := &BuildPlayerRequest{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Target = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.OutputPath = v
			return n, checkConsume(n)
		case 3:
			v, n := protowire.ConsumeVarint(b)
			m.Development = v != 0
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type BuildBundlesRequest struct {
	OutputDir string
	Targets   []string
}

func (m *BuildBundlesRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.OutputDir)
	b = appendStrings(b, 2, m.Targets)
	return b, nil
}

func unmarshalBuildBundlesRequest(data []byte) (*BuildBundlesRequest, error) {
	m := &BuildBundlesRequest{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.OutputDir = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.Targets = append(m.Targets, v)
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

// Request is the oneof of every request family the façade can send. Exactly
// one field is set per instance.
type Request struct {
	Health        *HealthRequest
	AssetsImport  *AssetsImportRequest
	AssetsRefresh *AssetsRefreshRequest
	AssetsMove    *AssetsMoveRequest
	BuildPlayer   *BuildPlayerRequest
	BuildBundles  *BuildBundlesRequest
}

func (m *Request) Marshal() ([]byte, error) {
	var b []byte
	switch {
	case m.Health != nil:
		sub, _ := m.Health.Marshal()
		b = appendMessage(b, 1, sub, true)
	case m.AssetsImport != nil:
		sub, err := m.AssetsImport.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, sub, true)
	case m.AssetsRefresh != nil:
		sub, _ := m.AssetsRefresh.Marshal()
		b = appendMessage(b, 3, sub, true)
	case m.AssetsMove != nil:
		sub, err := m.AssetsMove.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 4, sub, true)
	case m.BuildPlayer != nil:
		sub, err := m.BuildPlayer.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 5, sub, true)
	case m.BuildBundles != nil:
		sub, err := m.BuildBundles.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 6, sub, true)
	}
	return b, nil
}

func UnmarshalRequest(data []byte) (*Request, error) {
	m := &Request{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			_, n := protowire.ConsumeBytes(b)
			m.Health = &HealthRequest{}
			return n, checkConsume(n)
		case 2:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalAssetsImportRequest(sub)
			if err != nil {
				return 0, err
			}
			m.AssetsImport = v
			return n, nil
		case 3:
			_, n := protowire.ConsumeBytes(b)
			m.AssetsRefresh = &AssetsRefreshRequest{}
			return n, checkConsume(n)
		case 4:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalAssetsMoveRequest(sub)
			if err != nil {
				return 0, err
			}
			m.AssetsMove = v
			return n, nil
		case 5:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalBuildPlayerRequest(sub)
			if err != nil {
				return 0, err
			}
			m.BuildPlayer = v
			return n, nil
		case 6:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalBuildBundlesRequest(sub)
			if err != nil {
				return 0, err
			}
			m.BuildBundles = v
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Request: %w", err)
	}
	return m, nil
}

// ---- Response payload families ----

type HealthResponse struct {
	Ready       bool
	Version     string
	EditorState string
}

func (m *HealthResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Ready)
	b = appendString(b, 2, m.Version)
	b = appendString(b, 3, m.EditorState)
	return b, nil
}

func unmarshalHealthResponse(data []byte) (*HealthResponse, error) {
	m := &HealthResponse{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			m.Ready = v != 0
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.Version = v
			return n, checkConsume(n)
		case 3:
			v, n := protowire.ConsumeString(b)
			m.EditorState = v
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type AssetsImportResponse struct {
	Imported []string
	Failed   map[string]string
}

func (m *AssetsImportResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendStrings(b, 1, m.Imported)
	b = appendStringMap(b, 2, m.Failed)
	return b, nil
}

func unmarshalAssetsImportResponse(data []byte) (*AssetsImportResponse, error) {
	m := &AssetsImportResponse{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Imported = append(m.Imported, v)
			return n, checkConsume(n)
		case 2:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			k, v, err := consumeStringMapEntry(entry)
			if err != nil {
				return 0, err
			}
			if m.Failed == nil {
				m.Failed = make(map[string]string)
			}
			m.Failed[k] = v
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type AssetsRefreshResponse struct {
	RefreshedCount int32
}

func (m *AssetsRefreshResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.RefreshedCount)))
	return b, nil
}

func unmarshalAssetsRefreshResponse(data []byte) (*AssetsRefreshResponse, error) {
	m := &AssetsRefreshResponse{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			m.RefreshedCount = int32(v)
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type AssetsMoveResponse struct{}

func (m *AssetsMoveResponse) Marshal() ([]byte, error) { return nil, nil }

type BuildPlayerResponse struct {
	Succeeded  bool
	OutputPath string
	Warnings   []string
}

func (m *BuildPlayerResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Succeeded)
	b = appendString(b, 2, m.OutputPath)
	b = appendStrings(b, 3, m.Warnings)
	return b, nil
}

func unmarshalBuildPlayerResponse(data []byte) (*BuildPlayerResponse, error) {
	m := &BuildPlayerResponse{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			m.Succeeded = v != 0
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.OutputPath = v
			return n, checkConsume(n)
		case 3:
			v, n := protowire.ConsumeString(b)
			m.Warnings = append(m.Warnings, v)
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type BuildBundlesResponse struct {
	BundleNames []string
}

func (m *BuildBundlesResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendStrings(b, 1, m.BundleNames)
	return b, nil
}

func unmarshalBuildBundlesResponse(data []byte) (*BuildBundlesResponse, error) {
	m := &BuildBundlesResponse{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.BundleNames = append(m.BundleNames, v)
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

// Response carries the server's status code plus exactly one result payload
// matching the Request that produced it (absent when Status != OK and the
// operation has no partial-result shape to report).
type Response struct {
	Status       StatusCode
	Message      string
	Health       *HealthResponse
	AssetsImport *AssetsImportResponse
	AssetsRefresh *AssetsRefreshResponse
	AssetsMove   *AssetsMoveResponse
	BuildPlayer  *BuildPlayerResponse
	BuildBundles *BuildBundlesResponse
}

func (m *Response) GetStatus() StatusCode {
	if m == nil {
		return StatusOK
	}
	return m.Status
}

func (m *Response) GetMessage() string {
	if m == nil {
		return ""
	}
	return m.Message
}

func (m *Response) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.Status)))
	b = appendString(b, 2, m.Message)
	switch {
	case m.Health != nil:
		sub, _ := m.Health.Marshal()
		b = appendMessage(b, 3, sub, true)
	case m.AssetsImport != nil:
		sub, err := m.AssetsImport.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 4, sub, true)
	case m.AssetsRefresh != nil:
		sub, err := m.AssetsRefresh.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 5, sub, true)
	case m.AssetsMove != nil:
		sub, _ := m.AssetsMove.Marshal()
		b = appendMessage(b, 6, sub, true)
	case m.BuildPlayer != nil:
		sub, err := m.BuildPlayer.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 7, sub, true)
	case m.BuildBundles != nil:
		sub, err := m.BuildBundles.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 8, sub, true)
	}
	return b, nil
}

func UnmarshalResponse(data []byte) (*Response, error) {
	m := &Response{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			m.Status = StatusCode(int32(v))
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.Message = v
			return n, checkConsume(n)
		case 3:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalHealthResponse(sub)
			if err != nil {
				return 0, err
			}
			m.Health = v
			return n, nil
		case 4:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalAssetsImportResponse(sub)
			if err != nil {
				return 0, err
			}
			m.AssetsImport = v
			return n, nil
		case 5:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalAssetsRefreshResponse(sub)
			if err != nil {
				return 0, err
			}
			m.AssetsRefresh = v
			return n, nil
		case 6:
			_, n := protowire.ConsumeBytes(b)
			m.AssetsMove = &AssetsMoveResponse{}
			return n, checkConsume(n)
		case 7:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalBuildPlayerResponse(sub)
			if err != nil {
				return 0, err
			}
			m.BuildPlayer = v
			return n, nil
		case 8:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalBuildBundlesResponse(sub)
			if err != nil {
				return 0, err
			}
			m.BuildBundles = v
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Response: %w", err)
	}
	return m, nil
}

// ---- Event payload families ----

type LogEvent struct {
	Level     string
	Message   string
	Timestamp int64
}

func (m *LogEvent) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Level)
	b = appendString(b, 2, m.Message)
	b = appendVarint(b, 3, uint64(m.Timestamp))
	return b, nil
}

func unmarshalLogEvent(data []byte) (*LogEvent, error) {
	m := &LogEvent{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Level = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeString(b)
			m.Message = v
			return n, checkConsume(n)
		case 3:
			v, n := protowire.ConsumeVarint(b)
			m.Timestamp = int64(v)
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type ProgressEvent struct {
	OperationID string
	Percent     float32
	Stage       string
}

func (m *ProgressEvent) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.OperationID)
	b = appendFloat32(b, 2, m.Percent)
	b = appendString(b, 3, m.Stage)
	return b, nil
}

func unmarshalProgressEvent(data []byte) (*ProgressEvent, error) {
	m := &ProgressEvent{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.OperationID = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeFixed32(b)
			m.Percent = float32FromBits(v)
			return n, checkConsume(n)
		case 3:
			v, n := protowire.ConsumeString(b)
			m.Stage = v
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

type BuildProgressEvent struct {
	Target  string
	Percent float32
}

func (m *BuildProgressEvent) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Target)
	b = appendFloat32(b, 2, m.Percent)
	return b, nil
}

func unmarshalBuildProgressEvent(data []byte) (*BuildProgressEvent, error) {
	m := &BuildProgressEvent{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Target = v
			return n, checkConsume(n)
		case 2:
			v, n := protowire.ConsumeFixed32(b)
			m.Percent = float32FromBits(v)
			return n, checkConsume(n)
		default:
			return skipUnknown(num, typ, b)
		}
	})
	return m, err
}

// Event is the oneof of broadcast event families. Exactly one field is set.
type Event struct {
	Log           *LogEvent
	Progress      *ProgressEvent
	BuildProgress *BuildProgressEvent
}

func (m *Event) Marshal() ([]byte, error) {
	var b []byte
	switch {
	case m.Log != nil:
		sub, err := m.Log.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 1, sub, true)
	case m.Progress != nil:
		sub, err := m.Progress.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, sub, true)
	case m.BuildProgress != nil:
		sub, err := m.BuildProgress.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 3, sub, true)
	}
	return b, nil
}

func UnmarshalEvent(data []byte) (*Event, error) {
	m := &Event{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalLogEvent(sub)
			if err != nil {
				return 0, err
			}
			m.Log = v
			return n, nil
		case 2:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalProgressEvent(sub)
			if err != nil {
				return 0, err
			}
			m.Progress = v
			return n, nil
		case 3:
			sub, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, checkConsume(n)
			}
			v, err := unmarshalBuildProgressEvent(sub)
			if err != nil {
				return 0, err
			}
			m.BuildProgress = v
			return n, nil
		default:
			return skipUnknown(num, typ, b)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipcproto: unmarshal Event: %w", err)
	}
	return m, nil
}
