package proto

// Client packet codes (spec.md §4.5).
const (
	ClientHello  byte = 0
	ClientQuery  byte = 1
	ClientData   byte = 2
	ClientCancel byte = 3
	ClientPing   byte = 4
)

// Server packet codes (spec.md §4.5).
const (
	ServerHello               byte = 0
	ServerData                byte = 1
	ServerException           byte = 2
	ServerProgress            byte = 3
	ServerPong                byte = 4
	ServerEndOfStream         byte = 5
	ServerProfileInfo         byte = 6
	ServerTotals              byte = 7
	ServerExtremes            byte = 8
	ServerTablesStatusResp    byte = 9
	ServerLog                 byte = 10
	ServerTableColumns        byte = 11
	ServerPartUUIDs           byte = 12
	ServerReadTaskRequest     byte = 13
	ServerProfileEvents       byte = 14
)

// ServerPacketName returns a human-readable label for a server packet
// code, used in ProtocolError messages and log fields.
func ServerPacketName(code byte) string {
	switch code {
	case ServerHello:
		return "Hello"
	case ServerData:
		return "Data"
	case ServerException:
		return "Exception"
	case ServerProgress:
		return "Progress"
	case ServerPong:
		return "Pong"
	case ServerEndOfStream:
		return "EndOfStream"
	case ServerProfileInfo:
		return "ProfileInfo"
	case ServerTotals:
		return "Totals"
	case ServerExtremes:
		return "Extremes"
	case ServerTablesStatusResp:
		return "TablesStatusResponse"
	case ServerLog:
		return "Log"
	case ServerTableColumns:
		return "TableColumns"
	case ServerPartUUIDs:
		return "PartUUIDs"
	case ServerReadTaskRequest:
		return "ReadTaskRequest"
	case ServerProfileEvents:
		return "ProfileEvents"
	default:
		return "Unknown"
	}
}

// Compression negotiation flags carried on the Query packet.
const (
	CompressionDisabled byte = 0
	CompressionEnabled  byte = 1
)

// QueryProcessingStage values (spec.md §4.5 step 1 "stage").
const (
	StageComplete int32 = 2
)

// Setting is a single (name, value) pair sent on a Query packet
// (spec.md §4.5 "Settings").
type Setting struct {
	Key       string
	Value     string
	Important bool
}

// ClientInfo mirrors the revision-gated client_info block attached to
// a Query packet.
type ClientInfo struct {
	QueryKind      byte
	InitialUser    string
	InitialQueryID string
	InitialAddress string
	OSUser         string
	ClientHostname string
	ClientName     string
	VersionMajor   uint64
	VersionMinor   uint64
	ProtocolVer    uint64
	QuotaKey       string
}

// Progress is the running counter carried on Progress packets.
type Progress struct {
	Rows      uint64
	Bytes     uint64
	TotalRows uint64
	WroteRows uint64
	WroteBytes uint64
}

// Profile is the ProfileInfo side-channel payload.
type Profile struct {
	Rows                      uint64
	Blocks                    uint64
	Bytes                     uint64
	AppliedLimit              bool
	RowsBeforeLimit           uint64
	CalculatedRowsBeforeLimit bool
}

// Exception is the decoded contents of an Exception packet.
type Exception struct {
	Code       int32
	Name       string
	Message    string
	StackTrace string
	Nested     *Exception
}

// ServerInfo is what the handshake's server Hello packet reveals.
type ServerInfo struct {
	Name         string
	VersionMajor uint64
	VersionMinor uint64
	Revision     uint64
	Timezone     string
	DisplayName  string
	VersionPatch uint64
}

// HelloRequest is the client's opening handshake packet.
type HelloRequest struct {
	ClientName      string
	VersionMajor    uint64
	VersionMinor    uint64
	ProtocolVersion uint64
	Database        string
	User            string
	Password        string
}

// WriteHello encodes the client Hello packet into w's buffer; the
// caller flushes it.
func WriteHello(w *Writer, h HelloRequest) error {
	if err := w.WriteUvarint(uint64(ClientHello)); err != nil {
		return err
	}
	if err := w.WriteStr(h.ClientName); err != nil {
		return err
	}
	if err := w.WriteUvarint(h.VersionMajor); err != nil {
		return err
	}
	if err := w.WriteUvarint(h.VersionMinor); err != nil {
		return err
	}
	if err := w.WriteUvarint(h.ProtocolVersion); err != nil {
		return err
	}
	if err := w.WriteStr(h.Database); err != nil {
		return err
	}
	if err := w.WriteStr(h.User); err != nil {
		return err
	}
	return w.WriteStr(h.Password)
}

// ReadHello reads the server's Hello response. The caller is expected
// to have already consumed the leading packet-code varint and
// confirmed it equals ServerHello.
func ReadHello(r *Reader) (ServerInfo, error) {
	var si ServerInfo
	var err error
	if si.Name, err = r.ReadStr(); err != nil {
		return si, err
	}
	if si.VersionMajor, err = r.ReadUvarint(); err != nil {
		return si, err
	}
	if si.VersionMinor, err = r.ReadUvarint(); err != nil {
		return si, err
	}
	if si.Revision, err = r.ReadUvarint(); err != nil {
		return si, err
	}
	if si.Timezone, err = r.ReadStr(); err != nil {
		return si, err
	}
	if si.DisplayName, err = r.ReadStr(); err != nil {
		return si, err
	}
	si.VersionPatch, err = r.ReadUvarint()
	return si, err
}

// WriteSettings encodes the (name,value[,flags]) sequence terminated
// by an empty name, in the revision-gated format of spec.md §4.5.
func WriteSettings(w *Writer, revision uint64, settings []Setting) error {
	for _, s := range settings {
		if err := w.WriteStr(s.Key); err != nil {
			return err
		}
		if revision >= settingsAsStringsRevision {
			if err := w.WriteBool(s.Important); err != nil {
				return err
			}
			if err := w.WriteStr(s.Value); err != nil {
				return err
			}
		} else {
			n, err := parseSettingInt(s.Value)
			if err != nil {
				return err
			}
			if err := w.WriteUvarint(n); err != nil {
				return err
			}
		}
	}
	return w.WriteStr("")
}

// settingsAsStringsRevision is the protocol revision at which settings
// switched from varint-encoded values to flag+string encoding.
const settingsAsStringsRevision = 54429

func parseSettingInt(v string) (uint64, error) {
	var n uint64
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0, ErrMalformedSetting
		}
		n = n*10 + uint64(c-'0')
	}
	return n, nil
}

// WriteClientInfo writes the revision-gated client_info block embedded
// in a Query packet.
func WriteClientInfo(w *Writer, revision uint64, ci ClientInfo) error {
	if err := w.WriteByte(ci.QueryKind); err != nil {
		return err
	}
	if err := w.WriteStr(ci.InitialUser); err != nil {
		return err
	}
	if err := w.WriteStr(ci.InitialQueryID); err != nil {
		return err
	}
	if err := w.WriteStr(ci.InitialAddress); err != nil {
		return err
	}
	if revision >= clientInfoInitialTimeRevision {
		if err := w.WriteInt64(0); err != nil {
			return err
		}
	}
	if err := w.WriteByte(interfaceTCP); err != nil {
		return err
	}
	if err := w.WriteStr(ci.OSUser); err != nil {
		return err
	}
	if err := w.WriteStr(ci.ClientHostname); err != nil {
		return err
	}
	if err := w.WriteStr(ci.ClientName); err != nil {
		return err
	}
	if err := w.WriteUvarint(ci.VersionMajor); err != nil {
		return err
	}
	if err := w.WriteUvarint(ci.VersionMinor); err != nil {
		return err
	}
	if err := w.WriteUvarint(ci.ProtocolVer); err != nil {
		return err
	}
	if revision >= clientInfoQuotaKeyRevision {
		if err := w.WriteStr(ci.QuotaKey); err != nil {
			return err
		}
	}
	return nil
}

const (
	clientInfoInitialTimeRevision = 54449
	clientInfoQuotaKeyRevision    = 54458
	interfaceTCP                  = 1
)

// QueryRequest is the packet opening a query's lifecycle.
type QueryRequest struct {
	QueryID     string
	ClientInfo  ClientInfo
	Settings    []Setting
	Stage       int32
	Compression byte
	SQL         string
}

// WriteQuery encodes the Query packet (spec.md §4.5 step 1).
func WriteQuery(w *Writer, revision uint64, q QueryRequest) error {
	if err := w.WriteUvarint(uint64(ClientQuery)); err != nil {
		return err
	}
	if err := w.WriteStr(q.QueryID); err != nil {
		return err
	}
	if err := WriteClientInfo(w, revision, q.ClientInfo); err != nil {
		return err
	}
	if err := WriteSettings(w, revision, q.Settings); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(q.Stage)); err != nil {
		return err
	}
	if err := w.WriteByte(q.Compression); err != nil {
		return err
	}
	return w.WriteStr(q.SQL)
}

// ReadProgress decodes a Progress packet body.
func ReadProgress(r *Reader) (Progress, error) {
	var p Progress
	var err error
	if p.Rows, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.Bytes, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.TotalRows, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.WroteRows, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	p.WroteBytes, err = r.ReadUvarint()
	return p, err
}

// ReadProfile decodes a ProfileInfo packet body.
func ReadProfile(r *Reader) (Profile, error) {
	var p Profile
	var err error
	if p.Rows, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.Blocks, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.Bytes, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.AppliedLimit, err = r.ReadBool(); err != nil {
		return p, err
	}
	if p.RowsBeforeLimit, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	p.CalculatedRowsBeforeLimit, err = r.ReadBool()
	return p, err
}

// ReadException decodes a (possibly chained) Exception packet body.
func ReadException(r *Reader) (*Exception, error) {
	e := &Exception{}
	code, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	e.Code = code
	if e.Name, err = r.ReadStr(); err != nil {
		return nil, err
	}
	if e.Message, err = r.ReadStr(); err != nil {
		return nil, err
	}
	if e.StackTrace, err = r.ReadStr(); err != nil {
		return nil, err
	}
	hasNested, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if hasNested {
		e.Nested, err = ReadException(r)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ErrMalformedSetting is returned when an old-revision setting value is
// not a plain non-negative integer.
var ErrMalformedSetting = settingErr{}

type settingErr struct{}

func (settingErr) Error() string { return "proto: setting value is not an unsigned integer" }
