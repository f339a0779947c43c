package schema

const (
	StateNotEstablished = "NotEstablished"
	StateEstablished    = "Established"
	StateUnknown        = "Unknown"
)

// ConnectionRecord is one loaded connection as listed by the daemon.
type ConnectionRecord struct {
	Name    string                 `json:"name"`
	Local   []string               `json:"local,omitempty"`
	Remote  []string               `json:"remote,omitempty"`
	Version string                 `json:"version,omitempty"`
	Config  map[string]interface{} `json:"config"`
}

type ConnectionStatus struct {
	Name            string `json:"name"`
	State           string `json:"state"`
	EstablishedTime int64  `json:"established_time"`
	BytesIn         uint64 `json:"bytes_in"`
	BytesOut        uint64 `json:"bytes_out"`
	PacketsIn       uint64 `json:"packets_in"`
	PacketsOut      uint64 `json:"packets_out"`
}

type ChildSA struct {
	Name        string   `json:"name"`
	State       string   `json:"state,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Protocol    string   `json:"protocol,omitempty"`
	BytesIn     uint64   `json:"bytes_in"`
	BytesOut    uint64   `json:"bytes_out"`
	PacketsIn   uint64   `json:"packets_in"`
	PacketsOut  uint64   `json:"packets_out"`
	InstallTime int64    `json:"install_time,omitempty"`
	LocalTS     []string `json:"local_ts,omitempty"`
	RemoteTS    []string `json:"remote_ts,omitempty"`
}

// SA is an active IKE security association and its child SAs.
type SA struct {
	Name        string    `json:"name"`
	UniqueId    string    `json:"uniqueid,omitempty"`
	Version     string    `json:"version,omitempty"`
	State       string    `json:"state"`
	LocalHost   string    `json:"local_host,omitempty"`
	LocalId     string    `json:"local_id,omitempty"`
	RemoteHost  string    `json:"remote_host,omitempty"`
	RemoteId    string    `json:"remote_id,omitempty"`
	Established int64     `json:"established"`
	Children    []ChildSA `json:"children,omitempty"`
}

type Uptime struct {
	Running string `json:"running"`
	Since   string `json:"since"`
}

type Workers struct {
	Total  uint64            `json:"total"`
	Idle   uint64            `json:"idle"`
	Active map[string]uint64 `json:"active,omitempty"`
}

type IkeSAs struct {
	Total    uint64 `json:"total"`
	HalfOpen uint64 `json:"half_open"`
}

// Stats is a snapshot of daemon wide counters.
type Stats struct {
	Uptime    Uptime            `json:"uptime"`
	Workers   Workers           `json:"workers"`
	Queues    map[string]uint64 `json:"queues,omitempty"`
	Scheduled uint64            `json:"scheduled"`
	IkeSAs    IkeSAs            `json:"ikesas"`
	Plugins   []string          `json:"plugins,omitempty"`
}

// Result is the outcome of a lifecycle operation. Kind is empty on
// success.
type Result struct {
	Name    string `json:"name,omitempty"`
	Action  string `json:"action"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Output  string `json:"output,omitempty"`
}

func (r Result) Ok() bool {
	return r.Kind == ""
}

// Event is a daemon notification such as an IKE SA going up or down.
type Event struct {
	Name string                 `json:"name"`
	Time string                 `json:"time"`
	Data map[string]interface{} `json:"data,omitempty"`
}
