package schema

import "github.com/luscis/ipsecman/pkg/libol"

type Version struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Commit  string `json:"commit,omitempty"`
}

func NewVersionSchema() Version {
	return Version{
		Version: libol.Version,
		Date:    libol.Date,
		Commit:  libol.Commit,
	}
}

// DaemonVersion is what the IKE daemon reports about itself.
type DaemonVersion struct {
	Daemon  string `json:"daemon"`
	Version string `json:"version"`
	Sysname string `json:"sysname,omitempty"`
	Release string `json:"release,omitempty"`
	Machine string `json:"machine,omitempty"`
}
