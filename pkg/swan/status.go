package swan

import (
	"github.com/luscis/ipsecman/pkg/models"
	"github.com/luscis/ipsecman/pkg/schema"
)

// Reconcile merges configured connection names with active SAs. Every
// name gets exactly one entry; an SA counts for a connection only when its
// name is equal, and SAs without a connection are left out. Several SAs
// of one connection add up.
func Reconcile(names []string, sas []*models.IkeSa) map[string]schema.ConnectionStatus {
	status := make(map[string]schema.ConnectionStatus, len(names))
	for _, name := range names {
		status[name] = schema.ConnectionStatus{
			Name:  name,
			State: schema.StateNotEstablished,
		}
	}
	for _, sa := range sas {
		obj, ok := status[sa.Name]
		if !ok {
			continue
		}
		obj.State = schema.StateEstablished
		if t := sa.Established(); t > obj.EstablishedTime {
			obj.EstablishedTime = t
		}
		for _, child := range sa.Children() {
			d := child.Data
			obj.BytesIn += d.Uint("bytes-in")
			obj.BytesOut += d.Uint("bytes-out")
			obj.PacketsIn += d.Uint("packets-in")
			obj.PacketsOut += d.Uint("packets-out")
		}
		status[sa.Name] = obj
	}
	return status
}
