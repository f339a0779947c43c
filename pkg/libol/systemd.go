package libol

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// SdNotify tells systemd the service is ready. It is a no-op outside of
// a notify-type unit.
func SdNotify() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		Warn("SdNotify: %s", err)
		return
	}
	Debug("SdNotify: ready %t", sent)
}

func SdStopping() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		Warn("SdStopping: %s", err)
	}
}
