package api

import (
	"encoding/json"
	"net/http"

	"github.com/luscis/ipsecman/pkg/libol"
)

func ResponseCode(w http.ResponseWriter, code int, v interface{}) {
	str, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	libol.Debug("ResponseJson: %s", str)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(str)
}

func ResponseJson(w http.ResponseWriter, v interface{}) {
	ResponseCode(w, http.StatusOK, v)
}
