package keysight

import (
	"encoding/json"
	"go/types"
	"net/http"

	"goji.io/pat"

	"github.com/qtlab/instruments/server"
)

// crosspoint is the JSON payload naming one relay of the matrix
type crosspoint struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// HTTPWrapper exposes a U2751A over HTTP
type HTTPWrapper struct {
	m *U2751A

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a newly populated HTTP adapter for a switch matrix
func NewHTTPWrapper(m *U2751A) HTTPWrapper {
	w := HTTPWrapper{m: m}
	rt := server.RouteTable{
		pat.Post("/close"):   w.relay((*U2751A).CloseRelay),
		pat.Post("/open"):    w.relay((*U2751A).OpenRelay),
		pat.Post("/connect"): w.relay((*U2751A).Connect),
		pat.Get("/state"):    w.State,
		pat.Get("/cycles"):   w.Cycles,
		pat.Post("/open-all"): func(rw http.ResponseWriter, r *http.Request) {
			if err := m.OpenAll(); err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.WriteHeader(http.StatusOK)
		},
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

func decodeCrosspoint(w http.ResponseWriter, r *http.Request) (crosspoint, bool) {
	body := crosspoint{}
	err := json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return body, false
	}
	return body, true
}

func (h HTTPWrapper) relay(fcn func(*U2751A, int, int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := decodeCrosspoint(w, r)
		if !ok {
			return
		}
		if err := fcn(h.m, body.Row, body.Column); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// State responds with whether a relay is open
func (h HTTPWrapper) State(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeCrosspoint(w, r)
	if !ok {
		return
	}
	open, err := h.m.IsOpen(body.Row, body.Column)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.Bool, Bool: open}
	hp.EncodeAndRespond(w, r)
}

// Cycles responds with the lifetime flip count of a relay
func (h HTTPWrapper) Cycles(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeCrosspoint(w, r)
	if !ok {
		return
	}
	n, err := h.m.Cycles(body.Row, body.Column)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.Int, Int: n}
	hp.EncodeAndRespond(w, r)
}
