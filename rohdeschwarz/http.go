package rohdeschwarz

import (
	"encoding/json"
	"go/types"
	"net/http"

	"goji.io/pat"

	"github.com/qtlab/instruments/generichttp"
	"github.com/qtlab/instruments/server"
)

// channelValue is the JSON payload for per-channel settings
type channelValue struct {
	Channel int     `json:"channel"`
	Value   float64 `json:"value"`
}

// channelState is the JSON payload for per-channel output switching
type channelState struct {
	Channel int  `json:"channel"`
	On      bool `json:"on"`
}

// HTTPWrapper exposes an HMC804x over HTTP
type HTTPWrapper struct {
	p *HMC804x

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a newly populated HTTP adapter for a supply
func NewHTTPWrapper(p *HMC804x) HTTPWrapper {
	w := HTTPWrapper{p: p}
	rt := server.RouteTable{
		pat.Post("/voltage"):       w.setChannel((*Channel).SetVoltage),
		pat.Get("/voltage"):        w.getChannel((*Channel).GetVoltage),
		pat.Post("/current"):       w.setChannel((*Channel).SetCurrent),
		pat.Get("/current"):        w.getChannel((*Channel).GetCurrent),
		pat.Post("/smart-current"): w.setChannel((*Channel).SetSmartCurrent),
		pat.Get("/smart-current"):  w.getChannel((*Channel).SmartCurrent),

		pat.Get("/measured-voltage"): w.getChannel((*Channel).MeasureVoltage),
		pat.Get("/measured-current"): w.getChannel((*Channel).MeasureCurrent),
		pat.Get("/measured-power"):   w.getChannel((*Channel).MeasurePower),

		pat.Post("/output"):        w.SetOutput,
		pat.Post("/master-output"): generichttp.SetBool(p.SetMasterOutput),
		pat.Get("/master-output"):  generichttp.GetBool(p.GetMasterOutput),
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

func (h HTTPWrapper) setChannel(fcn func(*Channel, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := channelValue{}
		err := json.NewDecoder(r.Body).Decode(&body)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ch, err := h.p.Channel(body.Channel)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fcn(ch, body.Value); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (h HTTPWrapper) getChannel(fcn func(*Channel) (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := channelValue{}
		err := json.NewDecoder(r.Body).Decode(&body)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ch, err := h.p.Channel(body.Channel)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		v, err := fcn(ch)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := server.HumanPayload{T: types.Float64, Float: v}
		hp.EncodeAndRespond(w, r)
	}
}

// SetOutput switches one channel on or off
func (h HTTPWrapper) SetOutput(w http.ResponseWriter, r *http.Request) {
	body := channelState{}
	err := json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ch, err := h.p.Channel(body.Channel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := ch.SetOutput(body.On); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
