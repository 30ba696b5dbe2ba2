package basel

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"strings"

	"github.com/qtlab/instruments/generichttp"
	"github.com/qtlab/instruments/generichttp/ascii"
	"github.com/qtlab/instruments/generichttp/daq"
	"github.com/qtlab/instruments/server"

	"goji.io/pat"
)

// HTTPWrapper exposes an SP1060 over HTTP.  Channel level access reuses
// the generic DAC routes; the generators get routes of their own.
type HTTPWrapper struct {
	d *SP1060

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns an HTTP adapter around d
func NewHTTPWrapper(d *SP1060) HTTPWrapper {
	w := HTTPWrapper{d: d}
	rt := server.RouteTable{
		pat.Post("/output"):       daq.Output(d),
		pat.Get("/voltage"):       daq.Voltage(d),
		pat.Post("/output-multi"): daq.OutputMulti(d),
		pat.Post("/on-off"):       daq.OnOff(d),

		pat.Post("/all-on"):      noArg(d.AllOn),
		pat.Post("/all-off"):     noArg(d.AllOff),
		pat.Post("/all-voltage"): generichttp.SetFloat(d.SetAllVoltages),
		pat.Get("/all-voltages"): w.allVoltages,

		pat.Get("/bandwidth"):  w.getBandwidth,
		pat.Post("/bandwidth"): w.setBandwidth,

		pat.Post("/sync"):        w.sync,
		pat.Post("/update-mode"): w.setUpdateMode,

		pat.Post("/ramp/program"): w.programRamp,
		pat.Post("/ramp/control"): w.controlRamp,
		pat.Get("/ramp/state"):    w.rampState,

		pat.Post("/awg/control"):   w.controlAWG,
		pat.Post("/waveform"):      w.programWaveform,
		pat.Post("/waveform/host"): w.uploadWaveform,
		pat.Post("/polynomial"):    w.setPolynomial,

		pat.Get("/identification"): w.identification,
	}
	w.RouteTable = rt
	ascii.InjectRawComm(w, d)
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

func noArg(f func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (h HTTPWrapper) allVoltages(w http.ResponseWriter, r *http.Request) {
	vs, err := h.d.AllVoltages()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vs)
}

type channelBandwidth struct {
	Channel int `json:"channel"`

	Bandwidth string `json:"bandwidth"`
}

func (h HTTPWrapper) getBandwidth(w http.ResponseWriter, r *http.Request) {
	var input channelBandwidth
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bw, err := h.d.GetBandwidth(input.Channel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	input.Bandwidth = string(bw)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(input)
}

func (h HTTPWrapper) setBandwidth(w http.ResponseWriter, r *http.Request) {
	var input channelBandwidth
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.d.SetBandwidth(input.Channel, Bandwidth(strings.ToUpper(input.Bandwidth)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type boardPayload struct {
	Board string `json:"board"`

	Sync bool `json:"sync"`
}

func (h HTTPWrapper) sync(w http.ResponseWriter, r *http.Request) {
	var input boardPayload
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.d.Sync(Board(strings.ToUpper(input.Board))); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) setUpdateMode(w http.ResponseWriter, r *http.Request) {
	var input boardPayload
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.d.SetSynchronousUpdate(Board(strings.ToUpper(input.Board)), input.Sync)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type rampRequest struct {
	Generator string `json:"generator"`

	// Action is one of START, STOP, HOLD for control requests
	Action string `json:"action"`

	// Start begins the ramp after programming
	Start bool `json:"start"`

	RampConfig
}

func (h HTTPWrapper) programRamp(w http.ResponseWriter, r *http.Request) {
	var input rampRequest
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ramp, err := h.d.Ramp(input.Generator)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := ramp.Program(input.RampConfig, input.Start); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) controlRamp(w http.ResponseWriter, r *http.Request) {
	var input rampRequest
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ramp, err := h.d.Ramp(input.Generator)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch strings.ToUpper(input.Action) {
	case "START":
		err = ramp.Start()
	case "STOP":
		err = ramp.Stop()
	case "HOLD":
		err = ramp.Hold()
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", input.Action), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) rampState(w http.ResponseWriter, r *http.Request) {
	var input rampRequest
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ramp, err := h.d.Ramp(input.Generator)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state, err := ramp.State()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.String, String: state.String()}
	hp.EncodeAndRespond(w, r)
}

func (h HTTPWrapper) controlAWG(w http.ResponseWriter, r *http.Request) {
	var input rampRequest
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.EqualFold(input.Generator, "ALL") {
		switch strings.ToUpper(input.Action) {
		case "START":
			err = h.d.StartAllAWGs()
		case "STOP":
			err = h.d.StopAllAWGs()
		default:
			http.Error(w, fmt.Sprintf("unknown action %q", input.Action), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}
	awg, err := h.d.AWG(input.Generator)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch strings.ToUpper(input.Action) {
	case "START":
		err = awg.Start()
	case "STOP":
		err = awg.Stop()
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", input.Action), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) programWaveform(w http.ResponseWriter, r *http.Request) {
	var cfg WaveformConfig
	err := json.NewDecoder(r.Body).Decode(&cfg)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.d.ProgramWaveform(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) uploadWaveform(w http.ResponseWriter, r *http.Request) {
	var cfg HostWaveformConfig
	err := json.NewDecoder(r.Body).Decode(&cfg)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.d.UploadWaveform(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type polynomialPayload struct {
	Memory string `json:"memory"`

	Coefficients []float64 `json:"coefficients"`
}

func (h HTTPWrapper) setPolynomial(w http.ResponseWriter, r *http.Request) {
	var input polynomialPayload
	err := json.NewDecoder(r.Body).Decode(&input)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.d.SetPolynomial(input.Memory, input.Coefficients); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) identification(w http.ResponseWriter, r *http.Request) {
	id, err := h.d.Identification()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.String, String: id}
	hp.EncodeAndRespond(w, r)
}
