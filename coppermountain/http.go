package coppermountain

import (
	"encoding/json"
	"net/http"

	"goji.io/pat"

	"github.com/qtlab/instruments/generichttp"
	"github.com/qtlab/instruments/server"
)

// HTTPWrapper exposes an M5180 over HTTP
type HTTPWrapper struct {
	v *M5180

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a newly populated HTTP adapter for a VNA
func NewHTTPWrapper(v *M5180) HTTPWrapper {
	w := HTTPWrapper{v: v}
	rt := server.RouteTable{
		pat.Get("/start-frequency"):   generichttp.GetFloat(v.GetStartFrequency),
		pat.Post("/start-frequency"):  generichttp.SetFloat(v.SetStartFrequency),
		pat.Get("/stop-frequency"):    generichttp.GetFloat(v.GetStopFrequency),
		pat.Post("/stop-frequency"):   generichttp.SetFloat(v.SetStopFrequency),
		pat.Get("/center-frequency"):  generichttp.GetFloat(v.GetCenterFrequency),
		pat.Post("/center-frequency"): generichttp.SetFloat(v.SetCenterFrequency),
		pat.Get("/span"):              generichttp.GetFloat(v.GetSpan),
		pat.Post("/span"):             generichttp.SetFloat(v.SetSpan),

		pat.Get("/points"):        generichttp.GetInt(v.GetPoints),
		pat.Post("/points"):       generichttp.SetInt(v.SetPoints),
		pat.Get("/if-bandwidth"):  generichttp.GetFloat(v.GetIFBandwidth),
		pat.Post("/if-bandwidth"): generichttp.SetFloat(v.SetIFBandwidth),
		pat.Get("/power"):         generichttp.GetFloat(v.GetPower),
		pat.Post("/power"):        generichttp.SetFloat(v.SetPower),
		pat.Get("/output"):        generichttp.GetBool(v.GetOutput),
		pat.Post("/output"):       generichttp.SetBool(v.SetOutput),

		pat.Get("/format"):       generichttp.GetString(v.GetFormat),
		pat.Post("/format"):      generichttp.SetString(v.SetFormat),
		pat.Post("/s-parameter"): w.SetSParameter,

		pat.Get("/trace"):          w.Trace,
		pat.Get("/frequency-axis"): w.FrequencyAxis,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// SetSParameter assigns an S parameter to a trace from a JSON payload
func (h HTTPWrapper) SetSParameter(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Trace     int    `json:"trace"`
		Parameter string `json:"parameter"`
	}{}
	err := json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.v.SetTraceParameter(body.Trace, body.Parameter); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.v.SelectTrace(body.Trace); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Trace runs a single sweep and responds with the formatted trace as CSV
func (h HTTPWrapper) Trace(w http.ResponseWriter, r *http.Request) {
	data, err := h.v.Acquire()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.CSVFloats(w, data)
}

// FrequencyAxis responds with the stimulus frequencies as CSV
func (h HTTPWrapper) FrequencyAxis(w http.ResponseWriter, r *http.Request) {
	data, err := h.v.FrequencyAxis()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.CSVFloats(w, data)
}
