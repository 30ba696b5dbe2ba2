package thinkrf

import (
	"encoding/json"
	"net/http"

	"goji.io/pat"

	"github.com/qtlab/instruments/generichttp"
	"github.com/qtlab/instruments/server"
)

// captureRequest is the JSON payload for a block capture
type captureRequest struct {
	SamplesPerPacket int `json:"samplesPerPacket"`
	Packets          int `json:"packets"`
}

// HTTPWrapper exposes an R5500 over HTTP
type HTTPWrapper struct {
	sa *R5500

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a newly populated HTTP adapter for a spectrum
// analyzer
func NewHTTPWrapper(sa *R5500) HTTPWrapper {
	w := HTTPWrapper{sa: sa}
	rt := server.RouteTable{
		pat.Get("/center-frequency"):  generichttp.GetFloat(sa.GetCenterFrequency),
		pat.Post("/center-frequency"): generichttp.SetFloat(sa.SetCenterFrequency),
		pat.Get("/frequency-shift"):   generichttp.GetFloat(sa.GetFrequencyShift),
		pat.Post("/frequency-shift"):  generichttp.SetFloat(sa.SetFrequencyShift),

		pat.Get("/attenuation"):  generichttp.GetInt(sa.GetAttenuation),
		pat.Post("/attenuation"): generichttp.SetInt(sa.SetAttenuation),
		pat.Get("/input-mode"):   generichttp.GetString(sa.GetInputMode),
		pat.Post("/input-mode"):  generichttp.SetString(sa.SetInputMode),
		pat.Get("/gain"):         generichttp.GetString(sa.GetGain),
		pat.Post("/gain"):        generichttp.SetString(sa.SetGain),
		pat.Get("/decimation"):   generichttp.GetInt(sa.GetDecimation),
		pat.Post("/decimation"):  generichttp.SetInt(sa.SetDecimation),

		pat.Post("/capture"): w.Capture,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// Capture runs a block capture and responds with the normalized samples
// as CSV
func (h HTTPWrapper) Capture(w http.ResponseWriter, r *http.Request) {
	body := captureRequest{}
	err := json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.sa.CaptureBlock(body.SamplesPerPacket, body.Packets)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.CSVFloats(w, c.Normalized())
}
