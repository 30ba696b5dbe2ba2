// Package daq provides a generic HTTP interface to DAC devices.
//
// HTTP is not the last word in latency, but it is the last word in ease of
// use from any client language.
package daq

import (
	"encoding/json"
	"net/http"

	"github.com/qtlab/instruments/server"

	"goji.io/pat"
)

// DAC is a model for a simple digital to analog converter
type DAC interface {
	// Output sends a voltage on a given channel
	Output(int, float64) error

	// Voltage reads back the output voltage on a given channel
	Voltage(int) (float64, error)
}

// MultiChannelDAC is a DAC whose channels can be written as a group
type MultiChannelDAC interface {
	DAC

	// OutputMulti writes a sequence of voltages to a sequence of channels
	OutputMulti([]int, []float64) error
}

// Switcher is a DAC with per-channel output enable
type Switcher interface {
	// On turns a channel's output on
	On(int) error

	// Off turns a channel's output off
	Off(int) error
}

type channelVoltage struct {
	Channel int `json:"channel"`

	Voltage float64 `json:"voltage"`
}

type channelsVoltages struct {
	Channels []int `json:"channel"`

	Voltages []float64 `json:"voltage"`
}

type channelOnOff struct {
	Channel int `json:"channel"`

	On bool `json:"on"`
}

// HTTPDAC wraps a DAC (and whatever optional interfaces it satisfies) in a
// route table
type HTTPDAC struct {
	d DAC

	RouteTable server.RouteTable
}

// NewHTTPDAC returns a new HTTP wrapper around d with the route table
// populated according to the interfaces d satisfies
func NewHTTPDAC(d DAC) HTTPDAC {
	w := HTTPDAC{d: d}
	rt := server.RouteTable{
		pat.Post("/output"): Output(d),
		pat.Get("/voltage"): Voltage(d),
	}
	if m, ok := d.(MultiChannelDAC); ok {
		rt[pat.Post("/output-multi")] = OutputMulti(m)
	}
	if s, ok := d.(Switcher); ok {
		rt[pat.Post("/on-off")] = OnOff(s)
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPDAC) RT() server.RouteTable {
	return h.RouteTable
}

// Output returns an HTTP handler that writes a voltage to a channel
func Output(d DAC) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input channelVoltage
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = d.Output(input.Channel, input.Voltage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Voltage returns an HTTP handler that reads back a channel's voltage.
// The channel is passed in the body, {"channel": n}.
func Voltage(d DAC) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input channelVoltage
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		v, err := d.Voltage(input.Channel)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		input.Voltage = v
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(input)
	}
}

// OutputMulti returns an HTTP handler that writes voltages to several
// channels in one request
func OutputMulti(d MultiChannelDAC) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input channelsVoltages
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = d.OutputMulti(input.Channels, input.Voltages)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// OnOff returns an HTTP handler that enables or disables a channel
func OnOff(s Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input channelOnOff
		err := json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if input.On {
			err = s.On(input.Channel)
		} else {
			err = s.Off(input.Channel)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
