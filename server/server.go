// Package server contains the plumbing shared by the HTTP adapters:
// typed JSON payloads, the route table, and the HTTPer interface.
package server

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"goji.io"
	"goji.io/pat"
)

// StrT is a struct with a single Str field, used for JSON string payloads
type StrT struct {
	Str string `json:"str"`
}

// FloatT is a struct with a single F64 field, used for JSON float payloads
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single Int field, used for JSON int payloads
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single Bool field, used for JSON bool payloads
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a container for a single value of a basic type which
// knows how to reply to an HTTP request with itself
type HumanPayload struct {
	// T is the type of the value
	T types.BasicKind

	Float  float64
	Int    int
	String string
	Bool   bool
}

// EncodeAndRespond writes the payload to w as JSON with the appropriate
// single-key object ({"f64": ...}, {"int": ...}, and so on)
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var (
		obj interface{}
		err error
	)
	switch hp.T {
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.String:
		obj = StrT{Str: hp.String}
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	default:
		http.Error(w, fmt.Sprintf("unknown payload type %v", hp.T), http.StatusInternalServerError)
		return
	}
	err = json.NewEncoder(w).Encode(obj)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// CSVFloats writes a slice of floats to w as a single CSV row
func CSVFloats(w http.ResponseWriter, fs []float64) {
	w.Header().Set("Content-Type", "text/csv")
	row := make([]string, len(fs))
	for i, f := range fs {
		row[i] = strconv.FormatFloat(f, 'G', -1, 64)
	}
	cw := csv.NewWriter(w)
	cw.Write(row)
	cw.Flush()
}

// RouteTable maps goji patterns to handler funcs
type RouteTable map[goji.Pattern]http.HandlerFunc

// Endpoints returns the URL fragments served by the table
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, fmt.Sprint(k))
	}
	return routes
}

// Bind attaches every route in the table to r.  Patterns built with
// pat.Get/Post/Delete carry their method; bare patterns answer any method.
func (rt RouteTable) Bind(r chi.Router) {
	for p, handler := range rt {
		if pp, ok := p.(*pat.Pattern); ok {
			meths := pp.HTTPMethods()
			if meths != nil {
				for meth := range meths {
					r.Method(meth, pp.String(), handler)
				}
				continue
			}
			r.Handle(pp.String(), handler)
			continue
		}
		r.Handle(fmt.Sprint(p), handler)
	}
}

// HTTPer is an object which exposes its functionality over a route table
type HTTPer interface {
	RT() RouteTable
}
