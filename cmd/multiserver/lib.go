package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/tarm/serial"

	"github.com/qtlab/instruments/agilent"
	"github.com/qtlab/instruments/anapico"
	"github.com/qtlab/instruments/basel"
	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/coppermountain"
	"github.com/qtlab/instruments/generichttp"
	"github.com/qtlab/instruments/generichttp/daq"
	"github.com/qtlab/instruments/generichttp/tmc"
	"github.com/qtlab/instruments/ivvi"
	"github.com/qtlab/instruments/keysight"
	"github.com/qtlab/instruments/rohdeschwarz"
	"github.com/qtlab/instruments/server"
	"github.com/qtlab/instruments/server/middleware/locker"
	"github.com/qtlab/instruments/thinkrf"
)

// ObjSetup holds the typical triplet of args for a New<device> call.
// Serial is not always used, and need not be populated in the config file
// if not used.
type ObjSetup struct {
	// Addr holds the network or filesystem address of the remote device,
	// e.g. 192.168.100.123:23 for the ethernet port of a DAC, or
	// /dev/ttyUSB0 for an RS232 device on a serial cable
	Addr string `yaml:"Addr"`

	// Endpoint is the final "directory" to put the device's routes under,
	// ex. Endpoint="qt/dac" produces routes of /qt/dac/voltage, etc.
	Endpoint string `yaml:"Endpoint"`

	// Serial determines if the connection is serial/RS232 (true) or TCP (false)
	Serial bool `yaml:"Serial"`

	// Type is the "type" of the device, e.g. SP1060
	Type string `yaml:"Type"`

	// Args holds any extra arguments to pass into the constructor
	Args map[string]interface{} `yaml:"Args"`
}

// Config is a struct that holds the initialization parameters for various
// HTTP adapted devices.  It is to be populated by a yaml unmarshal call.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Nodes is the list of nodes to set up
	Nodes []ObjSetup `yaml:"Nodes"`
}

func argInt(args map[string]interface{}, key string, def int) int {
	if args == nil {
		return def
	}
	if v, ok := args[key]; ok {
		if i, ok := v.(int); ok {
			return i
		}
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return def
}

func argStrings(args map[string]interface{}, key string) []string {
	if args == nil {
		return nil
	}
	v, ok := args[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// BuildMux builds a chi router with a submux per configured node.
// The mux serves a special route, /endpoints, which returns a map of
// all node routes as JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	for _, node := range c.Nodes {
		var httper server.HTTPer
		typ := strings.ToLower(node.Type)
		switch typ {
		case "sp1060", "lnhr-dac", "basel":
			var d *basel.SP1060
			if node.Serial {
				d = basel.NewSP1060Serial(&serial.Config{
					Name:        node.Addr,
					Baud:        115200,
					ReadTimeout: 3 * time.Second})
			} else {
				d = basel.NewSP1060(node.Addr)
			}
			httper = basel.NewHTTPWrapper(d)

		case "ivvi", "ivvi-d5":
			numDACs := argInt(node.Args, "NumDACs", 16)
			polStrs := argStrings(node.Args, "Polarities")
			pol := make([]ivvi.Polarity, 0, len(polStrs))
			for _, p := range polStrs {
				pol = append(pol, ivvi.Polarity(strings.ToUpper(p)))
			}
			var (
				rack *ivvi.IVVI
				err  error
			)
			if node.Serial {
				rack, err = ivvi.NewSerial(node.Addr, numDACs, pol)
			} else {
				rack, err = ivvi.NewTCP(node.Addr, numDACs, pol)
			}
			if err != nil {
				log.Fatalf("node %s: %v", node.Endpoint, err)
			}
			httper = daq.NewHTTPDAC(rack)

		case "apsin20g", "anapico":
			gen := anapico.NewAPSIN20G(node.Addr)
			httper = tmc.NewHTTPRFSignalGenerator(gen)

		case "m5180", "coppermountain", "vna":
			vna := coppermountain.NewM5180(node.Addr)
			httper = coppermountain.NewHTTPWrapper(vna)

		case "r5500", "thinkrf":
			// Addr is the bare hostname; the control and data ports
			// are well known
			sa := thinkrf.NewR5500(node.Addr)
			httper = thinkrf.NewHTTPWrapper(sa)

		case "hmc8041", "hmc8042", "hmc8043", "hmc804x":
			channels := argInt(node.Args, "Channels", 0)
			if channels == 0 {
				switch typ {
				case "hmc8041":
					channels = 1
				case "hmc8042":
					channels = 2
				default:
					channels = 3
				}
			}
			psu, err := rohdeschwarz.NewHMC804x(node.Addr, channels)
			if err != nil {
				log.Fatalf("node %s: %v", node.Endpoint, err)
			}
			httper = rohdeschwarz.NewHTTPWrapper(psu)

		case "u2751a", "switch-matrix":
			delay := time.Duration(argInt(node.Args, "RelayDelayMS", 50)) * time.Millisecond
			var matrix *keysight.U2751A
			if node.Addr != "" {
				// LAN-attached via a USB gateway
				matrix = keysight.NewU2751A(
					comm.BackingOffTCPConnMaker(node.Addr, 3*time.Second), delay)
			} else {
				matrix = keysight.NewU2751AUSB(delay)
			}
			httper = keysight.NewHTTPWrapper(matrix)

		case "agilent-function-generator", "33220a":
			gen := agilent.NewFunctionGenerator(node.Addr, node.Serial)
			httper = tmc.NewHTTPFunctionGenerator(gen)

		default:
			log.Fatal("type ", typ, " not understood")
		}

		// prepare the URL, "qt/dac" => "/qt/dac/*"
		hndlS := generichttp.SubMuxSanitize(node.Endpoint)

		// add the endpoints to the graph
		supergraph[hndlS] = httper.RT().Endpoints()

		// add a lock interface for this node
		lock := locker.New()
		locker.Inject(httper, lock)

		// bind to the mux
		r := chi.NewRouter()
		r.Use(lock.Check)
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
