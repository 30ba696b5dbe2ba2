// dacsrv exposes a single LNHR DAC SP1060 over HTTP.
package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	"github.com/qtlab/instruments/basel"
	"github.com/qtlab/instruments/server/middleware/locker"
)

// ConfigFileName is what it sounds like
const ConfigFileName = "dacsrv.yml"

// Config holds the connection and listen addresses
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// DAC is the host:port of the instrument's ethernet interface
	DAC string `yaml:"DAC"`
}

var k = koanf.New(".")

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr: ":8001",
		DAC:  "192.168.0.5:23"}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

// probe spins while the first round trip to the instrument completes, so
// a wrong address is obvious instead of a silent hang
func probe(d *basel.SP1060) {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " probing DAC",
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	}
	spinner, err := yacspin.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()
	idn, err := d.Identification()
	if err != nil {
		spinner.StopFail()
		log.Fatalf("DAC unreachable: %v", err)
	}
	spinner.Message(idn)
	spinner.Stop()
	log.Println("connected to", idn)
}

func main() {
	setupconfig()
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}

	d := basel.NewSP1060(c.DAC)
	probe(d)

	httpD := basel.NewHTTPWrapper(d)
	lock := locker.New()
	locker.Inject(httpD, lock)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	r := chi.NewRouter()
	r.Use(lock.Check)
	httpD.RT().Bind(r)
	root.Mount("/dac", r)

	log.Println("now listening for requests at", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, root))
}
