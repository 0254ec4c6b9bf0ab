package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"goji.io"

	"github.com/jpsecher/labawg/generichttp"
	"github.com/jpsecher/labawg/generichttp/ascii"
	"github.com/jpsecher/labawg/server/middleware/locker"
	"github.com/jpsecher/labawg/tektronix"
	"github.com/jpsecher/labawg/util"
)

// ObjSetup holds the typical triplet of args for a New<device> call.
type ObjSetup struct {
	// Addr holds the network address of the remote device,
	// e.g. 192.168.100.123:4000.  Ignored for USB devices.
	Addr string `yaml:"Addr"`

	// Endpoint is the final "directory" to put device functionality under,
	// it will be prepended to routes.
	// ex. Endpoint="/omc/awg" will produce routes of /omc/awg/run, etc.
	Endpoint string `yaml:"Endpoint"`

	// USB determines if the connection is USBTMC (true) or TCP (false)
	USB bool `yaml:"USB"`

	// VID is the USB vendor ID, only used when USB is true
	VID uint16 `yaml:"VID"`

	// PID is the USB product ID, only used when USB is true
	PID uint16 `yaml:"PID"`

	// Type is the "type" of the device, e.g. AWG5014
	Type string `yaml:"Type"`

	// Limits holds server-imposed bounds per settable level, e.g.
	// amplitude: {Min: -2, Max: 2}
	Limits map[string]Minmax `yaml:"Limits"`
}

// Minmax holds a min and max value
type Minmax struct {
	Min float64 `yaml:"Min"`
	Max float64 `yaml:"Max"`
}

// Config is a struct that holds the initialization parameters for the
// HTTP adapted devices.  It is to be populated by a yaml/unmarshal call.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Nodes is the list of nodes to set up
	Nodes []ObjSetup `yaml:"Nodes"`
}

// BuildMux uses the config to construct a chi router with a populated
// submux per device.  The mux serves a special route, /endpoints, which
// returns a map of mount points to their routes as JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	for _, node := range c.Nodes {
		var httper generichttp.HTTPer
		limiters := map[string]util.Limiter{}
		for level, mm := range node.Limits {
			limiters[level] = util.Limiter{Min: mm.Min, Max: mm.Max}
		}
		limiter := tektronix.LimitMiddleware{Limits: limiters}
		typ := strings.ToLower(node.Type)
		switch typ {
		case "awg5014", "awg5000", "tek-awg":
			var awg *tektronix.AWG5014
			if node.USB {
				awg = tektronix.NewAWG5014USB(node.VID, node.PID)
			} else {
				awg = tektronix.NewAWG5014(node.Addr)
			}
			wrapper := tektronix.NewHTTPWrapper(awg)
			ascii.InjectRawComm(wrapper, &awg.SCPI)
			limiter.Inject(wrapper)
			httper = wrapper
		default:
			log.Fatal("type ", typ, " not understood")
		}

		// prepare the URL, "omc/awg" => "/omc/awg/*"
		hndlS := generichttp.SubMuxSanitize(node.Endpoint)

		// add the endpoints to the graph
		supergraph[hndlS] = httper.RT().Endpoints()

		// add a lock interface for this node
		lock := locker.New()
		locker.Inject(httper, lock)

		// bind to the mux.  goji matches on URL.Path, so peel the mount
		// point off before handing requests down.
		m := goji.NewMux()
		m.Use(limiter.Check)
		m.Use(lock.Check)
		httper.RT().Bind(m)
		root.Mount(hndlS, http.StripPrefix(strings.TrimSuffix(hndlS, "/*"), m))
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
