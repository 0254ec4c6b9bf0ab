// Package generichttp defines interfaces for generic devices
// and an extensible type that wraps them in an HTTP interface
package generichttp

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"strings"

	"goji.io"
	"goji.io/pat"
)

// HumanPayload is a struct containing the basic types web clients can work with
type HumanPayload struct {
	// Bool holds a binary value
	Bool bool

	// Float holds a floating point value
	Float float64

	// Int holds an integer value
	Int int

	// String holds a string value
	String string

	// T is the type of the value actually contained in the payload
	T types.BasicKind
}

// EncodeAndRespond writes the payload to w as JSON with the key named
// for its type, the same shape the Set* handlers parse
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	var obj interface{}
	switch hp.T {
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.String:
		obj = StrT{Str: hp.String}
	default:
		http.Error(w, fmt.Sprintf("unknown payload kind %v", hp.T), http.StatusInternalServerError)
		return
	}
	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		fstr := fmt.Sprintf("error encoding data to json %q", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}

// FloatT is a struct with a single field, F64, used for json requests/responses
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single field, Int, used for json requests/responses
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single field, Str, used for json requests/responses
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single field, Bool, used for json requests/responses
type BoolT struct {
	Bool bool `json:"bool"`
}

// MethodPath is a tuple of HTTP method and URL path used as a route table key
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method-path pairs to HTTP handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns the URL paths in the route table
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k.Path)
	}
	return routes
}

// Bind attaches each route in the table to the mux
func (rt RouteTable) Bind(m *goji.Mux) {
	for mp, handler := range rt {
		var p goji.Pattern
		switch mp.Method {
		case http.MethodGet:
			p = pat.Get(mp.Path)
		case http.MethodPost:
			p = pat.Post(mp.Path)
		case http.MethodPut:
			p = pat.Put(mp.Path)
		case http.MethodDelete:
			p = pat.Delete(mp.Path)
		default:
			p = pat.NewWithMethods(mp.Path, mp.Method)
		}
		m.HandleFunc(p, handler)
	}
}

// HTTPer is an object which can yield a route table to be bound to a mux
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize transforms an endpoint, e.g. "omc/awg" into
// the pattern its submux is mounted at, "/omc/awg/*"
func SubMuxSanitize(stem string) string {
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	if !strings.HasSuffix(stem, "/*") {
		if strings.HasSuffix(stem, "/") {
			stem = stem + "*"
		} else {
			stem = stem + "/*"
		}
	}
	return stem
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// SetFloat parses a JSON input of {'f64': value} and
// calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(f.F64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetInt calls an int-getting function and returns the response
// as json {'int': value}
func GetInt(fcn func() (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Int, Int: i}
		hp.EncodeAndRespond(w, r)
	}
}

// SetInt parses a JSON input of {'int': value} and
// calls fcn with it
func SetInt(fcn func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := IntT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(f.Int)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// SetString parses a JSON input of {'str': value} and
// calls fcn with it
func SetString(fcn func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := StrT{}
		err := json.NewDecoder(r.Body).Decode(&s)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(s.Str)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and
// calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(b.Bool)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
