package tektronix

import (
	"encoding/json"
	"go/types"
	"net/http"
	"strconv"

	"goji.io/pat"

	"github.com/jpsecher/labawg/awgfile"
	"github.com/jpsecher/labawg/generichttp"
)

// HTTPWrapper provides an HTTP interface to an AWG5014
type HTTPWrapper struct {
	// AWG is the instrument being exposed
	AWG *AWG5014

	// RouteTable maps method-path pairs to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(a *AWG5014) HTTPWrapper {
	w := HTTPWrapper{AWG: a}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/run"}:     w.Run,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/stop"}:    w.Stop,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/state"}:    generichttp.GetInt(a.GetState),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/trigger"}: w.ForceTrigger,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/event"}:   w.ForceEvent,

		generichttp.MethodPath{Method: http.MethodGet, Path: "/clock-frequency"}:  generichttp.GetFloat(a.GetClockFrequency),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/clock-frequency"}: generichttp.SetFloat(a.SetClockFrequency),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/run-mode"}:         generichttp.GetString(a.GetRunMode),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/run-mode"}:        generichttp.SetString(a.SetRunMode),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/clock-source"}:     generichttp.GetString(a.GetClockSource),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/clock-source"}:    generichttp.SetString(a.SetClockSource),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/trigger-level"}:    generichttp.GetFloat(a.GetTriggerLevel),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/trigger-level"}:   generichttp.SetFloat(a.SetTriggerLevel),

		generichttp.MethodPath{Method: http.MethodGet, Path: "/channel/:ch/amplitude"}:  w.channelGetFloat(a.GetAmplitude),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/channel/:ch/amplitude"}: w.channelSetFloat(a.SetAmplitude),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/channel/:ch/offset"}:     w.channelGetFloat(a.GetOffset),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/channel/:ch/offset"}:    w.channelSetFloat(a.SetOffset),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/channel/:ch/output"}:     w.channelGetBool(a.GetOutputState),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/channel/:ch/output"}:    w.channelSetBool(a.SetOutputState),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/channel/:ch/filter"}:     w.channelGetFloat(a.GetFilter),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/channel/:ch/filter"}:    w.channelSetFloat(a.SetFilter),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/channel/:ch/waveform"}:   w.channelGetString(a.GetChannelWaveform),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/channel/:ch/waveform"}:  w.channelSetString(a.SetChannelWaveform),

		generichttp.MethodPath{Method: http.MethodPost, Path: "/sequence"}: w.UploadSequence,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// Run starts the instrument over HTTP
func (h HTTPWrapper) Run(w http.ResponseWriter, r *http.Request) {
	callAndRespond(w, h.AWG.Run)
}

// Stop stops the instrument over HTTP
func (h HTTPWrapper) Stop(w http.ResponseWriter, r *http.Request) {
	callAndRespond(w, h.AWG.Stop)
}

// ForceTrigger generates a trigger event over HTTP
func (h HTTPWrapper) ForceTrigger(w http.ResponseWriter, r *http.Request) {
	callAndRespond(w, h.AWG.ForceTrigger)
}

// ForceEvent generates a forced event over HTTP
func (h HTTPWrapper) ForceEvent(w http.ResponseWriter, r *http.Request) {
	callAndRespond(w, h.AWG.ForceEvent)
}

func callAndRespond(w http.ResponseWriter, fcn func() error) {
	err := fcn()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func channelNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	ch, err := strconv.Atoi(pat.Param(r, "ch"))
	if err != nil || ch < 1 || ch > awgfile.MaxChannels {
		http.Error(w, "channel must be an integer in 1..4", http.StatusBadRequest)
		return 0, false
	}
	return ch, true
}

func (h HTTPWrapper) channelGetFloat(fcn func(int) (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelNumber(w, r)
		if !ok {
			return
		}
		generichttp.GetFloat(func() (float64, error) { return fcn(ch) })(w, r)
	}
}

func (h HTTPWrapper) channelSetFloat(fcn func(int, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelNumber(w, r)
		if !ok {
			return
		}
		generichttp.SetFloat(func(v float64) error { return fcn(ch, v) })(w, r)
	}
}

func (h HTTPWrapper) channelGetBool(fcn func(int) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelNumber(w, r)
		if !ok {
			return
		}
		generichttp.GetBool(func() (bool, error) { return fcn(ch) })(w, r)
	}
}

func (h HTTPWrapper) channelSetBool(fcn func(int, bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelNumber(w, r)
		if !ok {
			return
		}
		generichttp.SetBool(func(v bool) error { return fcn(ch, v) })(w, r)
	}
}

func (h HTTPWrapper) channelGetString(fcn func(int) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelNumber(w, r)
		if !ok {
			return
		}
		generichttp.GetString(func() (string, error) { return fcn(ch) })(w, r)
	}
}

func (h HTTPWrapper) channelSetString(fcn func(int, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelNumber(w, r)
		if !ok {
			return
		}
		generichttp.SetString(func(s string) error { return fcn(ch, s) })(w, r)
	}
}

// sequenceUpload is the JSON request body for the sequence upload route
type sequenceUpload struct {
	Waveforms []Waveform        `json:"waveforms"`
	Elements  []sequenceElement `json:"elements"`
	Filename  string            `json:"filename"`
	Preserve  bool              `json:"preserveChannelSettings"`
}

type sequenceElement struct {
	Wait      int            `json:"wait"`
	Loops     int            `json:"loops"`
	Jump      int            `json:"jump"`
	Goto      int            `json:"goto"`
	Waveforms map[int]string `json:"waveforms"`
}

// UploadSequence packs, assembles, sends and loads a full sequence
// described by the JSON request body
func (h HTTPWrapper) UploadSequence(w http.ResponseWriter, r *http.Request) {
	up := sequenceUpload{}
	err := json.NewDecoder(r.Body).Decode(&up)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if up.Filename == "" {
		up.Filename = "sequence.awg"
	}
	elements := make([]awgfile.SequenceElement, len(up.Elements))
	for i, el := range up.Elements {
		elements[i] = awgfile.SequenceElement{
			Wait:      el.Wait,
			Loops:     el.Loops,
			Jump:      el.Jump,
			Goto:      el.Goto,
			Waveforms: el.Waveforms,
		}
	}
	err = h.AWG.UploadSequence(up.Waveforms, elements, up.Filename, up.Preserve)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := generichttp.HumanPayload{T: types.String, String: up.Filename}
	hp.EncodeAndRespond(w, r)
}
