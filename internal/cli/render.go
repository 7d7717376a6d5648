package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/roach88/rstate/internal/harness"
	"github.com/roach88/rstate/internal/store"
	"github.com/roach88/rstate/internal/value"
)

// EventView is one trace event as printed by run and trace.
type EventView struct {
	Seq    int64           `json:"seq"`
	Type   string          `json:"type"`
	Path   string          `json:"path"`
	Op     string          `json:"op,omitempty"`
	Method string          `json:"method,omitempty"`
	Value  json.RawMessage `json:"value"`
}

func viewsFromTrace(trace []harness.TraceEvent) []EventView {
	views := make([]EventView, len(trace))
	for i, ev := range trace {
		views[i] = EventView{
			Seq:    ev.Seq,
			Type:   ev.Type,
			Path:   ev.Path,
			Op:     ev.Op,
			Method: ev.Method,
			Value:  rawValue(ev.Value),
		}
	}
	return views
}

func viewsFromJournal(events []store.Event) []EventView {
	views := make([]EventView, len(events))
	for i, ev := range events {
		views[i] = EventView{
			Seq:    ev.Seq,
			Type:   ev.Type,
			Path:   ev.Path,
			Op:     ev.Op,
			Method: ev.Method,
			Value:  rawValue(ev.Value),
		}
	}
	return views
}

// rawValue encodes v as canonical JSON. A value that cannot be encoded
// (a cycle) is shown as its Format string.
func rawValue(v value.Value) json.RawMessage {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return json.RawMessage(strconv.Quote(value.Format(v)))
	}
	return data
}

func writeEvents(w io.Writer, events []EventView) {
	for _, ev := range events {
		p := ev.Path
		if p == "" {
			p = "<root>"
		}
		action := ev.Type
		if ev.Method != "" {
			action += " " + ev.Method
		} else if ev.Op != "" {
			action += " " + ev.Op
		}
		fmt.Fprintf(w, "  %4d  %-16s %s = %s\n", ev.Seq, action, p, ev.Value)
	}
}
