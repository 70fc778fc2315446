// Command journal-replay is the offline tool that scans a journal
// device and prints its recovered, well-ordered event stream.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/behrlich/mjournal/internal/layout"
	"github.com/behrlich/mjournal/internal/replay"
)

// eventJSON is the stable wire shape for --json output; it exists so
// the fixed-width byte-array text fields in layout.Payload don't leak
// into the CLI's JSON as base64 blobs.
type eventJSON struct {
	TxID        uint64 `json:"tx_id"`
	TimestampMs uint64 `json:"timestamp_ms"`
	Ino         uint32 `json:"ino"`
	ParentIno   uint32 `json:"parent_ino"`
	Action      string `json:"action"`
	Name        string `json:"name"`
	OldName     string `json:"old_name,omitempty"`
	NewName     string `json:"new_name,omitempty"`
	Target      string `json:"target,omitempty"`
}

func toJSON(p layout.Payload) eventJSON {
	return eventJSON{
		TxID:        p.TxID,
		TimestampMs: p.TimestampMs,
		Ino:         p.Ino,
		ParentIno:   p.ParentIno,
		Action:      layout.GetField(&p.Action),
		Name:        layout.GetField(&p.Name),
		OldName:     layout.GetField(&p.OldName),
		NewName:     layout.GetField(&p.NewName),
		Target:      layout.GetField(&p.Target),
	}
}

func main() {
	var (
		device  = pflag.StringP("device", "d", "/tmp/journal-pipe", "path to the journal backing device")
		asJSON  = pflag.Bool("json", false, "emit events as JSON instead of a text table")
		verbose = pflag.BoolP("verbose", "v", false, "also print replay warnings")
	)
	pflag.Parse()

	res, err := replay.Replay(*device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "journal-replay: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		for _, w := range res.Warnings {
			fmt.Fprintln(os.Stderr, w)
		}
	}

	if *asJSON {
		events := make([]eventJSON, len(res.Events))
		for i, p := range res.Events {
			events[i] = toJSON(p)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(events); err != nil {
			fmt.Fprintf(os.Stderr, "journal-replay: encode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	for _, p := range res.Events {
		fmt.Printf("tx=%d ts=%d ino=%d action=%s name=%s\n",
			p.TxID, p.TimestampMs, p.Ino, layout.GetField(&p.Action), layout.GetField(&p.Name))
	}
	fmt.Fprintf(os.Stderr, "%d events, %d warnings\n", len(res.Events), len(res.Warnings))
}
