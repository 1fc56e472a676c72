package cmd

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/pointerlock/internal/config"
	"github.com/bnema/pointerlock/internal/logger"
	"github.com/bnema/pointerlock/internal/ui"
	"github.com/bnema/pointerlock/pointerlock"
	"github.com/bnema/pointerlock/wlclient"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether the compositor supports pointer lock",
	Long: `Connect to the compositor, run discovery and report which of the
globals needed for pointer lock and relative motion are available.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().Duration("timeout", config.DefaultConfig.Lock.RoundtripTimeout, "timeout for each discovery roundtrip")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	display, err := wlclient.Connect(displayName)
	if err != nil {
		return err
	}
	defer display.Close()

	rec := newGlobalRecorder(display)
	state := pointerlock.New(pointerlock.WithRoundtripTimeout(cfg.Lock.RoundtripTimeout))
	initErr := state.Initialize(cmd.Context(), rec, nil)
	pointerOK := initErr == nil && state.Status().Pointer
	state.Close()
	logger.Debug("Advertised globals", "interfaces", rec.names())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatHeader("Pointer lock support"))
	fmt.Fprintln(out, ui.FormatTable(probeRows(rec.globals(), pointerOK)))

	if initErr != nil {
		return fmt.Errorf("pointer lock unavailable: %w", initErr)
	}
	fmt.Fprintln(out, ui.SuccessStyle.Render("Pointer lock and relative motion are supported"))
	return nil
}

var probedInterfaces = []string{
	pointerlock.InterfaceCompositor,
	pointerlock.InterfaceSeat,
	pointerlock.InterfacePointerConstraints,
	pointerlock.InterfaceRelativePointerManager,
}

func probeRows(seen map[string]uint32, pointerOK bool) []ui.Row {
	rows := make([]ui.Row, 0, len(probedInterfaces)+1)
	for _, iface := range probedInterfaces {
		v, ok := seen[iface]
		value := "not advertised"
		if ok {
			value = fmt.Sprintf("version %d", v)
		}
		rows = append(rows, ui.Row{Label: iface, Value: value, OK: ok})
	}

	value := "no pointer capability"
	if pointerOK {
		value = "acquired"
	}
	rows = append(rows, ui.Row{Label: "wl_pointer", Value: value, OK: pointerOK})
	return rows
}

// globalRecorder notes every global the registry announces while passing
// calls through to the real display.
type globalRecorder struct {
	pointerlock.Display

	mu   sync.Mutex
	seen map[string]uint32
}

func newGlobalRecorder(d pointerlock.Display) *globalRecorder {
	return &globalRecorder{Display: d, seen: make(map[string]uint32)}
}

func (g *globalRecorder) GetRegistry() (pointerlock.Registry, error) {
	r, err := g.Display.GetRegistry()
	if err != nil {
		return nil, err
	}
	return &recordingRegistry{Registry: r, rec: g}, nil
}

// Interrupt forwards to the wrapped display so a stalled discovery can still
// be cut short.
func (g *globalRecorder) Interrupt() error {
	if in, ok := g.Display.(pointerlock.Interrupter); ok {
		return in.Interrupt()
	}
	return errors.New("display cannot be interrupted")
}

func (g *globalRecorder) record(gl pointerlock.Global) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gl.Version > g.seen[gl.Interface] {
		g.seen[gl.Interface] = gl.Version
	}
}

func (g *globalRecorder) globals() map[string]uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]uint32, len(g.seen))
	for k, v := range g.seen {
		out[k] = v
	}
	return out
}

// names lists the recorded interfaces in order, for debug output.
func (g *globalRecorder) names() []string {
	seen := g.globals()
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type recordingRegistry struct {
	pointerlock.Registry
	rec *globalRecorder
}

func (r *recordingRegistry) SetGlobalHandler(f func(pointerlock.Global)) {
	r.Registry.SetGlobalHandler(func(g pointerlock.Global) {
		r.rec.record(g)
		f(g)
	})
}
