// Command replay runs a JSON-lines action log against a world snapshot
// offline and prints each outcome and the final world.
//
// Each log line is {"at": <unix ms>, "action": {...}}.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jwebster45206/farm-engine/internal/features"
	"github.com/jwebster45206/farm-engine/internal/i18n"
	"github.com/jwebster45206/farm-engine/internal/schema"
	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/engine"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

// LogLine is one entry of an action log.
type LogLine struct {
	At     int64           `json:"at"`
	Action json.RawMessage `json:"action"`
}

// Summary counts a replay's outcomes.
type Summary struct {
	Applied  int
	Rejected map[rules.Kind]int
}

func main() {
	flagsFile := flag.String("flags", "", "feature flag YAML file")
	locale := flag.String("locale", "en-US", "locale for rejection messages")
	out := flag.String("out", "", "write the final world here instead of stdout")
	quiet := flag.Bool("q", false, "only print rejections")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <world.json> <actions.jsonl>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	ws, err := loadWorld(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load world: %v\n", err)
		os.Exit(1)
	}

	gate, err := features.LoadFile(*flagsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load feature flags: %v\n", err)
		os.Exit(1)
	}
	bundle := i18n.Default()
	tr := bundle.Translator(bundle.Match(*locale))

	logFile, err := os.Open(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open action log: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	r := &Replayer{
		Executor:   engine.New(engine.WithFeatureGate(gate)),
		Translator: tr,
		Out:        os.Stderr,
		Quiet:      *quiet,
	}
	final, summary, err := r.Run(ws, logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Replay failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Applied %d, rejected %d\n", summary.Applied, summary.RejectedTotal())

	data, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal world: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
}

func loadWorld(path string) (*state.WorldState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateWorld(data); err != nil {
		return nil, err
	}
	var ws state.WorldState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, err
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return &ws, nil
}

// RejectedTotal sums rejections of every kind.
func (s Summary) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// Replayer applies logged actions in order, carrying the world forward.
type Replayer struct {
	Executor   *engine.Executor
	Translator *i18n.Translator
	Out        io.Writer
	Quiet      bool
}

// Run applies each line of log to ws. Rejected actions leave the world as it
// was and replay continues. Malformed lines stop the replay.
func (r *Replayer) Run(ws *state.WorldState, log io.Reader) (*state.WorldState, Summary, error) {
	summary := Summary{Rejected: map[rules.Kind]int{}}

	scanner := bufio.NewScanner(log)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line LogLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return ws, summary, fmt.Errorf("line %d: %w", lineNo, err)
		}

		action, err := actions.Decode(line.Action)
		if err != nil {
			kind, _ := actions.PeekKind(line.Action)
			r.reject(lineNo, rules.Fail(rules.UnknownAction, kind, "%v", err), &summary)
			continue
		}

		next, err := r.Executor.Apply(ws, action, line.At)
		if err != nil {
			r.reject(lineNo, err, &summary)
			continue
		}
		ws = next
		summary.Applied++
		if !r.Quiet {
			fmt.Fprintf(r.Out, "%4d ✓ %s at %d\n", lineNo, r.Translator.ActionLabel(action.Kind()), line.At)
		}
	}
	if err := scanner.Err(); err != nil {
		return ws, summary, err
	}
	return ws, summary, nil
}

func (r *Replayer) reject(lineNo int, err error, summary *Summary) {
	kind, ok := rules.KindOf(err)
	if !ok {
		kind = rules.InconsistentState
	}
	summary.Rejected[kind]++
	fmt.Fprintf(r.Out, "%4d ✗ %s: %s\n", lineNo, kind, rules.Describe(err, r.Translator))
}
