package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// followPoll is how often follow mode checks the event log for new lines.
const followPoll = 100 * time.Millisecond

// eventRecord mirrors otel.Event for JSON decoding, so old log lines still
// parse after the event schema grows.
type eventRecord struct {
	Time      time.Time `json:"t"`
	Level     string    `json:"level"`
	Kind      string    `json:"kind"`
	Comp      string    `json:"comp"`
	SessionID string    `json:"session_id"`
	PostID    int64     `json:"post_id"`
	Action    string    `json:"action"`
	DurMs     float64   `json:"dur_ms"`
	Count     int       `json:"count"`
	Err       string    `json:"err"`
	Msg       string    `json:"msg"`
}

type eventsOptions struct {
	tail    int
	follow  bool
	kind    string
	level   string
	comp    string
	action  string
	rawJSON bool
}

// NewEventsCommand prints the JSONL event log.
func NewEventsCommand(root *RootOptions) *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the event log",
		Long: `Print recent events from the JSONL event log.

Examples:
  postbook events --tail 20
  postbook events -f --kind store
  postbook events --level warn --comp details`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.Config.Events.File
			f, err := os.Open(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("event log not found at %s; run postbook first to generate events", path)
				}
				return err
			}
			defer f.Close()
			return showEvents(cmd.Context(), f, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.tail, "tail", 50, "number of recent events to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "keep printing new events")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "filter by event kind prefix (e.g. store)")
	cmd.Flags().StringVar(&opts.level, "level", "", "minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.comp, "comp", "", "filter by component")
	cmd.Flags().StringVar(&opts.action, "action", "", "filter by controller action")
	cmd.Flags().BoolVar(&opts.rawJSON, "json", false, "print raw JSON lines")
	return cmd
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func (o *eventsOptions) match(ev eventRecord) bool {
	if o.kind != "" && !strings.HasPrefix(ev.Kind, o.kind) {
		return false
	}
	if o.level != "" && levelRank(ev.Level) < levelRank(o.level) {
		return false
	}
	if o.comp != "" && ev.Comp != o.comp {
		return false
	}
	if o.action != "" && ev.Action != o.action {
		return false
	}
	return true
}

func (o *eventsOptions) format(ev eventRecord, raw []byte) string {
	if o.rawJSON {
		return string(raw)
	}
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-7s] %-14s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}
	if ev.Action != "" {
		parts = append(parts, ev.Action)
	}
	if ev.PostID != 0 {
		parts = append(parts, fmt.Sprintf("#%d", ev.PostID))
	}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

// showEvents prints the last matching events, then keeps polling r for new
// lines in follow mode until ctx is done.
func showEvents(ctx context.Context, r io.Reader, w io.Writer, o *eventsOptions) error {
	reader := bufio.NewReader(r)

	var (
		ring    []parsedLine
		partial []byte
	)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// An unterminated last line may still be being written.
			partial = line
			break
		}
		if err != nil {
			return err
		}
		if l, ok := parseLine(line); ok && o.match(l.ev) {
			ring = append(ring, l)
			if o.tail >= 0 && len(ring) > o.tail {
				ring = ring[1:]
			}
		}
	}
	for _, l := range ring {
		fmt.Fprintln(w, o.format(l.ev, l.raw))
	}

	if !o.follow {
		return nil
	}

	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// Keep a half-written line until the rest arrives.
			partial = append(partial, line...)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		}
		if err != nil {
			return err
		}
		if len(partial) > 0 {
			line = append(partial, line...)
			partial = nil
		}
		if l, ok := parseLine(line); ok && o.match(l.ev) {
			fmt.Fprintln(w, o.format(l.ev, l.raw))
		}
	}
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

func parseLine(line []byte) (parsedLine, bool) {
	line = trimLine(line)
	if len(line) == 0 {
		return parsedLine{}, false
	}
	var ev eventRecord
	if json.Unmarshal(line, &ev) != nil {
		return parsedLine{}, false
	}
	return parsedLine{ev: ev, raw: line}, true
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
