package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/hdsim/internal/config"
	"codeberg.org/mutker/hdsim/internal/dispatch"
	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/fault"
	"codeberg.org/mutker/hdsim/internal/journal"
	"codeberg.org/mutker/hdsim/internal/logger"
	"codeberg.org/mutker/hdsim/internal/relay"
	"github.com/pterm/pterm"
	"golang.org/x/time/rate"
)

const (
	timeLayout     = "15:04:05"
	defaultHistory = 20
)

// shell is the foreground loop: it turns operator commands into fault
// triggers and renders relayed outcomes as they arrive.
type shell struct {
	out    io.Writer
	disp   *dispatch.Dispatcher
	rec    journal.Recorder
	log    logger.Logger
	notify <-chan struct{}
	tick   time.Duration
	color  bool
	now    func() time.Time
}

func newShell(out io.Writer, disp *dispatch.Dispatcher, rec journal.Recorder, notify <-chan struct{}, tick time.Duration) *shell {
	return &shell{
		out:    out,
		disp:   disp,
		rec:    rec,
		log:    logger.Default(),
		notify: notify,
		tick:   tick,
		color:  true,
		now:    time.Now,
	}
}

// run serves commands from lines and categories from auto until ctx ends,
// a quit command arrives, or lines closes with no auto source attached.
func (s *shell) run(ctx context.Context, lines <-chan string, auto <-chan fault.Category) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.drain(ctx)
		case <-s.notify:
			s.drain(ctx)
		case c, ok := <-auto:
			if !ok {
				auto = nil
				continue
			}
			s.trigger(ctx, c)
		case line, ok := <-lines:
			if !ok {
				if auto == nil {
					return nil
				}
				lines = nil
				continue
			}
			if !s.handle(ctx, line) {
				return nil
			}
		}
	}
}

// handle executes one command line. It returns false when the operator
// asked to quit.
func (s *shell) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return false
	case "help":
		s.help()
	case "list":
		s.list()
	case "history":
		s.history(ctx, fields[1:])
	default:
		c, err := fault.ParseCategory(line)
		if err != nil {
			s.print(relay.TagError, fmt.Sprintf("Unknown command %q, type help for a list", line))
			return true
		}
		s.trigger(ctx, c)
	}
	return true
}

// trigger raises c. The caught exception is shown only once the dispatcher
// has taken the report, so a refused trigger never looks like a fault.
func (s *shell) trigger(ctx context.Context, c fault.Category) {
	id, err := s.disp.Trigger(ctx, c)
	if isStopped(err) {
		s.log.Debug().Str("category", c.String()).Msg("Fault dropped during shutdown")
		return
	}
	if err != nil {
		s.print(relay.TagError, "Cannot report "+c.String()+", nothing sent: "+err.Error())
		return
	}

	s.print(relay.TagError, "Caught exception: "+c.Exception())
	s.log.Debug().Str("id", id).Str("category", c.String()).Msg("Fault triggered")
}

// drain renders everything relayed since the last call and hands it to the
// journal.
func (s *shell) drain(ctx context.Context) {
	entries := s.disp.Drain()
	if len(entries) == 0 {
		return
	}

	for _, e := range entries {
		s.render(e)
	}

	if err := s.rec.Record(ctx, entries...); err != nil {
		s.log.Warn().Err(err).Int("entries", len(entries)).Msg("Failed to journal entries")
	}
}

func (s *shell) history(ctx context.Context, args []string) {
	n := defaultHistory
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			s.print(relay.TagError, "history takes a positive count")
			return
		}
		n = v
	}

	entries, err := s.rec.Recent(ctx, n)
	if err != nil {
		s.print(relay.TagError, "Journal unavailable: "+err.Error())
		return
	}
	if len(entries) == 0 {
		s.print(relay.TagInfo, "No journal history (enable with --journal)")
		return
	}
	for _, e := range entries {
		s.render(e)
	}
}

func (s *shell) help() {
	s.print(relay.TagInfo, strings.Join([]string{
		"Commands:",
		"  <category> or 1-4   raise a simulated fault (see list)",
		"  list                show fault categories",
		"  history [n]         show the last n journal entries",
		"  help                show this help",
		"  quit                stop the simulator",
	}, "\n"))
}

func (s *shell) list() {
	data := pterm.TableData{{"#", "Category", "Exception"}}
	for _, c := range fault.Categories() {
		data = append(data, []string{strconv.Itoa(int(c)), c.String(), c.Exception()})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		s.log.Debug().Err(err).Msg("Failed to render category table")
		for _, row := range data[1:] {
			fmt.Fprintln(s.out, strings.Join(row, "  "))
		}
		return
	}
	fmt.Fprintln(s.out, table)
}

func (s *shell) render(e relay.Entry) {
	t := e.Time
	if t.IsZero() {
		t = s.now()
	}
	fmt.Fprintln(s.out, s.paint(e.Tag, t.Local().Format(timeLayout)+"  "+e.Text))
}

func (s *shell) print(tag relay.Tag, text string) {
	s.render(relay.Entry{Tag: tag, Text: text, Time: s.now()})
}

func (s *shell) paint(tag relay.Tag, text string) string {
	if !s.color {
		return text
	}
	switch tag {
	case relay.TagSuccess:
		return pterm.FgLightGreen.Sprint(text)
	case relay.TagError:
		return pterm.FgRed.Sprint(text)
	default:
		return pterm.FgDarkGray.Sprint(text)
	}
}

// autoFire sends a category on the returned channel each time the limiter
// allows one, until ctx ends.
func autoFire(ctx context.Context, limiter *rate.Limiter, pick func() fault.Category) <-chan fault.Category {
	out := make(chan fault.Category)
	go func() {
		defer close(out)
		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case out <- pick():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// autoLimiter paces automatic faults, or returns nil when they are off.
func autoLimiter(cfg config.Provider) *rate.Limiter {
	if cfg.GetAutoRate() <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.GetAutoRate()), cfg.GetAutoBurst())
}

func journalConfig(cfg config.Provider) journal.Config {
	jc := journal.DefaultConfig()
	jc.Enabled = cfg.IsJournalEnabled()
	jc.DBPath = cfg.GetJournalPath()
	jc.BatchSize = cfg.GetJournalBatch()
	return jc
}

func randomCategory() fault.Category {
	all := fault.Categories()
	return all[rand.Intn(len(all))]
}

// isStopped reports whether err means the dispatcher no longer takes work.
func isStopped(err error) bool {
	return errors.HasCode(err, dispatch.ErrShuttingDown)
}
