package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/example/gator-taxi/internal/models"
	"github.com/example/gator-taxi/internal/registry"
)

const (
	NotFound      = "(0,0,0)"
	NoActiveRides = "No active ride requests"
	DuplicateRide = "Duplicate RideNumber"
)

// Registry is the subset of *registry.Registry the runner drives.
type Registry interface {
	Insert(ride models.Ride) error
	Lookup(rideNumber int) (models.Ride, bool)
	LookupRange(lo, hi int) []models.Ride
	UpdateTrip(rideNumber, newDuration int) (models.Ride, registry.TripOutcome)
	Cancel(rideNumber int) (models.Ride, bool)
	Next() (models.Ride, error)
}

// Result is the outcome of one executed command.
type Result struct {
	Line   string // output line without newline; empty when Output is false
	Output bool
	Halt   bool // a duplicate insert stops the whole stream
}

// Exec runs one command against reg.
func Exec(reg Registry, cmd Command) Result {
	a := cmd.Args
	switch cmd.Op {
	case OpInsert:
		err := reg.Insert(models.Ride{RideNumber: a[0], Cost: a[1], TripDuration: a[2]})
		if errors.Is(err, registry.ErrDuplicateRide) {
			return Result{Line: DuplicateRide, Output: true, Halt: true}
		}
		return Result{}
	case OpPrint:
		ride, ok := reg.Lookup(a[0])
		if !ok {
			return Result{Line: NotFound, Output: true}
		}
		return Result{Line: ride.String(), Output: true}
	case OpPrintRange:
		return Result{Line: FormatRides(reg.LookupRange(a[0], a[1])), Output: true}
	case OpUpdateTrip:
		reg.UpdateTrip(a[0], a[1])
		return Result{}
	case OpCancelRide:
		reg.Cancel(a[0])
		return Result{}
	case OpGetNextRide:
		ride, err := reg.Next()
		if err != nil {
			return Result{Line: NoActiveRides, Output: true}
		}
		return Result{Line: ride.String(), Output: true}
	}
	return Result{}
}

// FormatRides joins rides with commas, or returns NotFound for none.
func FormatRides(rides []models.Ride) string {
	if len(rides) == 0 {
		return NotFound
	}
	var b strings.Builder
	for i, r := range rides {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r.String())
	}
	return b.String()
}

// Stats summarises a run.
type Stats struct {
	Lines   int
	Skipped int
	Halted  bool
}

type Runner struct {
	Registry Registry
	Logger   *slog.Logger
}

// MaxLineBytes is the longest command line Run will parse. Longer lines
// are skipped like any other malformed line.
const MaxLineBytes = 64 << 10

// Run executes every command read from in and writes the output lines to
// out. Blank lines are ignored and malformed lines are logged and skipped.
// A duplicate insert writes its line and ends the run without error.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var st Stats
	w := bufio.NewWriter(out)
	br := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			_ = w.Flush()
			return st, err
		}
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = w.Flush()
			return st, fmt.Errorf("read commands: %w", err)
		}
		st.Lines++
		if tooLong {
			st.Skipped++
			logger.Warn("skipping command", "line", st.Lines, "err", fmt.Errorf("%w: line exceeds %d bytes", ErrMalformed, MaxLineBytes))
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := Parse(line)
		if err != nil {
			st.Skipped++
			logger.Warn("skipping command", "line", st.Lines, "err", err)
			continue
		}
		res := Exec(r.Registry, cmd)
		if res.Output {
			if _, err := fmt.Fprintln(w, res.Line); err != nil {
				return st, fmt.Errorf("write output: %w", err)
			}
		}
		if res.Halt {
			st.Halted = true
			logger.Info("duplicate ride number, halting", "line", st.Lines, "ride", cmd.Args[0])
			break
		}
	}
	if err := w.Flush(); err != nil {
		return st, fmt.Errorf("write output: %w", err)
	}
	return st, nil
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineBytes is consumed in full and reported as tooLong with no content.
// io.EOF is returned only when no further line exists.
func readLine(br *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > MaxLineBytes {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}
