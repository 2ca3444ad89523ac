// Package command reads the ride command language, runs it against a
// registry and renders the output lines.
//
//	Insert(id,cost,duration)
//	Print(id)
//	Print(id1,id2)
//	UpdateTrip(id,newDuration)
//	CancelRide(id)
//	GetNextRide()
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformed      = errors.New("malformed command")
	ErrUnknownCommand = errors.New("unknown command")
)

type Op int

const (
	OpInsert Op = iota + 1
	OpPrint
	OpPrintRange
	OpUpdateTrip
	OpCancelRide
	OpGetNextRide
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "Insert"
	case OpPrint, OpPrintRange:
		return "Print"
	case OpUpdateTrip:
		return "UpdateTrip"
	case OpCancelRide:
		return "CancelRide"
	case OpGetNextRide:
		return "GetNextRide"
	default:
		return "Unknown"
	}
}

// Command is one parsed line. Args holds the integer arguments in order.
type Command struct {
	Op   Op
	Args []int
}

// arity lists the accepted argument counts per command name.
var arity = map[string][]struct {
	n  int
	op Op
}{
	"Insert":      {{3, OpInsert}},
	"Print":       {{1, OpPrint}, {2, OpPrintRange}},
	"UpdateTrip":  {{2, OpUpdateTrip}},
	"CancelRide":  {{1, OpCancelRide}},
	"GetNextRide": {{0, OpGetNextRide}},
}

// Parse reads a single command line. Whitespace around the line, the name
// and each argument is ignored.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	open := strings.IndexByte(line, '(')
	if open <= 0 || !strings.HasSuffix(line, ")") {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}
	name := strings.TrimSpace(line[:open])
	forms, ok := arity[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	args, err := parseArgs(line[open+1 : len(line)-1])
	if err != nil {
		return Command{}, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	for _, f := range forms {
		if f.n == len(args) {
			return Command{Op: f.op, Args: args}, nil
		}
	}
	return Command{}, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrMalformed, name, forms[0].n, len(args))
}

func parseArgs(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
