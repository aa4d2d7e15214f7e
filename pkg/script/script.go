// Package script runs line-oriented debug access scripts:
//
//	# unlock check
//	auth
//	read debug+0x314
//	write debug+0x080 1234
//	dcc 42
//	sleep 10ms
//	id debug
//
// Numbers are decimal or 0x hex; "debug" and other symbols come from the
// environment.
package script

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/jbang/internal/logging"
	"github.com/OpenTraceLab/jbang/pkg/coresight"
)

var parser = participle.MustBuild[File](
	participle.Lexer(scriptLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)

// arity is the accepted argument count range of each command.
var arity = map[string][2]int{
	"read":  {1, 1},
	"write": {2, 2},
	"auth":  {0, 1},
	"dcc":   {1, 1},
	"sleep": {1, 1},
	"id":    {0, 1},
}

// Program is a checked script.
type Program struct {
	Name       string
	Statements []*Statement
}

// Parse reads a script from r.
func Parse(name string, r io.Reader) (*Program, error) {
	f, err := parser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return check(name, f)
}

// ParseString parses a script held in memory.
func ParseString(name, src string) (*Program, error) {
	f, err := parser.ParseString(name, src)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return check(name, f)
}

// ParseFile parses the script at path.
func ParseFile(path string) (*Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	defer file.Close()

	return Parse(path, file)
}

func check(name string, f *File) (*Program, error) {
	for _, st := range f.Statements {
		r := arity[st.Command]
		if n := len(st.Args); n < r[0] || n > r[1] {
			return nil, fmt.Errorf("script: %s: %s takes %s, got %d", st.Pos, st.Command, argCount(r), n)
		}
		for _, a := range st.Args {
			for _, t := range a.Terms {
				if t.Duration != nil && (st.Command != "sleep" || len(a.Terms) > 1) {
					return nil, fmt.Errorf("script: %s: unexpected duration %s", a.Pos, *t.Duration)
				}
			}
		}
	}
	return &Program{Name: name, Statements: f.Statements}, nil
}

func argCount(r [2]int) string {
	switch {
	case r[0] == r[1] && r[0] == 1:
		return "1 argument"
	case r[0] == r[1]:
		return fmt.Sprintf("%d arguments", r[0])
	default:
		return fmt.Sprintf("%d to %d arguments", r[0], r[1])
	}
}

// Env is what a program runs against.
type Env struct {
	Mem coresight.Memory
	// Out receives one line per result.
	Out io.Writer
	// Symbols resolves names in arguments. "debug" is also the default
	// base of auth and id.
	Symbols map[string]uint32
	// DCCSettle is slept after each dcc write.
	DCCSettle time.Duration
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)

	Log *logrus.Entry
}

func (e *Env) sleep(d time.Duration) {
	if e.Sleep != nil {
		e.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (e *Env) logger() *logrus.Entry {
	if e.Log != nil {
		return e.Log
	}
	return logging.For("script")
}

// Run executes every statement in order and stops at the first error.
func (p *Program) Run(env *Env) error {
	log := env.logger()
	for _, st := range p.Statements {
		log.Debugf("%s: %s", st.Pos, st.Command)
		if err := run(env, st); err != nil {
			return fmt.Errorf("script: %s: %s: %w", st.Pos, st.Command, err)
		}
	}
	return nil
}

func run(env *Env, st *Statement) error {
	args := make([]uint32, 0, len(st.Args))
	if st.Command != "sleep" {
		for _, a := range st.Args {
			v, err := env.eval(a)
			if err != nil {
				return err
			}
			args = append(args, v)
		}
	}

	switch st.Command {
	case "read":
		v, err := env.Mem.Read(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "0x%08x: 0x%08x\n", args[0], v)

	case "write":
		if err := env.Mem.Write(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "0x%08x <- 0x%08x\n", args[0], args[1])

	case "auth":
		base, err := env.base(args)
		if err != nil {
			return err
		}
		a, err := coresight.ReadAuthStatus(env.Mem, base)
		if err != nil {
			return err
		}
		for _, f := range a.Fields() {
			fmt.Fprintf(env.Out, "%s: %s\n", f.Name, f.Permission)
		}

	case "dcc":
		base, err := env.base(nil)
		if err != nil {
			return err
		}
		dcc := coresight.NewDCC(env.Mem, base)
		if err := dcc.ClearStatus(); err != nil {
			return err
		}
		if err := dcc.Send(args[0]); err != nil {
			return err
		}
		env.sleep(env.DCCSettle)
		fmt.Fprintf(env.Out, "dcc <- %d\n", args[0])

	case "sleep":
		d, err := duration(st.Args[0])
		if err != nil {
			return err
		}
		env.sleep(d)

	case "id":
		base, err := env.base(args)
		if err != nil {
			return err
		}
		id, err := coresight.ReadComponentID(env.Mem, base)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "0x%08x: %s\n", base, id)

	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}

func (e *Env) base(args []uint32) (uint32, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	v, ok := e.Symbols["debug"]
	if !ok {
		return 0, fmt.Errorf("no debug base defined")
	}
	return v, nil
}

func (e *Env) eval(a *Arg) (uint32, error) {
	var sum uint64
	for _, t := range a.Terms {
		var v uint64
		switch {
		case t.Number != nil:
			n, err := strconv.ParseUint(strings.ReplaceAll(*t.Number, "_", ""), 0, 32)
			if err != nil {
				return 0, fmt.Errorf("%s: bad number %s", a.Pos, *t.Number)
			}
			v = n
		case t.Symbol != nil:
			s, ok := e.Symbols[*t.Symbol]
			if !ok {
				return 0, fmt.Errorf("%s: undefined symbol %q", a.Pos, *t.Symbol)
			}
			v = uint64(s)
		}
		sum += v
	}
	if sum > 0xFFFFFFFF {
		return 0, fmt.Errorf("%s: value 0x%x overflows 32 bits", a.Pos, sum)
	}
	return uint32(sum), nil
}

func duration(a *Arg) (time.Duration, error) {
	t := a.Terms[0]
	switch {
	case t.Duration != nil:
		return time.ParseDuration(*t.Duration)
	case t.Number != nil:
		// Bare numbers are milliseconds.
		n, err := strconv.ParseUint(*t.Number, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: bad duration %s", a.Pos, *t.Number)
		}
		return time.Duration(n) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%s: sleep needs a duration", a.Pos)
}
