// Package platform describes FPGA boards: their IO resources, clock and
// the toolchain commands used to turn a design into a bitstream.
package platform

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrResourceNotFound = errors.New("platform resource not found")
	ErrResourceInUse    = errors.New("platform resource already requested")
)

type Subsignal struct {
	Name string
	Pins []string
}

// Resource is a named group of pins, e.g. ("user_led", 0).
type Resource struct {
	Name       string
	Number     int
	Pins       []string
	Subsignals []Subsignal
	IOStandard string
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s:%d", r.Name, r.Number)
}

// Platform is one board. Requests hand out each resource only once.
type Platform struct {
	Name             string
	DefaultClkName   string
	DefaultClkPeriod float64 // ns
	Toolchain        string

	// Commands run in the build directory, {build_name} is substituted.
	BuildCommands []string
	// SynthScript is the yosys script read by the first build command.
	SynthScript []string

	resources []*Resource
	requested map[string]bool
}

func New(name string, res []*Resource) *Platform {
	return &Platform{
		Name:      name,
		resources: res,
		requested: map[string]bool{},
	}
}

func resourceKey(name string, n int) string {
	return fmt.Sprintf("%s:%d", name, n)
}

func (p *Platform) AddExtension(res ...*Resource) {
	p.resources = append(p.resources, res...)
}

func (p *Platform) Request(name string, n int) (*Resource, error) {
	key := resourceKey(name, n)
	for _, r := range p.resources {
		if r.Name != name || r.Number != n {
			continue
		}
		if p.requested[key] {
			return nil, fmt.Errorf("%w: %s", ErrResourceInUse, key)
		}
		p.requested[key] = true
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrResourceNotFound, key, p.Name)
}

// Has reports whether the platform defines a resource.
func (p *Platform) Has(name string, n int) bool {
	for _, r := range p.resources {
		if r.Name == name && r.Number == n {
			return true
		}
	}
	return false
}

// Release hands requested resources back.
func (p *Platform) Release(res ...*Resource) {
	for _, r := range res {
		delete(p.requested, resourceKey(r.Name, r.Number))
	}
}

// Requested lists the resources handed out so far, sorted.
func (p *Platform) Requested() []string {
	var out []string
	for k := range p.requested {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WritePCF writes iCE40 pin constraints for the requested resources.
func (p *Platform) WritePCF(w io.Writer) error {
	for _, r := range p.resources {
		if !p.requested[resourceKey(r.Name, r.Number)] {
			continue
		}
		prefix := fmt.Sprintf("%s%d", r.Name, r.Number)
		if len(r.Subsignals) == 0 {
			if err := writePins(w, prefix, r.Pins); err != nil {
				return err
			}
			continue
		}
		for _, s := range r.Subsignals {
			if err := writePins(w, prefix+"_"+s.Name, s.Pins); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePins(w io.Writer, name string, pins []string) error {
	for i, pin := range pins {
		n := name
		if len(pins) > 1 {
			n = fmt.Sprintf("%s[%d]", name, i)
		}
		if _, err := fmt.Fprintf(w, "set_io %s %s\n", n, pin); err != nil {
			return err
		}
	}
	return nil
}

// WriteSynthScript writes the synthesis script for buildName.
func (p *Platform) WriteSynthScript(w io.Writer, buildName string) error {
	for _, line := range p.SynthScript {
		line = strings.ReplaceAll(line, "{build_name}", buildName)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// SetCommand replaces the build command whose program is prog.
func (p *Platform) SetCommand(prog, cmd string) bool {
	for i, c := range p.BuildCommands {
		if strings.HasPrefix(c, prog+" ") {
			p.BuildCommands[i] = cmd
			return true
		}
	}
	return false
}

// Constructor builds a platform for a toolchain, "" selects the default.
type Constructor func(toolchain string) (*Platform, error)

var (
	mu        sync.RWMutex
	platforms = map[string]Constructor{}
)

// Register installs a platform constructor. It panics on duplicates.
func Register(name string, c Constructor) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		panic("platform: empty name")
	}
	if _, dup := platforms[name]; dup {
		panic("platform: duplicate registration of " + name)
	}
	platforms[name] = c
}

// Lookup finds a platform by name. Dotted module paths resolve by their
// last component.
func Lookup(name string) (Constructor, error) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	mu.RLock()
	defer mu.RUnlock()
	c, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
	return c, nil
}

func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(platforms))
	for n := range platforms {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
