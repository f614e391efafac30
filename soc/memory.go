package soc

import (
	"errors"
	"fmt"
	"sort"
)

type Namespace int

const (
	// Bus holds the address decoding of bus slaves.
	Bus Namespace = iota
	// Linker holds the regions firmware is linked against.
	Linker
)

func (n Namespace) String() string {
	switch n {
	case Bus:
		return "bus"
	case Linker:
		return "linker"
	}
	return fmt.Sprintf("namespace(%d)", int(n))
}

var (
	ErrRegionOverlap   = errors.New("memory regions overlap")
	ErrDuplicateRegion = errors.New("memory region already registered")
	ErrEmptyRegion     = errors.New("memory region is empty")
)

// Registrar is the registration surface of the SoC builder.
type Registrar interface {
	RegisterMem(r MemoryRegion) error
	AddMemoryRegion(r MemoryRegion) error
	AddCSR(name string, id int) error
	AddCSRRegister(bank string, reg CSRRegister) error
	AddConstant(name string, value any)
}

// MemoryMap is a Registrar that keeps everything it is given and rejects
// overlapping or duplicate regions within a namespace.
type MemoryMap struct {
	regions   map[Namespace][]MemoryRegion
	csrs      map[string]int
	registers map[string][]CSRRegister
	constants map[string]any
}

func NewMemoryMap() *MemoryMap {
	return &MemoryMap{
		regions:   map[Namespace][]MemoryRegion{},
		csrs:      map[string]int{},
		registers: map[string][]CSRRegister{},
		constants: map[string]any{},
	}
}

var _ Registrar = (*MemoryMap)(nil)

func (m *MemoryMap) RegisterMem(r MemoryRegion) error {
	return m.add(Bus, r)
}

func (m *MemoryMap) AddMemoryRegion(r MemoryRegion) error {
	return m.add(Linker, r)
}

func (m *MemoryMap) add(ns Namespace, r MemoryRegion) error {
	if r.Length == 0 {
		return fmt.Errorf("%w: %s %s", ErrEmptyRegion, ns, r.Name)
	}
	for _, o := range m.regions[ns] {
		if o.Name == r.Name {
			return fmt.Errorf("%w: %s %s", ErrDuplicateRegion, ns, r.Name)
		}
		if o.Overlaps(r) {
			return fmt.Errorf("%w: %s %v and %v", ErrRegionOverlap, ns, o, r)
		}
	}
	m.regions[ns] = append(m.regions[ns], r)
	return nil
}

func (m *MemoryMap) AddCSR(name string, id int) error {
	for n, v := range m.csrs {
		if n == name || v == id {
			return fmt.Errorf("%w: %s and %s at %d", ErrCSRConflict, n, name, id)
		}
	}
	m.csrs[name] = id
	return nil
}

// AddCSRRegister adds a register to a bank already added with AddCSR.
func (m *MemoryMap) AddCSRRegister(bank string, reg CSRRegister) error {
	if _, ok := m.csrs[bank]; !ok {
		return fmt.Errorf("%w: csr bank %s", ErrMissingMapping, bank)
	}
	if reg.Offset >= csrBankSize {
		return fmt.Errorf("%w: %s_%s offset 0x%x outside its bank", ErrCSRConflict, bank, reg.Name, reg.Offset)
	}
	for _, r := range m.registers[bank] {
		if r.Name == reg.Name || r.Offset == reg.Offset {
			return fmt.Errorf("%w: %s_%s and %s_%s", ErrCSRConflict, bank, r.Name, bank, reg.Name)
		}
	}
	m.registers[bank] = append(m.registers[bank], reg)
	return nil
}

// Registers returns the registers of a bank sorted by offset.
func (m *MemoryMap) Registers(bank string) []CSRRegister {
	out := append([]CSRRegister(nil), m.registers[bank]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Offset < out[j].Offset
	})
	return out
}

func (m *MemoryMap) AddConstant(name string, value any) {
	m.constants[name] = value
}

// Regions returns the regions of a namespace sorted by origin.
func (m *MemoryMap) Regions(ns Namespace) []MemoryRegion {
	out := append([]MemoryRegion(nil), m.regions[ns]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Origin < out[j].Origin
	})
	return out
}

func (m *MemoryMap) Region(ns Namespace, name string) (MemoryRegion, bool) {
	for _, r := range m.regions[ns] {
		if r.Name == name {
			return r, true
		}
	}
	return MemoryRegion{}, false
}

// CSRs returns the peripheral names sorted by bank id.
func (m *MemoryMap) CSRs() []CSR {
	out := make([]CSR, 0, len(m.csrs))
	for n, id := range m.csrs {
		out = append(out, CSR{Name: n, ID: id})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

type CSR struct {
	Name string
	ID   int
}

// CSRRegister is one 32-bit word of a CSR bank.
type CSRRegister struct {
	Name     string
	Offset   uint64
	ReadOnly bool
}

// Constants returns the constant names in sorted order with their values.
func (m *MemoryMap) Constants() []Constant {
	out := make([]Constant, 0, len(m.constants))
	for n, v := range m.constants {
		out = append(out, Constant{Name: n, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

type Constant struct {
	Name  string
	Value any
}
