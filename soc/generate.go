package soc

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"hex":   func(v uint64) string { return fmt.Sprintf("0x%08x", v) },
	"value": constantValue,
}

// constantValue formats a constant for a C header. Constants named as
// addresses are printed like the region bases in mem.h.
func constantValue(name string, v any) string {
	if isAddress(name) {
		switch v := v.(type) {
		case uint64:
			return fmt.Sprintf("0x%08xL", v)
		case int64:
			if v >= 0 {
				return fmt.Sprintf("0x%08xL", v)
			}
		case int:
			if v >= 0 {
				return fmt.Sprintf("0x%08xL", v)
			}
		}
	}
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}

func isAddress(name string) bool {
	return strings.HasSuffix(name, "_ADDR") || strings.HasSuffix(name, "_ADDRESS")
}

var regionsTemplate = template.Must(template.New("regions.ld").Funcs(funcs).Parse(
	`MEMORY {
{{- range .}}
	{{.Name}} : ORIGIN = {{hex .Origin}}, LENGTH = {{hex .Length}}
{{- end}}
}
`))

var memHeaderTemplate = template.Must(template.New("mem.h").Funcs(funcs).Parse(
	`#ifndef __GENERATED_MEM_H
#define __GENERATED_MEM_H
{{range .}}
#define {{upper .Name}}_BASE {{hex .Origin}}L
#define {{upper .Name}}_SIZE {{hex .Length}}
{{end}}
#endif
`))

var socHeaderTemplate = template.Must(template.New("soc.h").Funcs(funcs).Parse(
	`#ifndef __GENERATED_SOC_H
#define __GENERATED_SOC_H
{{range .Constants}}
#define {{.Name}} {{value .Name .Value}}
{{- end}}
{{range .CSRs}}
#define CSR_{{upper .Name}}_BASE {{hex .Base}}L
{{- end}}

#endif
`))

var csrHeaderTemplate = template.Must(template.New("csr.h").Funcs(funcs).Parse(
	`#ifndef __GENERATED_CSR_H
#define __GENERATED_CSR_H
#include <stdint.h>
{{range .}}
/* {{.Name}} */
#define CSR_{{upper .Name}}_BASE {{hex .Base}}L
{{- range .Registers}}
#define CSR_{{upper .Ident}}_ADDR {{hex .Addr}}L
static inline uint32_t {{.Ident}}_read(void) {
	return *(volatile uint32_t *){{hex .Addr}}L;
}
{{- if not .ReadOnly}}
static inline void {{.Ident}}_write(uint32_t v) {
	*(volatile uint32_t *){{hex .Addr}}L = v;
}
{{- end}}
{{- end}}
{{end}}
#endif
`))

// WriteLinkerRegions writes the MEMORY block firmware is linked with.
func WriteLinkerRegions(w io.Writer, m *MemoryMap) error {
	return regionsTemplate.Execute(w, m.Regions(Linker))
}

// WriteMemHeader writes base and size defines for every bus and linker
// region. Bus entries come first and shadow linker entries of the same name.
func WriteMemHeader(w io.Writer, m *MemoryMap) error {
	seen := map[string]bool{}
	var regions []MemoryRegion
	for _, ns := range []Namespace{Bus, Linker} {
		for _, r := range m.Regions(ns) {
			if seen[r.Name] {
				continue
			}
			seen[r.Name] = true
			regions = append(regions, r)
		}
	}
	return memHeaderTemplate.Execute(w, regions)
}

type csrBank struct {
	Name      string
	Base      uint64
	Registers []csrAccessor
}

type csrAccessor struct {
	Ident    string
	Addr     uint64
	ReadOnly bool
}

func bankLayout(m *MemoryMap) ([]csrBank, error) {
	csr, ok := m.Region(Bus, "csr")
	if !ok {
		return nil, fmt.Errorf("%w: csr", ErrMissingMapping)
	}
	var banks []csrBank
	for _, c := range m.CSRs() {
		b := csrBank{Name: c.Name, Base: csr.Origin + uint64(c.ID)*csrBankSize}
		for _, r := range m.Registers(c.Name) {
			b.Registers = append(b.Registers, csrAccessor{
				Ident:    c.Name + "_" + r.Name,
				Addr:     b.Base + r.Offset,
				ReadOnly: r.ReadOnly,
			})
		}
		banks = append(banks, b)
	}
	return banks, nil
}

// WriteCSRHeader writes the CSR bank bases and an accessor per register,
// e.g. leds_out_write.
func WriteCSRHeader(w io.Writer, m *MemoryMap) error {
	banks, err := bankLayout(m)
	if err != nil {
		return fmt.Errorf("csr.h: %w", err)
	}
	return csrHeaderTemplate.Execute(w, banks)
}

// WriteSoCHeader writes the SoC constants and the CSR bank addresses.
func WriteSoCHeader(w io.Writer, m *MemoryMap) error {
	banks, err := bankLayout(m)
	if err != nil {
		return fmt.Errorf("soc.h: %w", err)
	}
	return socHeaderTemplate.Execute(w, struct {
		Constants []Constant
		CSRs      []csrBank
	}{m.Constants(), banks})
}
