package soc

import (
	"errors"
	"fmt"
	"sort"
)

// maximum number of CSR banks on the bus
const csrBanks = 32

var (
	ErrCSRConflict    = errors.New("csr id conflict")
	ErrMissingMapping = errors.New("required mapping is not set")
)

// CSRMap assigns CSR bank ids by peripheral name. A nil id is allocated.
type CSRMap map[string]*int

// MemMap assigns bus base addresses by region name.
type MemMap map[string]*uint64

func intp(v int) *int { return &v }
func addrp(v uint64) *uint64 { return &v }

// DefaultCSRMap returns the ids the SoC core reserves for itself.
func DefaultCSRMap() CSRMap {
	return CSRMap{
		"ctrl":           intp(0),
		"crg":            intp(1),
		"uart_phy":       intp(2),
		"uart":           intp(3),
		"identifier_mem": intp(4),
		"timer0":         intp(5),
	}
}

// DefaultMemMap returns the bus layout of the SoC core.
func DefaultMemMap() MemMap {
	return MemMap{
		"rom":      addrp(0x00000000),
		"sram":     addrp(0x10000000),
		"main_ram": addrp(0x40000000),
		"csr":      addrp(0x60000000),
	}
}

// MergeCSR merges overrides over base and resolves every nil id to the
// lowest free bank, visiting names in sorted order.
func MergeCSR(base, overrides CSRMap) (map[string]int, error) {
	merged := make(CSRMap, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make(map[string]int, len(merged))
	used := make(map[int]string, len(merged))
	var pending []string
	for _, name := range names {
		id := merged[name]
		if id == nil {
			pending = append(pending, name)
			continue
		}
		if *id < 0 || *id >= csrBanks {
			return nil, fmt.Errorf("%w: %s id %d out of range", ErrCSRConflict, name, *id)
		}
		if other, ok := used[*id]; ok {
			return nil, fmt.Errorf("%w: %s and %s share id %d", ErrCSRConflict, other, name, *id)
		}
		used[*id] = name
		out[name] = *id
	}

	next := 0
	for _, name := range pending {
		for ; next < csrBanks; next++ {
			if _, ok := used[next]; !ok {
				break
			}
		}
		if next == csrBanks {
			return nil, fmt.Errorf("%w: no free id for %s", ErrCSRConflict, name)
		}
		used[next] = name
		out[name] = next
	}
	return out, nil
}

// MergeMem merges overrides over base. Keys left nil are dropped unless
// they are required.
func MergeMem(base, overrides MemMap, required ...string) (map[string]uint64, error) {
	merged := make(MemMap, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	for _, k := range required {
		if merged[k] == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingMapping, k)
		}
	}
	out := make(map[string]uint64, len(merged))
	for k, v := range merged {
		if v != nil {
			out[k] = *v
		}
	}
	return out, nil
}
