package soc

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const manifestFileName = "manifest.json"

func regionList(rs []MemoryRegion) []any {
	out := make([]any, 0, len(rs))
	for _, r := range rs {
		out = append(out, map[string]any{
			"name":   r.Name,
			"origin": r.Origin,
			"length": r.Length,
		})
	}
	return out
}

// MemoryMapMessage describes a memory map as a protobuf Struct.
func MemoryMapMessage(m *MemoryMap) (*structpb.Struct, error) {
	csrs := map[string]any{}
	registers := map[string]any{}
	for _, c := range m.CSRs() {
		csrs[c.Name] = c.ID
		regs := m.Registers(c.Name)
		if len(regs) == 0 {
			continue
		}
		list := make([]any, 0, len(regs))
		for _, r := range regs {
			list = append(list, map[string]any{
				"name":      r.Name,
				"offset":    r.Offset,
				"read_only": r.ReadOnly,
			})
		}
		registers[c.Name] = list
	}
	consts := map[string]any{}
	for _, c := range m.Constants() {
		consts[c.Name] = c.Value
	}
	return structpb.NewStruct(map[string]any{
		"regions": map[string]any{
			Bus.String():    regionList(m.Regions(Bus)),
			Linker.String(): regionList(m.Regions(Linker)),
		},
		"csrs":          csrs,
		"csr_registers": registers,
		"constants":     consts,
	})
}

func EncodeMemoryMap(m *MemoryMap) ([]byte, error) {
	msg, err := MemoryMapMessage(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

func EncodeMemoryMapJSON(m *MemoryMap) ([]byte, error) {
	msg, err := MemoryMapMessage(m)
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
}

var errMalformedMap = errors.New("malformed memory map")

// DecodeMemoryMap rebuilds a MemoryMap from EncodeMemoryMap output. The
// regions are re-registered, so overlaps are rejected again.
func DecodeMemoryMap(b []byte) (*MemoryMap, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(b, &msg); err != nil {
		return nil, err
	}
	m := NewMemoryMap()
	regions := msg.Fields["regions"].GetStructValue()
	if regions == nil {
		return nil, fmt.Errorf("%w: no regions", errMalformedMap)
	}
	for _, ns := range []Namespace{Bus, Linker} {
		for _, v := range regions.Fields[ns.String()].GetListValue().GetValues() {
			f := v.GetStructValue().GetFields()
			r := MemoryRegion{
				Name:   f["name"].GetStringValue(),
				Origin: uint64(f["origin"].GetNumberValue()),
				Length: uint64(f["length"].GetNumberValue()),
			}
			if err := m.add(ns, r); err != nil {
				return nil, err
			}
		}
	}
	csrs := msg.Fields["csrs"].GetStructValue().GetFields()
	names := make([]string, 0, len(csrs))
	for n := range csrs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := m.AddCSR(n, int(csrs[n].GetNumberValue())); err != nil {
			return nil, err
		}
	}
	for bank, regs := range msg.Fields["csr_registers"].GetStructValue().GetFields() {
		for _, v := range regs.GetListValue().GetValues() {
			f := v.GetStructValue().GetFields()
			r := CSRRegister{
				Name:     f["name"].GetStringValue(),
				Offset:   uint64(f["offset"].GetNumberValue()),
				ReadOnly: f["read_only"].GetBoolValue(),
			}
			if err := m.AddCSRRegister(bank, r); err != nil {
				return nil, err
			}
		}
	}
	for k, v := range msg.Fields["constants"].GetStructValue().GetFields() {
		m.AddConstant(k, constantFromValue(v))
	}
	return m, nil
}

// constantFromValue undoes the float64 widening of Struct numbers for
// whole values.
func constantFromValue(v *structpb.Value) any {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return v.AsInterface()
	}
	f := n.NumberValue
	switch {
	case f != math.Trunc(f) || math.IsInf(f, 0):
		return f
	case f >= 0 && f < 1<<64:
		return uint64(f)
	case f >= math.MinInt64:
		return int64(f)
	}
	return f
}

type BundleContents struct {
	Manifest Manifest `json:"manifest"`
}

type Manifest struct {
	Platform string    `json:"platform"`
	SoC      SoCFiles  `json:"soc"`
	Firmware *Firmware `json:"firmware,omitempty"`
}

type SoCFiles struct {
	MemoryMap string `json:"memory_map"`
	Linker    string `json:"linker"`
}

type Firmware struct {
	BinFile string `json:"bin_file"`
	HexFile string `json:"hex_file"`
}

// WriteBundle zips the manifest and the named files, read from dir.
func WriteBundle(w io.Writer, dir string, contents *BundleContents) error {
	zw := zip.NewWriter(w)
	b, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return err
	}
	if err := writeZipFile(zw, manifestFileName, b); err != nil {
		return err
	}
	m := contents.Manifest
	files := []string{m.SoC.MemoryMap, m.SoC.Linker}
	if m.Firmware != nil {
		files = append(files, m.Firmware.BinFile, m.Firmware.HexFile)
	}
	fsys := os.DirFS(dir)
	for _, name := range files {
		if name == "" {
			continue
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		if err := writeZipFile(zw, name, b); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeZipFile(zw *zip.Writer, name string, b []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	return err
}

type Bundle struct {
	Manifest  Manifest
	MemoryMap *MemoryMap
	Firmware  []byte
}

func OpenBundle(name string) (*Bundle, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := r.Open(manifestFileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	contents, err := parseManifest(f)
	if err != nil {
		return nil, err
	}
	m := contents.Manifest
	b, err := fs.ReadFile(r, m.SoC.MemoryMap)
	if err != nil {
		return nil, err
	}
	mm, err := DecodeMemoryMap(b)
	if err != nil {
		return nil, err
	}
	bundle := &Bundle{Manifest: m, MemoryMap: mm}
	if m.Firmware != nil && m.Firmware.BinFile != "" {
		if bundle.Firmware, err = fs.ReadFile(r, m.Firmware.BinFile); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func parseManifest(f fs.File) (*BundleContents, error) {
	var contents BundleContents
	decoder := json.NewDecoder(f)
	if err := decoder.Decode(&contents); err != nil {
		return nil, err
	}
	return &contents, nil
}
