package soc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestMemoryMapRoundTrip(t *testing.T) {
	_, m := registeredMap(t)
	b, err := EncodeMemoryMap(m)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeMemoryMap(b)
	if err != nil {
		t.Fatal(err)
	}
	for _, ns := range []Namespace{Bus, Linker} {
		if diff := cmp.Diff(m.Regions(ns), got.Regions(ns)); diff != "" {
			t.Errorf("%s regions (-want +got):\n%s", ns, diff)
		}
	}
	if diff := cmp.Diff(m.CSRs(), got.CSRs()); diff != "" {
		t.Errorf("csrs (-want +got):\n%s", diff)
	}
	for _, bank := range []string{"leds", "uart"} {
		if diff := cmp.Diff(m.Registers(bank), got.Registers(bank)); diff != "" {
			t.Errorf("%s registers (-want +got):\n%s", bank, diff)
		}
	}
	if diff := cmp.Diff(m.Constants(), got.Constants()); diff != "" {
		t.Errorf("constants (-want +got):\n%s", diff)
	}

	// headers regenerated from the decoded map are identical
	var before, after bytes.Buffer
	if err := WriteSoCHeader(&before, m); err != nil {
		t.Fatal(err)
	}
	if err := WriteSoCHeader(&after, got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before.String(), after.String()); diff != "" {
		t.Errorf("soc.h (-want +got):\n%s", diff)
	}
	before.Reset()
	after.Reset()
	if err := WriteCSRHeader(&before, m); err != nil {
		t.Fatal(err)
	}
	if err := WriteCSRHeader(&after, got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before.String(), after.String()); diff != "" {
		t.Errorf("csr.h (-want +got):\n%s", diff)
	}
}

func TestConstantFromValue(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{uint64(16000000), uint64(16000000)},
		{uint64(0x20058000), uint64(0x20058000)},
		{-4, int64(-4)},
		{1.5, 1.5},
		{"vexriscv", "vexriscv"},
		{true, true},
	}
	for _, tt := range tests {
		v, err := structpb.NewValue(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(tt.want, constantFromValue(v)); diff != "" {
			t.Errorf("%v (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestMemoryMapJSON(t *testing.T) {
	_, m := registeredMap(t)
	js, err := EncodeMemoryMapJSON(m)
	if err != nil {
		t.Fatal(err)
	}
	var msg structpb.Struct
	if err := protojson.Unmarshal(js, &msg); err != nil {
		t.Fatal(err)
	}
	linker := msg.Fields["regions"].GetStructValue().Fields["linker"].GetListValue().GetValues()
	if len(linker) != 3 {
		t.Fatalf("%d linker regions", len(linker))
	}
	user := linker[2].GetStructValue().Fields
	if user["name"].GetStringValue() != RegionUser || user["origin"].GetNumberValue() != 0x20058000 {
		t.Errorf("last linker region %v", user)
	}
}

func TestDecodeMemoryMapMalformed(t *testing.T) {
	msg, _ := structpb.NewStruct(map[string]any{"csrs": map[string]any{}})
	b, err := EncodeMemoryMap(NewMemoryMap())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeMemoryMap(b); err != nil {
		t.Errorf("empty map: %v", err)
	}
	raw, err := proto.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeMemoryMap(raw); err == nil {
		t.Error("expected error without regions")
	}
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	_, m := registeredMap(t)
	b, err := EncodeMemoryMap(m)
	if err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{
		"soc.pb":       b,
		"regions.ld":   []byte("MEMORY {}\n"),
		"firmware.fbi": {1, 2, 3},
		"flash.hex":    []byte(":00000001FF\n"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	contents := &BundleContents{Manifest: Manifest{
		Platform: "tinyfpga_bx",
		SoC:      SoCFiles{MemoryMap: "soc.pb", Linker: "regions.ld"},
		Firmware: &Firmware{BinFile: "firmware.fbi", HexFile: "flash.hex"},
	}}
	var buf bytes.Buffer
	if err := WriteBundle(&buf, dir, contents); err != nil {
		t.Fatal(err)
	}
	zipName := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(zipName, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	bundle, err := OpenBundle(zipName)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(contents.Manifest, bundle.Manifest); diff != "" {
		t.Errorf("manifest (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, bundle.Firmware); diff != "" {
		t.Errorf("firmware (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Regions(Linker), bundle.MemoryMap.Regions(Linker)); diff != "" {
		t.Errorf("linker regions (-want +got):\n%s", diff)
	}
}
