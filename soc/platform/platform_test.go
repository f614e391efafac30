package platform

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookupDottedName(t *testing.T) {
	for _, name := range []string{"tinyfpga_bx", "litex_boards.partner.platforms.tinyfpga_bx"} {
		c, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		p, err := c("")
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != TinyFPGABXName || p.Toolchain != "icestorm" {
			t.Errorf("Lookup(%q) = %s/%s", name, p.Name, p.Toolchain)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("arty"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestUnsupportedToolchain(t *testing.T) {
	if _, err := TinyFPGABX("vivado"); err == nil {
		t.Fatal("expected error for vivado toolchain")
	}
}

func TestRequestOnce(t *testing.T) {
	p, err := TinyFPGABX("")
	if err != nil {
		t.Fatal(err)
	}
	led, err := p.Request("user_led", 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"B3"}, led.Pins); diff != "" {
		t.Errorf("led pins (-want +got):\n%s", diff)
	}
	if _, err := p.Request("user_led", 0); !errors.Is(err, ErrResourceInUse) {
		t.Errorf("second request: expected ErrResourceInUse, got %v", err)
	}
	if _, err := p.Request("user_led", 1); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
	if _, err := p.Request("serial", 0); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("serial before extension: expected ErrResourceNotFound, got %v", err)
	}
	p.AddExtension(TinyFPGABXSerial)
	if _, err := p.Request("serial", 0); err != nil {
		t.Errorf("serial after extension: %v", err)
	}
	if diff := cmp.Diff([]string{"serial:0", "user_led:0"}, p.Requested()); diff != "" {
		t.Errorf("requested (-want +got):\n%s", diff)
	}
}

func TestSetCommand(t *testing.T) {
	p, _ := TinyFPGABX("")
	if !p.SetCommand("icepack", "icepack -s {build_name}.txt {build_name}.bin") {
		t.Fatal("icepack command not found")
	}
	if got := p.BuildCommands[2]; got != "icepack -s {build_name}.txt {build_name}.bin" {
		t.Errorf("pack command = %q", got)
	}
	if p.SetCommand("iceprog", "x") {
		t.Error("unexpected match for iceprog")
	}
}

func TestRelease(t *testing.T) {
	p, _ := TinyFPGABX("")
	led, err := p.Request("user_led", 0)
	if err != nil {
		t.Fatal(err)
	}
	clk, err := p.Request("clk16", 0)
	if err != nil {
		t.Fatal(err)
	}
	p.Release(led)
	if diff := cmp.Diff([]string{"clk16:0"}, p.Requested()); diff != "" {
		t.Errorf("requested (-want +got):\n%s", diff)
	}
	if _, err := p.Request("user_led", 0); err != nil {
		t.Errorf("request after release: %v", err)
	}
	p.Release(led, clk)
	if got := p.Requested(); len(got) != 0 {
		t.Errorf("requested after release: %v", got)
	}
}

func TestHas(t *testing.T) {
	p, _ := TinyFPGABX("")
	if !p.Has("user_led", 0) || p.Has("user_led", 1) || p.Has("serial", 0) {
		t.Fatal("unexpected resource set")
	}
	serial := *TinyFPGABXSerial
	p.AddExtension(&serial)
	if !p.Has("serial", 0) {
		t.Error("extension not found")
	}
}

func TestWriteSynthScript(t *testing.T) {
	p, _ := TinyFPGABX("")
	var buf bytes.Buffer
	if err := p.WriteSynthScript(&buf, "top"); err != nil {
		t.Fatal(err)
	}
	want := "read_verilog top.v\nsynth_ice40 -top top -json top.json\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("script (-want +got):\n%s", diff)
	}
}
