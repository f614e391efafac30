package soc

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeLayout8MiB(t *testing.T) {
	got, err := ComputeLayout(0x20000000, 0x800000, 0x20050000, 0x8000, 0x100)
	if err != nil {
		t.Fatal(err)
	}
	want := Layout{
		ROM:   MemoryRegion{Name: RegionROM, Origin: 0x20050000, Length: 0x8000},
		User:  MemoryRegion{Name: RegionUser, Origin: 0x20058000, Length: 0x7A7F00},
		Flash: MemoryRegion{Name: RegionFlash, Origin: 0x20000000, Length: 0x800000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("layout (-want +got):\n%s", diff)
	}
}

func TestComputeLayoutProperties(t *testing.T) {
	tests := []struct {
		base, size, reset, bl, margin uint64
	}{
		{0x20000000, 0x100000, 0x20050000, 0x8000, 0x100},
		{0x20000000, 0x800000, 0x20000000, 0, 0},
		{0, 0x10000, 0, 0x1000, 0x1},
		{0x80000000, 0x400000, 0x803ff000, 0x800, 0x7ff},
		{0xffff0000, 0x10000, 0xffff8000, 0x100, 0x100},
	}
	for _, tt := range tests {
		l, err := ComputeLayout(tt.base, tt.size, tt.reset, tt.bl, tt.margin)
		if err != nil {
			t.Errorf("%+v: %v", tt, err)
			continue
		}
		if l.ROM.Origin != tt.reset {
			t.Errorf("%+v: rom origin 0x%x", tt, l.ROM.Origin)
		}
		if l.User.Origin != tt.reset+tt.bl {
			t.Errorf("%+v: user origin 0x%x", tt, l.User.Origin)
		}
		if l.ROM.End() > l.User.Origin {
			t.Errorf("%+v: rom %v overlaps user %v", tt, l.ROM, l.User)
		}
		if want := tt.size - (tt.reset + tt.bl - tt.base) - tt.margin; l.User.Length != want {
			t.Errorf("%+v: user length 0x%x, want 0x%x", tt, l.User.Length, want)
		}
		if l.User.End()+tt.margin != l.Flash.End() {
			t.Errorf("%+v: margin not taken from the end of %v", tt, l.User)
		}
		again, _ := ComputeLayout(tt.base, tt.size, tt.reset, tt.bl, tt.margin)
		if diff := cmp.Diff(l, again); diff != "" {
			t.Errorf("%+v: not deterministic:\n%s", tt, diff)
		}
	}
}

func TestComputeLayoutErrors(t *testing.T) {
	tests := []struct {
		name                          string
		base, size, reset, bl, margin uint64
		want                          error
	}{
		{"reset outside small flash", 0x20000000, 0x10000, 0x20050000, 0x8000, 0x100, ErrInvalidResetAddress},
		{"reset below base", 0x20000000, 0x800000, 0x1fffffff, 0x8000, 0x100, ErrInvalidResetAddress},
		{"reset at window end", 0x20000000, 0x800000, 0x20800000, 0, 0, ErrInvalidResetAddress},
		{"empty flash", 0x20000000, 0, 0x20000000, 0, 0, ErrInvalidResetAddress},
		{"window wraps", math.MaxUint64 - 0xff, 0x1000, math.MaxUint64 - 0xff, 0, 0, ErrInvalidResetAddress},
		{"exactly bootloader plus margin", 0x20000000, 0x8100, 0x20000000, 0x8000, 0x100, ErrLayoutOverflow},
		{"bootloader fills flash", 0x20000000, 0x8000, 0x20000000, 0x8000, 0, ErrLayoutOverflow},
		{"bootloader beyond flash", 0x20000000, 0x8000, 0x20004000, 0x8000, 0, ErrLayoutOverflow},
		{"huge margin", 0x20000000, 0x800000, 0x20050000, 0x8000, math.MaxUint64, ErrLayoutOverflow},
		{"huge bootloader", 0x20000000, 0x800000, 0x20050000, math.MaxUint64, 0, ErrLayoutOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeLayout(tt.base, tt.size, tt.reset, tt.bl, tt.margin)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLayoutRegionsSkipsEmptyROM(t *testing.T) {
	l, err := ComputeLayout(0x20000000, 0x10000, 0x20000000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]MemoryRegion{l.User}, l.Regions()); diff != "" {
		t.Errorf("regions (-want +got):\n%s", diff)
	}
}

func TestFlashLayoutBoot(t *testing.T) {
	f := FlashLayout{Base: 0x20000000, Size: 0x100000, PageSize: 256, SectorSize: 0x10000}
	boot, err := f.Boot(0x20050000, 0x8000, 0x100)
	if err != nil {
		t.Fatal(err)
	}
	if boot.Firmware.Origin != boot.ResetAddress+boot.ROM.Length {
		t.Errorf("firmware %v does not follow rom %v", boot.Firmware, boot.ROM)
	}
	if boot.Firmware.Length != 0xA7F00 {
		t.Errorf("firmware length 0x%x", boot.Firmware.Length)
	}
	if !f.Region().Contains(boot.ResetAddress) {
		t.Errorf("reset 0x%x outside %v", boot.ResetAddress, f.Region())
	}
}

func TestFlashLayoutValidate(t *testing.T) {
	tests := []FlashLayout{
		{Base: 0, Size: 0, PageSize: 256, SectorSize: 0x10000},
		{Base: 0, Size: 0x100000, PageSize: 256, SectorSize: 0},
		{Base: 0, Size: 0x100000, PageSize: 256, SectorSize: 0x30000},
		{Base: 0, Size: 0x100000, PageSize: 0, SectorSize: 0x10000},
		{Base: 0, Size: 0x100000, PageSize: 0x300, SectorSize: 0x10000},
		{Base: math.MaxUint64, Size: 0x100000, PageSize: 256, SectorSize: 0x10000},
	}
	for _, f := range tests {
		if err := f.Validate(); !errors.Is(err, ErrFlashGeometry) {
			t.Errorf("%+v: expected ErrFlashGeometry, got %v", f, err)
		}
		if _, err := f.Boot(f.Base, 0, 0); err == nil {
			t.Errorf("%+v: Boot accepted bad geometry", f)
		}
	}
}

func TestMemoryRegionOverlaps(t *testing.T) {
	a := MemoryRegion{Name: "a", Origin: 0x1000, Length: 0x1000}
	tests := []struct {
		b    MemoryRegion
		want bool
	}{
		{MemoryRegion{Origin: 0x2000, Length: 0x10}, false},
		{MemoryRegion{Origin: 0x1fff, Length: 0x10}, true},
		{MemoryRegion{Origin: 0x0, Length: 0x1000}, false},
		{MemoryRegion{Origin: 0x0, Length: 0x1001}, true},
		{MemoryRegion{Origin: 0x1800, Length: 0}, false},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%v overlaps %v = %v", a, tt.b, got)
		}
	}
	if a.Contains(0x2000) || !a.Contains(0x1fff) {
		t.Error("Contains must treat End as exclusive")
	}
}
