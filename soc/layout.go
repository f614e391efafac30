package soc

import (
	"errors"
	"fmt"
	"math"
)

const (
	RegionROM   = "rom"
	RegionUser  = "user_flash"
	RegionFlash = "spiflash"
)

var (
	ErrLayoutOverflow      = errors.New("flash too small for bootloader and safety margin")
	ErrInvalidResetAddress = errors.New("cpu reset address outside flash window")
	ErrFlashGeometry       = errors.New("invalid flash geometry")
)

// MemoryRegion is a named, contiguous address range. End is exclusive.
type MemoryRegion struct {
	Name   string
	Origin uint64
	Length uint64
}

func (r MemoryRegion) End() uint64 {
	return r.Origin + r.Length
}

func (r MemoryRegion) Contains(addr uint64) bool {
	return addr >= r.Origin && addr-r.Origin < r.Length
}

func (r MemoryRegion) Overlaps(o MemoryRegion) bool {
	if r.Length == 0 || o.Length == 0 {
		return false
	}
	return r.Origin < o.End() && o.Origin < r.End()
}

func (r MemoryRegion) String() string {
	return fmt.Sprintf("%s@0x%08x+0x%x", r.Name, r.Origin, r.Length)
}

// FlashLayout describes the mapped window of a SPI flash device.
type FlashLayout struct {
	Base       uint64
	Size       uint64
	PageSize   uint64
	SectorSize uint64
}

func (f FlashLayout) Validate() error {
	switch {
	case f.Size == 0:
		return fmt.Errorf("%w: zero capacity", ErrFlashGeometry)
	case f.Size > math.MaxUint64-f.Base:
		return fmt.Errorf("%w: window 0x%x+0x%x wraps the address space", ErrFlashGeometry, f.Base, f.Size)
	case f.SectorSize == 0 || f.Size%f.SectorSize != 0:
		return fmt.Errorf("%w: sector size 0x%x does not divide capacity 0x%x", ErrFlashGeometry, f.SectorSize, f.Size)
	case f.PageSize == 0 || f.SectorSize%f.PageSize != 0:
		return fmt.Errorf("%w: page size 0x%x does not divide sector size 0x%x", ErrFlashGeometry, f.PageSize, f.SectorSize)
	}
	return nil
}

func (f FlashLayout) Region() MemoryRegion {
	return MemoryRegion{Name: RegionFlash, Origin: f.Base, Length: f.Size}
}

// BootConfiguration ties the CPU reset vector to the flash. Firmware
// always starts right after the ROM region.
type BootConfiguration struct {
	ResetAddress uint64
	ROM          MemoryRegion
	Firmware     MemoryRegion
}

func (f FlashLayout) Boot(resetAddr, bootloaderSize, safetyMargin uint64) (*BootConfiguration, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	l, err := ComputeLayout(f.Base, f.Size, resetAddr, bootloaderSize, safetyMargin)
	if err != nil {
		return nil, err
	}
	return &BootConfiguration{ResetAddress: resetAddr, ROM: l.ROM, Firmware: l.User}, nil
}

type Layout struct {
	ROM   MemoryRegion
	User  MemoryRegion
	Flash MemoryRegion
}

// Regions returns the non-empty boot regions in address order. The flash
// window is not included since it lives on the bus, not in the linker map.
func (l Layout) Regions() []MemoryRegion {
	var out []MemoryRegion
	if l.ROM.Length > 0 {
		out = append(out, l.ROM)
	}
	return append(out, l.User)
}

// ComputeLayout splits a flash window into the bootloader region at the
// reset vector and the firmware region behind it. The safety margin is
// only taken off the end of the firmware region.
func ComputeLayout(flashBase, flashSize, cpuResetAddress, bootloaderSize, safetyMargin uint64) (Layout, error) {
	if flashSize > math.MaxUint64-flashBase {
		return Layout{}, fmt.Errorf("%w: window 0x%x+0x%x wraps the address space",
			ErrInvalidResetAddress, flashBase, flashSize)
	}
	if cpuResetAddress < flashBase || cpuResetAddress-flashBase >= flashSize {
		return Layout{}, fmt.Errorf("%w: 0x%x not in [0x%x, 0x%x)",
			ErrInvalidResetAddress, cpuResetAddress, flashBase, flashBase+flashSize)
	}
	// remaining capacity from the reset vector to the end of the window
	avail := flashSize - (cpuResetAddress - flashBase)
	if bootloaderSize >= avail || safetyMargin >= avail-bootloaderSize {
		return Layout{}, fmt.Errorf("%w: 0x%x left after reset vector, need 0x%x+0x%x+1",
			ErrLayoutOverflow, avail, bootloaderSize, safetyMargin)
	}
	firmwareBase := cpuResetAddress + bootloaderSize
	return Layout{
		ROM: MemoryRegion{
			Name:   RegionROM,
			Origin: cpuResetAddress,
			Length: bootloaderSize,
		},
		User: MemoryRegion{
			Name:   RegionUser,
			Origin: firmwareBase,
			Length: flashSize - (firmwareBase - flashBase) - safetyMargin,
		},
		Flash: MemoryRegion{
			Name:   RegionFlash,
			Origin: flashBase,
			Length: flashSize,
		},
	}, nil
}
