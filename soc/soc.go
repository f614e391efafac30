package soc

import (
	"fmt"
	"sort"

	"github.com/golang/glog"
	"github.com/q0jt/go-tinysoc/soc/config"
	"github.com/q0jt/go-tinysoc/soc/config/endianness"
	"github.com/q0jt/go-tinysoc/soc/platform"
)

// CoreOptions are the SoC core settings taken from the command line.
type CoreOptions struct {
	CPUType            string
	CPUVariant         string
	UARTBaudrate       int
	IntegratedSRAMSize uint32 // 0 keeps the configured size
}

func DefaultCoreOptions() CoreOptions {
	return CoreOptions{
		CPUType:      "vexriscv",
		CPUVariant:   "standard",
		UARTBaudrate: 115200,
	}
}

// Peripheral is a core provided by the gateware framework. The SoC only
// passes its parameters through.
type Peripheral interface {
	Name() string
	Params() map[string]any
}

// CSRPeripheral is a peripheral with its own register bank.
type CSRPeripheral interface {
	Peripheral
	Registers() []CSRRegister
}

// CRG drives the system clock domain from one clock pin.
type CRG struct {
	Clock *platform.Resource
}

func (c *CRG) Name() string { return "crg" }
func (c *CRG) Params() map[string]any {
	return map[string]any{"clk": c.Clock.Name}
}

// SPIFlash is the memory mapped flash controller.
type SPIFlash struct {
	Pads       *platform.Resource
	Dummy      uint8
	Div        uint8
	Endianness endianness.Endianness
}

func (f *SPIFlash) Name() string { return "spiflash" }
func (f *SPIFlash) Params() map[string]any {
	return map[string]any{
		"dummy":      int(f.Dummy),
		"div":        int(f.Div),
		"endianness": f.Endianness.String(),
	}
}

type GPIOOut struct {
	Pads *platform.Resource
}

func (g *GPIOOut) Name() string { return "leds" }
func (g *GPIOOut) Params() map[string]any {
	return map[string]any{"width": len(g.Pads.Pins)}
}

func (g *GPIOOut) Registers() []CSRRegister {
	return []CSRRegister{{Name: "out", Offset: 0x00}}
}

type UART struct {
	Pads     *platform.Resource
	Baudrate int
}

func (u *UART) Name() string { return "uart" }
func (u *UART) Params() map[string]any {
	return map[string]any{"baudrate": u.Baudrate}
}

func (u *UART) Registers() []CSRRegister {
	return []CSRRegister{
		{Name: "rxtx", Offset: 0x00},
		{Name: "txfull", Offset: 0x04, ReadOnly: true},
		{Name: "rxempty", Offset: 0x08, ReadOnly: true},
		{Name: "ev_status", Offset: 0x0c, ReadOnly: true},
		{Name: "ev_pending", Offset: 0x10},
		{Name: "ev_enable", Offset: 0x14},
	}
}

// SoC is a flash booted microcontroller on one board.
type SoC struct {
	Platform   *platform.Platform
	Options    CoreOptions
	ClkFreq    uint64
	Flash      FlashLayout
	Layout     Layout
	Endianness endianness.Endianness
	SRAMSize   uint32

	CSRMap map[string]int
	MemMap map[string]uint64

	Peripherals []Peripheral
	Constants   map[string]any
}

// New builds the SoC description. The memory layout is computed before
// any platform resource is requested so a bad layout leaves the platform
// untouched.
func New(p *platform.Platform, cfg *config.SoCConfig, opts CoreOptions) (*SoC, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	if p.DefaultClkPeriod <= 0 {
		return nil, fmt.Errorf("soc: platform %s has no default clock period", p.Name)
	}

	csrs, err := MergeCSR(DefaultCSRMap(), CSRMap(cfg.CsrMap))
	if err != nil {
		return nil, err
	}
	overrides := memOverrides(cfg)
	if _, ok := overrides[RegionFlash]; !ok {
		overrides[RegionFlash] = addrp(uint64(cfg.Flash.Base))
	}
	mems, err := MergeMem(DefaultMemMap(), overrides, RegionFlash, "sram", "csr")
	if err != nil {
		return nil, err
	}

	flash := flashLayout(cfg, mems[RegionFlash])
	boot, err := flash.Boot(uint64(cfg.CpuResetAddress),
		uint64(cfg.Boot.BootloaderSize), uint64(cfg.Boot.SafetyMargin))
	if err != nil {
		return nil, err
	}

	s := &SoC{
		Platform:   p,
		Options:    opts,
		ClkFreq:    uint64(1e9 / p.DefaultClkPeriod),
		Flash:      flash,
		Layout:     Layout{ROM: boot.ROM, User: boot.Firmware, Flash: flash.Region()},
		Endianness: cfg.Flash.Endianness,
		SRAMSize:   cfg.IntegratedSramSize,
		CSRMap:     csrs,
		MemMap:     mems,
		Constants:  map[string]any{},
	}
	if opts.IntegratedSRAMSize != 0 {
		s.SRAMSize = opts.IntegratedSRAMSize
	}
	if s.SRAMSize == 0 {
		return nil, fmt.Errorf("soc: %w", ErrEmptyRegion)
	}

	if err := s.addPeripherals(cfg); err != nil {
		return nil, err
	}

	s.Constants["CONFIG_CLOCK_FREQUENCY"] = s.ClkFreq
	s.Constants["CONFIG_CPU_TYPE"] = opts.CPUType
	s.Constants["CONFIG_CPU_VARIANT"] = opts.CPUVariant
	s.Constants["CONFIG_CPU_RESET_ADDR"] = boot.ResetAddress
	s.Constants["SPIFLASH_PAGE_SIZE"] = uint64(cfg.Flash.PageSize)
	s.Constants["SPIFLASH_SECTOR_SIZE"] = uint64(cfg.Flash.SectorSize)
	s.Constants["FLASH_BOOT_ADDRESS"] = boot.Firmware.Origin

	// keep the flash out of deep power down once the bitstream is loaded
	p.SetCommand("icepack", "icepack -s {build_name}.txt {build_name}.bin")

	glog.V(1).Infof("soc: %s at %d Hz, rom %v, firmware %v", p.Name, s.ClkFreq, boot.ROM, boot.Firmware)
	return s, nil
}

// peripherals the SoC instantiates, each needs a csr id
var peripheralNames = []string{"crg", "spiflash", "uart", "leds"}

// addPeripherals requests the pads of every peripheral. On error all
// requests are released and the platform is left as it was.
func (s *SoC) addPeripherals(cfg *config.SoCConfig) (err error) {
	for _, name := range peripheralNames {
		if _, ok := s.CSRMap[name]; !ok {
			return fmt.Errorf("%w: no csr id for %s", ErrMissingMapping, name)
		}
	}

	p := s.Platform
	var held []*platform.Resource
	defer func() {
		if err != nil {
			p.Release(held...)
		}
	}()
	request := func(name string) (*platform.Resource, error) {
		r, err := p.Request(name, 0)
		if err != nil {
			return nil, err
		}
		held = append(held, r)
		return r, nil
	}

	clk, err := request(p.DefaultClkName)
	if err != nil {
		return err
	}
	pads, err := request("spiflash")
	if err != nil {
		return err
	}
	led, err := request("user_led")
	if err != nil {
		return err
	}
	if !p.Has("serial", 0) {
		serial := *platform.TinyFPGABXSerial
		p.AddExtension(&serial)
	}
	serial, err := request("serial")
	if err != nil {
		return err
	}

	s.Peripherals = []Peripheral{
		&CRG{Clock: clk},
		&SPIFlash{
			Pads:       pads,
			Dummy:      cfg.Flash.Dummy,
			Div:        cfg.Flash.Div,
			Endianness: cfg.Flash.Endianness,
		},
		&UART{Pads: serial, Baudrate: s.Options.UARTBaudrate},
		&GPIOOut{Pads: led},
	}
	return nil
}

// Register hands the SoC's regions, CSRs and constants to a builder.
func (s *SoC) Register(r Registrar) error {
	sram := MemoryRegion{Name: "sram", Origin: s.MemMap["sram"], Length: uint64(s.SRAMSize)}
	csr := MemoryRegion{Name: "csr", Origin: s.MemMap["csr"], Length: csrBanks * csrBankSize}

	for _, m := range []MemoryRegion{s.Layout.Flash, sram, csr} {
		if err := r.RegisterMem(m); err != nil {
			return err
		}
	}
	for _, m := range append([]MemoryRegion{sram}, s.Layout.Regions()...) {
		if err := r.AddMemoryRegion(m); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(s.CSRMap))
	for n := range s.CSRMap {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := r.AddCSR(n, s.CSRMap[n]); err != nil {
			return err
		}
	}
	for _, per := range s.Peripherals {
		c, ok := per.(CSRPeripheral)
		if !ok {
			continue
		}
		for _, reg := range c.Registers() {
			if err := r.AddCSRRegister(c.Name(), reg); err != nil {
				return err
			}
		}
	}
	for k, v := range s.Constants {
		r.AddConstant(k, v)
	}
	return nil
}

// CSRBase returns the bus address of a peripheral's register bank.
func (s *SoC) CSRBase(name string) (uint64, bool) {
	id, ok := s.CSRMap[name]
	if !ok {
		return 0, false
	}
	return s.MemMap["csr"] + uint64(id)*csrBankSize, true
}

const csrBankSize = 0x800
