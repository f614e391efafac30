package platform

import "fmt"

const TinyFPGABXName = "tinyfpga_bx"

func init() {
	Register(TinyFPGABXName, TinyFPGABX)
}

// TinyFPGABX is the iCE40LP8K based TinyFPGA BX.
func TinyFPGABX(toolchain string) (*Platform, error) {
	if toolchain == "" {
		toolchain = "icestorm"
	}
	if toolchain != "icestorm" {
		return nil, fmt.Errorf("%s: unsupported toolchain %q", TinyFPGABXName, toolchain)
	}
	p := New(TinyFPGABXName, []*Resource{
		{Name: "user_led", Number: 0, Pins: []string{"B3"}, IOStandard: "LVCMOS33"},
		{Name: "clk16", Number: 0, Pins: []string{"B2"}, IOStandard: "LVCMOS33"},
		{Name: "usb", Number: 0, IOStandard: "LVCMOS33", Subsignals: []Subsignal{
			{Name: "d_p", Pins: []string{"B4"}},
			{Name: "d_n", Pins: []string{"A4"}},
			{Name: "pullup", Pins: []string{"A3"}},
		}},
		{Name: "spiflash", Number: 0, IOStandard: "LVCMOS33", Subsignals: []Subsignal{
			{Name: "cs_n", Pins: []string{"F7"}},
			{Name: "clk", Pins: []string{"G7"}},
			{Name: "mosi", Pins: []string{"G6"}},
			{Name: "miso", Pins: []string{"H7"}},
			{Name: "wp", Pins: []string{"H4"}},
			{Name: "hold", Pins: []string{"J8"}},
		}},
	})
	p.DefaultClkName = "clk16"
	p.DefaultClkPeriod = 62.5
	p.Toolchain = toolchain
	p.SynthScript = []string{
		"read_verilog {build_name}.v",
		"synth_ice40 -top top -json {build_name}.json",
	}
	p.BuildCommands = []string{
		"yosys -q -l {build_name}.rpt {build_name}.ys",
		"nextpnr-ice40 --lp8k --package cm81 --json {build_name}.json --pcf {build_name}.pcf --asc {build_name}.txt",
		"icepack {build_name}.txt {build_name}.bin",
	}
	return p, nil
}

// TinyFPGABXSerial puts a UART on the first two GPIO pins.
var TinyFPGABXSerial = &Resource{
	Name:       "serial",
	Number:     0,
	IOStandard: "LVCMOS33",
	Subsignals: []Subsignal{
		{Name: "tx", Pins: []string{"A2"}},
		{Name: "rx", Pins: []string{"A1"}},
	},
}
