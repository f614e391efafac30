package soc

import (
	"flag"
	"strconv"
)

// BuilderFlags holds the builder flag group until the flag set is parsed.
type BuilderFlags struct {
	opts       BuilderOptions
	noGateware bool
	noSoftware bool
	ConfigPath string
}

func BuilderArgs(fs *flag.FlagSet) *BuilderFlags {
	f := &BuilderFlags{opts: DefaultBuilderOptions()}
	fs.StringVar(&f.opts.OutputDir, "output-dir", f.opts.OutputDir, "base output directory")
	fs.StringVar(&f.opts.BuildName, "build-name", f.opts.BuildName, "name of the gateware build")
	fs.StringVar(&f.opts.Firmware, "firmware", "", "firmware image (.bin or .hex) to package into flash")
	fs.StringVar(&f.opts.Bootloader, "bootloader", "", "bootloader image placed at the cpu reset address")
	fs.BoolVar(&f.noGateware, "no-compile-gateware", false, "do not run the gateware toolchain")
	fs.BoolVar(&f.noSoftware, "no-compile-software", false, "do not compile software packages")
	fs.StringVar(&f.ConfigPath, "soc-config", "", "pkl module amending SoCConfig.pkl (default: built-in TinyFPGA BX)")
	return f
}

func (f *BuilderFlags) Options() BuilderOptions {
	opts := f.opts
	opts.CompileGateware = !f.noGateware
	opts.CompileSoftware = !f.noSoftware
	return opts
}

func SoCCoreArgs(fs *flag.FlagSet) *CoreOptions {
	opts := DefaultCoreOptions()
	fs.StringVar(&opts.CPUType, "cpu-type", opts.CPUType, "cpu core")
	fs.StringVar(&opts.CPUVariant, "cpu-variant", opts.CPUVariant, "cpu core variant")
	fs.IntVar(&opts.UARTBaudrate, "uart-baudrate", opts.UARTBaudrate, "serial port baudrate")
	fs.Func("integrated-sram-size", "integrated SRAM size in bytes (default: from config)", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return err
		}
		opts.IntegratedSRAMSize = uint32(v)
		return nil
	})
	return &opts
}
