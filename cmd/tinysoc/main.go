// tinysoc builds a flash booted SoC for the TinyFPGA BX.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/q0jt/go-tinysoc/soc"
	"github.com/q0jt/go-tinysoc/soc/config"
	"github.com/q0jt/go-tinysoc/soc/platform"
)

const defaultPlatform = "litex_boards.partner.platforms.tinyfpga_bx"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	tc := &soc.CommandToolchain{Stdout: os.Stdout, Stderr: os.Stderr}
	err := run(ctx, flag.CommandLine, os.Args[1:], tc)
	stop()
	if err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
}

func run(ctx context.Context, fs *flag.FlagSet, args []string, tc soc.Toolchain) error {
	plat := fs.String("platform", defaultPlatform, "module name of the platform to build for")
	toolchain := fs.String("gateware-toolchain", "", "FPGA gateware toolchain used for build")
	builder := soc.BuilderArgs(fs)
	core := soc.SoCCoreArgs(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	newPlatform, err := platform.Lookup(*plat)
	if err != nil {
		return err
	}
	p, err := newPlatform(*toolchain)
	if err != nil {
		return err
	}

	var cfg *config.SoCConfig
	if builder.ConfigPath == "" {
		cfg = soc.DefaultConfig()
	} else if cfg, err = soc.LoadConfig(ctx, builder.ConfigPath); err != nil {
		return fmt.Errorf("%s: %w", builder.ConfigPath, err)
	}
	if cfg.Board.String() != p.Name {
		glog.Warningf("config is for %s, building for %s", cfg.Board, p.Name)
	}

	s, err := soc.New(p, cfg, *core)
	if err != nil {
		return err
	}
	glog.Infof("rom %v, firmware %v, flash %v", s.Layout.ROM, s.Layout.User, s.Layout.Flash)

	b := soc.NewBuilder(s, builder.Options(), tc)
	// runtime code lives next to the SoC definition when present
	if fi, err := os.Stat("firmware"); err == nil && fi.IsDir() {
		src, err := filepath.Abs("firmware")
		if err != nil {
			return err
		}
		b.AddSoftwarePackage("firmware", src)
	}
	return b.Build(ctx)
}
