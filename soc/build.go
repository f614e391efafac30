package soc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/q0jt/go-tinysoc/soc/platform"
)

// ErrMissingGateware is returned when the top level Verilog the synthesis
// script reads has not been written by the HDL framework.
var ErrMissingGateware = errors.New("gateware source missing")

type BuilderOptions struct {
	OutputDir       string
	BuildName       string
	Firmware        string
	Bootloader      string
	CompileGateware bool
	CompileSoftware bool
}

func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		OutputDir:       "build",
		BuildName:       "tinysoc",
		CompileGateware: true,
		CompileSoftware: true,
	}
}

type SoftwarePackage struct {
	Name   string
	SrcDir string
}

type BuildRequest struct {
	Platform  *platform.Platform
	BuildName string
	BuildDir  string
	Commands  []string
}

// Toolchain runs the external synthesis and compiler tools.
type Toolchain interface {
	BuildGateware(ctx context.Context, req BuildRequest) error
	CompileSoftware(ctx context.Context, pkg SoftwarePackage, buildDir string) error
}

type Builder struct {
	soc       *SoC
	opts      BuilderOptions
	toolchain Toolchain
	packages  []SoftwarePackage
}

func NewBuilder(s *SoC, opts BuilderOptions, tc Toolchain) *Builder {
	if opts.BuildName == "" {
		opts.BuildName = DefaultBuilderOptions().BuildName
	}
	return &Builder{soc: s, opts: opts, toolchain: tc}
}

func (b *Builder) AddSoftwarePackage(name, srcDir string) {
	b.packages = append(b.packages, SoftwarePackage{Name: name, SrcDir: srcDir})
}

func (b *Builder) path(elem ...string) string {
	return filepath.Join(append([]string{b.opts.OutputDir}, elem...)...)
}

const (
	generatedDir  = "software/include/generated"
	memoryMapFile = "soc.pb"
	firmwareFile  = "software/firmware.fbi"
	flashHexFile  = "flash.hex"
)

// Build writes the generated files, compiles the software packages,
// packages the firmware and finally runs the gateware toolchain.
func (b *Builder) Build(ctx context.Context) error {
	for _, dir := range []string{"gateware", generatedDir} {
		if err := os.MkdirAll(b.path(dir), 0755); err != nil {
			return err
		}
	}

	mm := NewMemoryMap()
	if err := b.soc.Register(mm); err != nil {
		return err
	}
	if err := b.generate(mm); err != nil {
		return err
	}

	if b.opts.CompileSoftware {
		for _, pkg := range b.packages {
			glog.Infof("build: compiling software package %s", pkg.Name)
			dir := b.path("software", pkg.Name)
			if err := b.toolchain.CompileSoftware(ctx, pkg, dir); err != nil {
				return fmt.Errorf("software %s: %w", pkg.Name, err)
			}
		}
	}

	contents := &BundleContents{Manifest: Manifest{
		Platform: b.soc.Platform.Name,
		SoC:      SoCFiles{MemoryMap: memoryMapFile, Linker: generatedDir + "/regions.ld"},
	}}
	if b.opts.Firmware != "" {
		if err := b.packageFirmware(); err != nil {
			return err
		}
		contents.Manifest.Firmware = &Firmware{BinFile: firmwareFile, HexFile: flashHexFile}
	}
	if err := b.writeBundle(contents); err != nil {
		return err
	}

	if !b.opts.CompileGateware {
		return nil
	}
	src := b.path("gateware", b.opts.BuildName+".v")
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s is generated by the HDL framework, run with --no-compile-gateware to skip synthesis", ErrMissingGateware, src)
	}
	glog.Infof("build: running %s toolchain for %s", b.soc.Platform.Toolchain, b.soc.Platform.Name)
	err := b.toolchain.BuildGateware(ctx, BuildRequest{
		Platform:  b.soc.Platform,
		BuildName: b.opts.BuildName,
		BuildDir:  b.path("gateware"),
		Commands:  append([]string(nil), b.soc.Platform.BuildCommands...),
	})
	if err != nil {
		return fmt.Errorf("gateware: %w", err)
	}
	return nil
}

func (b *Builder) generate(mm *MemoryMap) error {
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{generatedDir + "/regions.ld", func(w io.Writer) error { return WriteLinkerRegions(w, mm) }},
		{generatedDir + "/mem.h", func(w io.Writer) error { return WriteMemHeader(w, mm) }},
		{generatedDir + "/soc.h", func(w io.Writer) error { return WriteSoCHeader(w, mm) }},
		{generatedDir + "/csr.h", func(w io.Writer) error { return WriteCSRHeader(w, mm) }},
		{"gateware/" + b.opts.BuildName + ".pcf", b.soc.Platform.WritePCF},
		{"gateware/" + b.opts.BuildName + ".ys", func(w io.Writer) error {
			return b.soc.Platform.WriteSynthScript(w, b.opts.BuildName)
		}},
		{memoryMapFile, func(w io.Writer) error {
			pb, err := EncodeMemoryMap(mm)
			if err != nil {
				return err
			}
			_, err = w.Write(pb)
			return err
		}},
		{"soc.json", func(w io.Writer) error {
			js, err := EncodeMemoryMapJSON(mm)
			if err != nil {
				return err
			}
			_, err = w.Write(js)
			return err
		}},
	}
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.write(&buf); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		if err := os.WriteFile(b.path(f.name), buf.Bytes(), 0644); err != nil {
			return err
		}
		glog.V(1).Infof("build: wrote %s", f.name)
	}
	return nil
}

func (b *Builder) packageFirmware() error {
	fw, err := ReadImage(b.opts.Firmware)
	if err != nil {
		return err
	}
	var bl []byte
	if b.opts.Bootloader != "" {
		if bl, err = ReadImage(b.opts.Bootloader); err != nil {
			return err
		}
	}
	order := byteOrder(b.soc.Endianness)
	img, err := BuildFlashImage(b.soc.Layout, bl, fw, order)
	if err != nil {
		return err
	}
	if err := os.WriteFile(b.path(firmwareFile), PackageFirmware(fw, order), 0644); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := img.WriteHex(&buf); err != nil {
		return err
	}
	glog.Infof("build: firmware 0x%x bytes at %v", len(fw), b.soc.Layout.User)
	return os.WriteFile(b.path(flashHexFile), buf.Bytes(), 0644)
}

func (b *Builder) writeBundle(contents *BundleContents) error {
	f, err := os.Create(b.path(b.opts.BuildName + ".zip"))
	if err != nil {
		return err
	}
	if err := WriteBundle(f, b.opts.OutputDir, contents); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CommandToolchain runs the platform's commands with os/exec.
type CommandToolchain struct {
	Stdout io.Writer
	Stderr io.Writer
}

func expand(cmd string, vars map[string]string) []string {
	for k, v := range vars {
		cmd = strings.ReplaceAll(cmd, "{"+k+"}", v)
	}
	return strings.Fields(cmd)
}

func (t *CommandToolchain) run(ctx context.Context, dir string, args []string) error {
	if len(args) == 0 {
		return nil
	}
	glog.V(1).Infof("exec: %s", strings.Join(args, " "))
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = dir
	c.Stdout = t.Stdout
	c.Stderr = t.Stderr
	return c.Run()
}

func (t *CommandToolchain) BuildGateware(ctx context.Context, req BuildRequest) error {
	vars := map[string]string{"build_name": req.BuildName, "build_dir": req.BuildDir}
	for _, cmd := range req.Commands {
		if err := t.run(ctx, req.BuildDir, expand(cmd, vars)); err != nil {
			return err
		}
	}
	return nil
}

func (t *CommandToolchain) CompileSoftware(ctx context.Context, pkg SoftwarePackage, buildDir string) error {
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return err
	}
	abs, err := filepath.Abs(buildDir)
	if err != nil {
		return err
	}
	src, err := filepath.Abs(pkg.SrcDir)
	if err != nil {
		return err
	}
	return t.run(ctx, buildDir, []string{"make", "-C", src, "BUILD_DIR=" + abs})
}
