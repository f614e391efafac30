package soc

import (
	"context"
	"errors"

	"github.com/q0jt/go-tinysoc/soc/config"
	"github.com/q0jt/go-tinysoc/soc/config/board"
	"github.com/q0jt/go-tinysoc/soc/config/endianness"
)

// LoadConfig evaluates a pkl module amending pkl/SoCConfig.pkl.
func LoadConfig(ctx context.Context, path string) (*config.SoCConfig, error) {
	cfg, err := config.LoadFromPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkConfig(cfg *config.SoCConfig) error {
	if cfg.Flash == nil {
		return errors.New("config: flash is not set")
	}
	if cfg.Boot == nil {
		return errors.New("config: boot is not set")
	}
	return nil
}

// DefaultConfig matches pkl/tinyfpga_bx.pkl.
func DefaultConfig() *config.SoCConfig {
	spiflash := uint32(0x20000000)
	return &config.SoCConfig{
		Board: board.TinyfpgaBx,
		Flash: &config.Flash{
			Base:       spiflash,
			Size:       1 << 20,
			PageSize:   256,
			SectorSize: 0x10000,
			Dummy:      8,
			Div:        2,
			Endianness: endianness.Little,
		},
		CpuResetAddress: 0x20050000,
		Boot: &config.Boot{
			BootloaderSize: 0x8000,
			SafetyMargin:   0x100,
		},
		IntegratedSramSize: 10 * 1024,
		CsrMap: map[string]*int{
			"spiflash": intp(16),
			"leds":     nil,
		},
		MemMap: map[string]*uint32{
			"spiflash": &spiflash,
		},
	}
}

func flashLayout(cfg *config.SoCConfig, base uint64) FlashLayout {
	return FlashLayout{
		Base:       base,
		Size:       uint64(cfg.Flash.Size),
		PageSize:   uint64(cfg.Flash.PageSize),
		SectorSize: uint64(cfg.Flash.SectorSize),
	}
}

func memOverrides(cfg *config.SoCConfig) MemMap {
	out := make(MemMap, len(cfg.MemMap))
	for k, v := range cfg.MemMap {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = addrp(uint64(*v))
	}
	return out
}
