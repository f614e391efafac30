package soc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/marcinbor85/gohex"
	"github.com/q0jt/go-tinysoc/soc/config/endianness"
)

// size of the length and crc32 words in front of packaged firmware
const firmwareHeaderSize = 8

var (
	ErrInvalidCRC    = errors.New("mismatch crc32")
	ErrImageTooLarge = errors.New("image does not fit its region")
)

func byteOrder(e endianness.Endianness) binary.ByteOrder {
	if e == endianness.Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// PackageFirmware prefixes data with its length and crc32, the layout the
// BIOS checks before jumping to flash.
func PackageFirmware(data []byte, order binary.ByteOrder) []byte {
	out := make([]byte, firmwareHeaderSize+len(data))
	order.PutUint32(out[0:], uint32(len(data)))
	order.PutUint32(out[4:], crc32.ChecksumIEEE(data))
	copy(out[firmwareHeaderSize:], data)
	return out
}

// FlashImage is the content of the whole flash window.
type FlashImage struct {
	layout Layout
	mem    *gohex.Memory
}

func checkAddr(r MemoryRegion) error {
	if r.End() > math.MaxUint32+1 {
		return fmt.Errorf("%v beyond the 32-bit address space", r)
	}
	return nil
}

func place(mem *gohex.Memory, r MemoryRegion, data []byte) error {
	if uint64(len(data)) > r.Length {
		return fmt.Errorf("%w: 0x%x bytes into %v", ErrImageTooLarge, len(data), r)
	}
	if len(data) == 0 {
		return nil
	}
	if err := checkAddr(r); err != nil {
		return err
	}
	return mem.AddBinary(uint32(r.Origin), data)
}

// BuildFlashImage places the bootloader at the reset vector and the
// packaged firmware at the start of the firmware region. Either may be nil.
func BuildFlashImage(l Layout, bootloader, firmware []byte, order binary.ByteOrder) (*FlashImage, error) {
	if err := checkAddr(l.Flash); err != nil {
		return nil, err
	}
	mem := gohex.NewMemory()
	if err := place(mem, l.ROM, bootloader); err != nil {
		return nil, err
	}
	if firmware != nil {
		if err := place(mem, l.User, PackageFirmware(firmware, order)); err != nil {
			return nil, err
		}
	}
	return &FlashImage{layout: l, mem: mem}, nil
}

// OpenFlashImage reads a flash dump. Raw dumps start at the flash base.
func OpenFlashImage(name string, l Layout) (*FlashImage, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if isHexFile(name) {
		return readFlashHex(bytes.NewReader(b), l)
	}
	if uint64(len(b)) > l.Flash.Length {
		return nil, fmt.Errorf("%w: 0x%x byte dump", ErrImageTooLarge, len(b))
	}
	mem := gohex.NewMemory()
	if err := place(mem, l.Flash, b); err != nil {
		return nil, err
	}
	return &FlashImage{layout: l, mem: mem}, nil
}

func readFlashHex(r io.Reader, l Layout) (*FlashImage, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	for _, s := range mem.GetDataSegments() {
		seg := MemoryRegion{Name: "segment", Origin: uint64(s.Address), Length: uint64(len(s.Data))}
		if !l.Flash.Contains(seg.Origin) || seg.End() > l.Flash.End() {
			return nil, fmt.Errorf("%w: %v outside %v", ErrImageTooLarge, seg, l.Flash)
		}
	}
	return &FlashImage{layout: l, mem: mem}, nil
}

func (f *FlashImage) WriteHex(w io.Writer) error {
	return f.mem.DumpIntelHex(w, 16)
}

// Binary returns the whole flash window, unprogrammed bytes as 0xFF.
func (f *FlashImage) Binary() []byte {
	return f.Extract(f.layout.Flash)
}

func (f *FlashImage) Extract(r MemoryRegion) []byte {
	return f.mem.ToBinary(uint32(r.Origin), uint32(r.Length), 0xFF)
}

// ExtractFirmware returns the firmware behind the header after checking
// its length and crc32.
func (f *FlashImage) ExtractFirmware(order binary.ByteOrder) ([]byte, error) {
	user := f.layout.User
	if user.Length < firmwareHeaderSize {
		return nil, fmt.Errorf("%w: %v has no room for a header", ErrImageTooLarge, user)
	}
	hdr := f.mem.ToBinary(uint32(user.Origin), firmwareHeaderSize, 0xFF)
	size := uint64(order.Uint32(hdr[0:]))
	if size > user.Length-firmwareHeaderSize {
		return nil, fmt.Errorf("%w: firmware length 0x%x", ErrImageTooLarge, size)
	}
	data := f.mem.ToBinary(uint32(user.Origin)+firmwareHeaderSize, uint32(size), 0xFF)
	if crc32.ChecksumIEEE(data) != order.Uint32(hdr[4:]) {
		return nil, ErrInvalidCRC
	}
	return data, nil
}
