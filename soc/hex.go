package soc

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// ReadImage reads a firmware or bootloader image. Intel HEX files are
// flattened from their lowest address, anything else is taken as raw.
func ReadImage(name string) ([]byte, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if !isHexFile(name) {
		return b, nil
	}
	_, data, err := intelHexToBinary(bytes.NewReader(b))
	return data, err
}

func isHexFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".hex" || ext == ".ihex"
}

func intelHexToBinary(r io.Reader) (uint32, []byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return 0, nil, err
	}
	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return 0, nil, errors.New("hex: no data")
	}
	start := segments[0].Address
	var end uint32
	for _, segment := range segments {
		if segment.Address < start {
			start = segment.Address
		}
		if e := segment.Address + uint32(len(segment.Data)); e > end {
			end = e
		}
	}
	return start, mem.ToBinary(start, end-start, 0xFF), nil
}
