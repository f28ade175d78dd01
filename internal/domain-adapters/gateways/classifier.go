package gateways

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// Magic numbers for native executable formats.
// Covers ELF, Mach-O (thin and fat, both endiannesses), and PE.
var nativeMagics = [][]byte{
	{0x7F, 'E', 'L', 'F'},
	{0xFE, 0xED, 0xFA, 0xCE}, // Mach-O 32-bit
	{0xFE, 0xED, 0xFA, 0xCF}, // Mach-O 64-bit
	{0xCE, 0xFA, 0xED, 0xFE}, // Mach-O 32-bit, little-endian
	{0xCF, 0xFA, 0xED, 0xFE}, // Mach-O 64-bit, little-endian
	{0xCA, 0xFE, 0xBA, 0xBE}, // Mach-O fat binary
	{'M', 'Z'},               // PE/DOS
}

// IsNativeBinary reports whether a file carries a compiled executable payload,
// detected by magic number rather than by file name.
func IsNativeBinary(path string) bool {
	//nolint:gosec // G304: path comes from descriptor inputs or search roots
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	buf = buf[:n]

	for _, magic := range nativeMagics {
		if len(buf) >= len(magic) && bytes.Equal(buf[:len(magic)], magic) {
			return true
		}
	}
	return false
}
