// Package compression provides the interchangeable payload compressors
// the blob store applies before a value reaches its Backend.
package compression

import "fmt"

// Compressor compresses and decompresses backend payloads.
type Compressor interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Get resolves a compressor by name ("none" or "lz4").
func Get(name string) (Compressor, error) {
	switch name {
	case "", "none":
		return &NoCompressor{}, nil
	case "lz4":
		return &LZ4Compressor{}, nil
	default:
		return nil, fmt.Errorf("compression: unsupported compressor %q", name)
	}
}
