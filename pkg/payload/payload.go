// Package payload builds the synthetic object content written by every task.
package payload

import (
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Payload is a block repeated Blocks() times. It is shared read-only by all
// workers of a run.
type Payload struct {
	block  []byte
	blocks int
	crc    uint32

	once sync.Once
	full []byte
}

// Generate returns size bytes where byte i is i mod 128.
func Generate(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

// New builds the payload and its CRC32C up front so no checksum work happens
// inside a timed write.
func New(blockSize, blocks int) *Payload {
	p := &Payload{
		block:  Generate(blockSize),
		blocks: blocks,
	}
	for i := 0; i < blocks; i++ {
		p.crc = crc32.Update(p.crc, castagnoli, p.block)
	}
	return p
}

// Block is the repeated unit.
func (p *Payload) Block() []byte { return p.block }

// Blocks is the number of times Block is written.
func (p *Payload) Blocks() int { return p.blocks }

// Size is the total object size in bytes.
func (p *Payload) Size() int64 { return int64(len(p.block)) * int64(p.blocks) }

// Materialize builds the contiguous buffer returned by Bytes.
func (p *Payload) Materialize() {
	p.once.Do(func() {
		p.full = make([]byte, 0, p.Size())
		for i := 0; i < p.blocks; i++ {
			p.full = append(p.full, p.block...)
		}
	})
}

// Bytes returns the whole object as one buffer. Callers must not modify it.
func (p *Payload) Bytes() []byte {
	p.Materialize()
	return p.full
}

// WriteTo streams the payload block by block.
func (p *Payload) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for i := 0; i < p.blocks; i++ {
		n, err := w.Write(p.block)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// CRC32C of the whole object.
func (p *Payload) CRC32C() uint32 { return p.crc }

// CRC32CBase64 is the big-endian CRC32C, base64 encoded, as object stores
// expect it in checksum headers.
func (p *Payload) CRC32CBase64() string {
	return ChecksumBase64(p.crc)
}

// ChecksumBase64 encodes a CRC32C value the way S3 and GCS expect it.
func ChecksumBase64(crc uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], crc)
	return base64.StdEncoding.EncodeToString(b[:])
}

// Checksum computes the CRC32C of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}
