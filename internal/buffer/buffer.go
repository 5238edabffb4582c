package buffer

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a splice addresses bytes outside the buffer.
var ErrOutOfRange = errors.New("offset out of range")

// Buffer is the authoritative byte sequence of the payload under edit.
type Buffer struct {
	data []byte
}

func New() *Buffer {
	return &Buffer{
		data: make([]byte, 0),
	}
}

func FromBytes(data []byte) *Buffer {
	b := New()
	b.Reset(data)
	return b
}

// Reset replaces the whole content with a copy of data.
func (b *Buffer) Reset(data []byte) {
	b.data = make([]byte, len(data))
	copy(b.data, data)
}

func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes returns a snapshot of the content. Mutating it does not affect the buffer.
func (b *Buffer) Bytes() []byte {
	result := make([]byte, len(b.data))
	copy(result, b.data)
	return result
}

func (b *Buffer) GetByte(offset int) (byte, bool) {
	if offset < 0 || offset >= len(b.data) {
		return 0, false
	}
	return b.data[offset], true
}

// Slice returns a copy of the bytes in [from, to).
func (b *Buffer) Slice(from, to int) ([]byte, error) {
	if from < 0 || to < from || to > len(b.data) {
		return nil, fmt.Errorf("slice [%d, %d) of %d bytes: %w", from, to, len(b.data), ErrOutOfRange)
	}
	result := make([]byte, to-from)
	copy(result, b.data[from:to])
	return result, nil
}

// Insert splices data in at offset. Every byte at or after offset shifts right by len(data).
func (b *Buffer) Insert(offset int, data []byte) error {
	if offset < 0 || offset > len(b.data) {
		return fmt.Errorf("insert at %d of %d bytes: %w", offset, len(b.data), ErrOutOfRange)
	}
	if len(data) == 0 {
		return nil
	}

	newData := make([]byte, len(b.data)+len(data))
	copy(newData, b.data[:offset])
	copy(newData[offset:], data)
	copy(newData[offset+len(data):], b.data[offset:])
	b.data = newData
	return nil
}

// Remove deletes count bytes starting at offset and returns the removed bytes.
func (b *Buffer) Remove(offset, count int) ([]byte, error) {
	if offset < 0 || count < 0 || offset+count > len(b.data) {
		return nil, fmt.Errorf("remove %d bytes at %d of %d bytes: %w", count, offset, len(b.data), ErrOutOfRange)
	}
	if count == 0 {
		return []byte{}, nil
	}

	removed := make([]byte, count)
	copy(removed, b.data[offset:offset+count])

	newData := make([]byte, len(b.data)-count)
	copy(newData, b.data[:offset])
	copy(newData[offset:], b.data[offset+count:])
	b.data = newData
	return removed, nil
}
