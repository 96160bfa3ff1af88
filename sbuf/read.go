package sbuf

import "github.com/forensix/scancore/internal/buf"

// checkWidth reports whether [i, i+width) lies within the buffer, via the
// same overflow-safe bounds primitive every other slicing operation on
// Buf goes through.
func (b *Buf) checkWidth(i, width int) error {
	if i < 0 || !buf.Has(b.data, i, width) {
		return ErrRange
	}
	return nil
}

// GetUint8 reads an unsigned byte at offset i.
func (b *Buf) GetUint8(i int) (uint8, error) {
	if err := b.checkWidth(i, 1); err != nil {
		return 0, err
	}
	return buf.U8(b.data[i:]), nil
}

// GetInt8 reads a signed byte at offset i.
func (b *Buf) GetInt8(i int) (int8, error) {
	if err := b.checkWidth(i, 1); err != nil {
		return 0, err
	}
	return buf.I8(b.data[i:]), nil
}

// GetUint16 reads an unsigned 16-bit integer at offset i in the given byte order.
func (b *Buf) GetUint16(i int, order ByteOrder) (uint16, error) {
	if err := b.checkWidth(i, 2); err != nil {
		return 0, err
	}
	if order == BigEndian {
		return buf.U16BE(b.data[i:]), nil
	}
	return buf.U16LE(b.data[i:]), nil
}

// GetInt16 reads a signed 16-bit integer at offset i in the given byte order.
func (b *Buf) GetInt16(i int, order ByteOrder) (int16, error) {
	if err := b.checkWidth(i, 2); err != nil {
		return 0, err
	}
	if order == BigEndian {
		return buf.I16BE(b.data[i:]), nil
	}
	return buf.I16LE(b.data[i:]), nil
}

// GetUint32 reads an unsigned 32-bit integer at offset i in the given byte order.
func (b *Buf) GetUint32(i int, order ByteOrder) (uint32, error) {
	if err := b.checkWidth(i, 4); err != nil {
		return 0, err
	}
	if order == BigEndian {
		return buf.U32BE(b.data[i:]), nil
	}
	return buf.U32LE(b.data[i:]), nil
}

// GetInt32 reads a signed 32-bit integer at offset i in the given byte order.
func (b *Buf) GetInt32(i int, order ByteOrder) (int32, error) {
	if err := b.checkWidth(i, 4); err != nil {
		return 0, err
	}
	if order == BigEndian {
		return buf.I32BE(b.data[i:]), nil
	}
	return buf.I32LE(b.data[i:]), nil
}

// GetUint64 reads an unsigned 64-bit integer at offset i in the given byte order.
func (b *Buf) GetUint64(i int, order ByteOrder) (uint64, error) {
	if err := b.checkWidth(i, 8); err != nil {
		return 0, err
	}
	if order == BigEndian {
		return buf.U64BE(b.data[i:]), nil
	}
	return buf.U64LE(b.data[i:]), nil
}

// GetInt64 reads a signed 64-bit integer at offset i in the given byte order.
func (b *Buf) GetInt64(i int, order ByteOrder) (int64, error) {
	if err := b.checkWidth(i, 8); err != nil {
		return 0, err
	}
	if order == BigEndian {
		return buf.I64BE(b.data[i:]), nil
	}
	return buf.I64LE(b.data[i:]), nil
}
