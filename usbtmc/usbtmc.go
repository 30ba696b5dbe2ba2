/*Package usbtmc implements datagram encoding and decoding for USB Test and
Measurement Class devices.  This is a 'minimum viable product' for the bulk
transfer mode used by bench instruments that speak SCPI over USB, such as
the Keysight U2751A switch matrix.

It does not, for example, include features to support multi-packet
messaging, and thus assumes your data fits in the remote's buffer.

A Device satisfies io.ReadWriteCloser, so it can back a comm.Pool and the
scpi layer exactly the same way a TCP socket does.
*/
package usbtmc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/google/gousb"
)

const (
	reserved = 0x00

	// one bulk transfer; instruments in this class answer
	// SCPI queries in well under this
	bufSize = 1500
)

// bTagGen is a concurrent-safe bTag generator
type bTagGen struct {
	sync.Mutex

	value byte
}

func (b *bTagGen) next() byte {
	b.Lock()
	defer b.Unlock()
	b.value++
	if b.value == 0 {
		// bTag must be nonzero per the standard
		b.value = 1
	}
	return b.value
}

// invbTag computes the bitwise inversion of a bTag, per USBTMC standard table 1 offset 2
func invbTag(b byte) byte {
	return b ^ 0xff
}

// encBulkOutHeader creates the header defined in USBTMC standard, Table 3
func encBulkOutHeader(tag byte, datalen int) [12]byte {
	out := [12]byte{}
	/* data map by offset:
	0 MsgID, here hardcoded to 1; DEV_DEP_MSG_OUT
	1 bTag, a single byte 1 <= x <= 255, unique and incrementing with each message
	2 bTagInverse, the bitwise inverse of bTag
	3 reserved
	4-7 transferSize, LSB first, exclusive of header and alignment
	8 bitmap, bit 0 EOM (1 == last message in the stream)
	9-11 reserved
	*/
	out[0] = 0x01
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(datalen))
	out[8] = 0x01
	out[9] = reserved
	out[10] = reserved
	out[11] = reserved
	return out
}

// encBulkInHeader creates the header defined in USBTMC standard, Table 4.
// if terminator is nil, puts 0x00 in the header and clears the enable bit
func encBulkInHeader(tag byte, bufsize int, terminator *byte) [12]byte {
	out := [12]byte{}
	/* differs from BulkOut by bytes 8~11
	8 bitmap, bit 1 term char enabled
	9 terminator byte
	10~11 reserved
	*/
	out[0] = 0x02 // REQUEST_DEV_DEP_MSG_IN
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(bufsize))
	if terminator != nil {
		out[8] = 0x02
		out[9] = *terminator
	} else {
		out[8] = 0x00
		out[9] = 0x00
	}
	out[10] = reserved
	out[11] = reserved
	return out
}

// Device is a USBTMC instrument exposed as an io.ReadWriteCloser
type Device struct {
	tagger *bTagGen
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	device *gousb.Device
	iface  *gousb.Interface
	closer func()

	// leftover bytes from the last bulk-in transfer not yet consumed by Read
	residue []byte
}

// NewDevice opens a USB device by its vendor and product ID and claims
// its default interface
func NewDevice(vid, pid uint16) (*Device, error) {
	out := &Device{tagger: &bTagGen{}}
	var err error
	ctx := gousb.NewContext()
	out.device, err = ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return out, err
	}
	if out.device == nil {
		return out, fmt.Errorf("usbtmc: no device with VID:PID %04x:%04x", vid, pid)
	}
	err = out.device.SetAutoDetach(true)
	if err != nil {
		return out, err
	}
	out.iface, out.closer, err = out.device.DefaultInterface()
	if err != nil {
		return out, err
	}
	out.in, err = out.iface.InEndpoint(2)
	if err != nil {
		return out, err
	}
	out.out, err = out.iface.OutEndpoint(2)
	if err != nil {
		return out, err
	}
	return out, nil
}

// Write sends b to the instrument as a single DEV_DEP_MSG_OUT transfer,
// padded to 4-byte alignment per the standard
func (d *Device) Write(b []byte) (int, error) {
	const alignment = 4
	hdr := encBulkOutHeader(d.tagger.next(), len(b))
	buf := append(hdr[:], b...)
	if residual := len(buf) % alignment; residual > 0 {
		buf = append(buf, make([]byte, alignment-residual)...)
	}
	_, err := d.out.Write(buf)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Read requests a DEV_DEP_MSG_IN transfer and copies the payload into p.
// Residue from a transfer larger than p is returned on subsequent calls.
func (d *Device) Read(p []byte) (int, error) {
	if len(d.residue) > 0 {
		n := copy(p, d.residue)
		d.residue = d.residue[n:]
		return n, nil
	}
	term := byte('\n')
	hdr := encBulkInHeader(d.tagger.next(), bufSize, &term)
	n, err := d.out.Write(hdr[:])
	if err != nil {
		return 0, err
	}
	if n != 12 {
		return 0, fmt.Errorf("usbtmc: wrote %d bytes, not the full 12 required to transmit read request", n)
	}
	buf := make([]byte, bufSize)
	n, err = d.in.Read(buf)
	if err != nil {
		return 0, err
	}
	if n < 12 {
		return 0, fmt.Errorf("usbtmc: only received %d bytes, need at least 12 to form header", n)
	}
	// first 12 bytes are the header; 4-7 hold the payload size which may be
	// smaller than the transfer due to alignment padding
	payloadLen := int(binary.LittleEndian.Uint32(buf[4:8]))
	data := buf[12:n]
	if payloadLen < len(data) {
		data = data[:payloadLen]
	}
	nc := copy(p, data)
	if nc < len(data) {
		d.residue = append(d.residue[:0], data[nc:]...)
	}
	return nc, nil
}

// Close releases the interface and closes the device
func (d *Device) Close() error {
	if d.closer != nil {
		d.closer()
	}
	if d.device != nil {
		return d.device.Close()
	}
	return nil
}

var _ io.ReadWriteCloser = (*Device)(nil)
