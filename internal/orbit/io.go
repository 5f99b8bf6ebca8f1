package orbit

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/bits-and-blooms/bitset"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// magic is written first so Import can sanity-check the file before
// trusting the rest of the header, mirroring the teacher's wav.go
// practice of stamping a fixed magic/identifier at the start of a raw
// binary file.
const magic uint32 = 0x4d454c56 // "MELV"

// Export serializes the orbit to path as a fixed-width little-endian
// record (magic, fp, vel, T, Tx, Ty, maxImageDT, done bitset length and
// bytes). Nothing in this module calls Export or Import, and the
// EXPORT_ORBIT and TRY_IMPORT_ORBIT environment variables are not read.
func (o *ClosedOrbit) Export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doneBytes, err := o.Done.MarshalBinary()
	if err != nil {
		return err
	}

	fields := []any{
		magic,
		o.FP.Xf(), o.FP.Yf(),
		o.Vel.Xf(), o.Vel.Yf(),
		int64(o.T), int64(o.Tx), int64(o.Ty), int64(o.MaxImageDT),
		int64(len(doneBytes)),
	}
	for _, v := range fields {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	_, err = f.Write(doneBytes)
	return err
}

// Import loads an orbit previously written by Export. It recomputes the
// segment list locally rather than serializing it, since segments are
// cheap to derive from (fp, vel) and keeping the on-disk format small
// avoids drift if the segment-building algorithm changes.
func Import(path string, lens Lens) (*ClosedOrbit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		gotMagic                      uint32
		fpX, fpY, velX, velY          float64
		t, tx, ty, maxImageDT, doneLn int64
	)
	for _, v := range []any{&gotMagic, &fpX, &fpY, &velX, &velY, &t, &tx, &ty, &maxImageDT, &doneLn} {
		if err := binary.Read(f, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	if gotMagic != magic {
		return nil, io.ErrUnexpectedEOF
	}

	doneBytes := make([]byte, doneLn)
	if _, err := io.ReadFull(f, doneBytes); err != nil {
		return nil, err
	}

	o := &ClosedOrbit{
		FP:         vec2d.New(fpX, fpY),
		Vel:        vec2d.New(velX, velY),
		T:          int(t),
		Tx:         int(tx),
		Ty:         int(ty),
		MaxImageDT: int(maxImageDT),
		Done:       bitset.New(uint(t)),
	}
	if err := o.Done.UnmarshalBinary(doneBytes); err != nil {
		return nil, err
	}
	o.computeSegments()
	return o, nil
}
