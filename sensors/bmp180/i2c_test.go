package bmp180

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

// txBus records periph transactions and answers reads from regs.
type txBus struct {
	regs map[byte]byte
	tx   [][]byte
	err  error
}

func (b *txBus) String() string                    { return "txbus" }
func (b *txBus) SetSpeed(f physic.Frequency) error { return nil }
func (b *txBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	if addr != uint16(Address) {
		return errors.New("wrong address")
	}
	b.tx = append(b.tx, append([]byte(nil), w...))
	if len(w) == 2 {
		b.regs[w[0]] = w[1]
	}
	for i := range r {
		r[i] = b.regs[w[0]+byte(i)]
	}
	return nil
}

func TestPeriphBus(t *testing.T) {
	tb := &txBus{regs: map[byte]byte{RegChipId: ChipId}}
	dev := New(PeriphBus{Bus: tb}, 0)
	if !dev.Connected() {
		t.Fatal("chip id not read through Tx")
	}
	if err := dev.writeRegister(RegControl, CmdTemp); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{RegChipId}, {RegControl, CmdTemp}}
	if len(tb.tx) != len(want) {
		t.Fatalf("transactions = %v", tb.tx)
	}
	for i := range want {
		if !bytes.Equal(tb.tx[i], want[i]) {
			t.Errorf("tx %d = %v, want %v", i, tb.tx[i], want[i])
		}
	}

	tb.err = errors.New("nack")
	var be *BusError
	if _, err := dev.readRegister(RegChipId); !errors.As(err, &be) || be.Op != "read" {
		t.Errorf("err = %v, want read BusError", err)
	}
}
