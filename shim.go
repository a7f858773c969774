package devices

// SPI and GPIO narrow the periph.io connection types down to the
// handful of operations the radio driver needs, so the driver can be
// tested against an in-memory fake of these interfaces instead of real
// periph.io hardware handles.

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

type SPI interface {
	Tx(w, r []byte) error
	Speed(hz int64) error
	Configure(mode int, bits int) error
	Close() error
}

const (
	SPIMode0 = 0x0 // CPOL=0, CPHA=0
	SPIMode1 = 0x1 // CPOL=0, CPHA=1
	SPIMode2 = 0x2 // CPOL=1, CPHA=0
	SPIMode3 = 0x3 // CPOL=1, CPHA=1
)

type GPIO interface {
	In(edge int) error
	Read() int
	WaitForEdge(timeout time.Duration) bool
	Out(level int)
	Number() int
}

const (
	GpioLow        = 0
	GpioHigh       = 1
	GpioNoEdge     = 0
	GpioRisingEdge = 1
)

//===== SPI shim for periph.io

// NewSPI wraps an already opened periph.io SPI port (e.g. the result of
// spireg.Open("SPI0.0")) to satisfy the SPI interface above; the port is
// connected lazily on the first Tx.
func NewSPI(port spi.PortCloser) SPI {
	return &spiDev{port: port}
}

type spiDev struct {
	port spi.PortCloser
	conn spi.Conn
	hz   int64
	mode int
	bits int
}

func (s *spiDev) connect() error {
	if s.conn != nil {
		return nil
	}
	hz := s.hz
	if hz == 0 {
		hz = 4000000
	}
	bits := s.bits
	if bits == 0 {
		bits = 8
	}
	conn, err := s.port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode(s.mode), bits)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *spiDev) Tx(w, r []byte) error {
	if err := s.connect(); err != nil {
		return err
	}
	return s.conn.Tx(w, r)
}

func (s *spiDev) Speed(hz int64) error {
	if s.conn != nil {
		return errors.New("SPI: cannot change speed after connecting")
	}
	s.hz = hz
	return nil
}

func (s *spiDev) Configure(mode int, bits int) error {
	if s.conn != nil {
		return errors.New("SPI: cannot reconfigure after connecting")
	}
	s.mode = mode
	s.bits = bits
	return nil
}

func (s *spiDev) Close() error {
	return s.port.Close()
}

//===== GPIO shim for periph.io

// NewGPIO wraps a periph.io gpio.PinIO to satisfy the GPIO interface
// above, including edge-triggered interrupt delivery via WaitForEdge.
func NewGPIO(pin gpio.PinIO) GPIO {
	return &gpioPin{pin: pin}
}

type gpioPin struct {
	pin gpio.PinIO
}

func (g *gpioPin) In(edge int) error {
	e := gpio.NoEdge
	if edge != GpioNoEdge {
		e = gpio.RisingEdge
	}
	return g.pin.In(gpio.PullNoChange, e)
}

func (g *gpioPin) Read() int {
	if g.pin.Read() == gpio.High {
		return GpioHigh
	}
	return GpioLow
}

func (g *gpioPin) WaitForEdge(timeout time.Duration) bool {
	return g.pin.WaitForEdge(timeout)
}

func (g *gpioPin) Out(level int) {
	l := gpio.Low
	if level != GpioLow {
		l = gpio.High
	}
	g.pin.Out(l)
}

func (g *gpioPin) Number() int {
	return g.pin.Number()
}
