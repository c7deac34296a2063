// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"spectrum/internal/audio"
	applog "spectrum/internal/log"

	"github.com/google/uuid"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 16 * time.Millisecond

const headerSize = 4 + 8 + 2

// MaxAmplitudes is the most bins a packet can carry within the 65507-byte UDP
// payload limit.
const MaxAmplitudes = (65507 - headerSize) / 4

var ErrShortPacket = errors.New("udp: packet too short")

/*
Packet layout, big-endian:

	| Sequence  | Timestamp | Count  | Amplitudes  |
	| uint32    | int64     | uint16 | N * float32 |
	| 4 bytes   | 8 bytes   | 2      | N * 4       |

Timestamp is nanoseconds since the Unix epoch. Amplitudes are the spectrum bins
in ascending frequency order, each in [0,1].
*/
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Amplitudes []float32
}

// AppendPacket encodes p onto buf.
func AppendPacket(buf *bytes.Buffer, p Packet) error {
	if len(p.Amplitudes) > MaxAmplitudes {
		return fmt.Errorf("udp: %d amplitudes exceed the packet limit", len(p.Amplitudes))
	}
	err := binary.Write(buf, binary.BigEndian, p.Sequence)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, p.Timestamp)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(p.Amplitudes)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, p.Amplitudes)
	}
	return err
}

// ParsePacket decodes a datagram produced by AppendPacket.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, ErrShortPacket
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(data[0:]),
		Timestamp: int64(binary.BigEndian.Uint64(data[4:])),
	}
	n := int(binary.BigEndian.Uint16(data[12:]))
	if len(data) < headerSize+4*n {
		return Packet{}, ErrShortPacket
	}
	p.Amplitudes = make([]float32, n)
	for i := range p.Amplitudes {
		p.Amplitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(data[headerSize+4*i:]))
	}
	return p, nil
}

// Publisher keeps the most recent spectrum seen on the engine and sends it over
// UDP at a fixed interval from its own goroutine.
type Publisher struct {
	sender   PacketSender
	interval time.Duration
	session  string
	now      func() time.Time

	mu      sync.Mutex
	latest  []float32 // amplitudes of the last SpectrumChanged
	have    bool
	ticker  *time.Ticker
	done    chan struct{}
	wg      sync.WaitGroup
	packet  *bytes.Buffer // owned by the publisher goroutine
	scratch []float32     // owned by the publisher goroutine

	sequence uint32
}

// NewPublisher creates a Publisher writing to sender.
func NewPublisher(interval time.Duration, sender PacketSender) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if interval <= 0 {
		applog.Warnf("UDPPublisher: invalid interval %s, defaulting to %s", interval, DefaultInterval)
		interval = DefaultInterval
	}
	return &Publisher{
		sender:   sender,
		interval: interval,
		session:  uuid.NewString(),
		now:      time.Now,
		packet:   new(bytes.Buffer),
	}, nil
}

// HandleEvent implements audio.Listener. It copies the amplitudes of every
// SpectrumChanged event and ignores everything else. An empty spectrum, sent
// when the engine starts or resets, pauses publishing until the next one.
func (p *Publisher) HandleEvent(ev audio.Event) {
	s, ok := ev.(audio.SpectrumChanged)
	if !ok {
		return
	}
	p.mu.Lock()
	p.latest = p.latest[:0]
	for _, e := range s.Spectrum {
		p.latest = append(p.latest, float32(e.Amplitude))
	}
	p.have = len(p.latest) > 0
	p.mu.Unlock()
}

// Start launches the publishing goroutine. Calling it while running does nothing.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		applog.Warnf("UDPPublisher: start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	ticker, done := p.ticker, p.done

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: started (session %s, interval %s)", p.session, p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop halts the goroutine and waits for it. It is safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.ticker.Stop()
	p.ticker = nil
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: stopped after %d packets", p.sequence)
	return nil
}

// Close stops publishing and closes the sender.
func (p *Publisher) Close() error {
	p.Stop()
	return p.sender.Close()
}

// publish sends the latest spectrum, if one has arrived.
func (p *Publisher) publish() {
	p.mu.Lock()
	if !p.have {
		p.mu.Unlock()
		return
	}
	p.scratch = append(p.scratch[:0], p.latest...)
	p.mu.Unlock()

	p.sequence++
	p.packet.Reset()
	pkt := Packet{Sequence: p.sequence, Timestamp: p.now().UnixNano(), Amplitudes: p.scratch}
	if err := AppendPacket(p.packet, pkt); err != nil {
		applog.Errorf("UDPPublisher: packing packet %d: %v", p.sequence, err)
		return
	}
	if err := p.sender.Send(p.packet.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: sent packet %d (%d bytes)", p.sequence, p.packet.Len())
	}
}

var _ audio.Listener = (*Publisher)(nil)
