package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
)

// MockSerialPort implements SerialPorter for dev mode: reads come from a
// pipe fed by a generator goroutine and writes are logged.
type MockSerialPort struct {
	io.Reader
	closeOnce sync.Once
	done      chan struct{}
	pipe      *io.PipeReader
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	select {
	case <-m.done:
		return 0, errors.New("serial port closed")
	default:
	}
	monitoring.Logf("mock serial out: %s", bytes.TrimRight(p, "\n"))
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.pipe.Close()
	})
	return nil
}

// NewMockSerialMux creates a SerialMux whose port replays lines in a loop,
// one every interval. Used with -dev to exercise the planning loop without
// hardware.
func NewMockSerialMux(lines [][]byte, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()
	port := &MockSerialPort{Reader: r, pipe: r, done: make(chan struct{})}

	go func() {
		defer w.Close()
		if len(lines) == 0 {
			<-port.done
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-port.done:
				return
			case <-ticker.C:
				line := lines[i%len(lines)]
				if !bytes.HasSuffix(line, []byte("\n")) {
					line = append(append([]byte(nil), line...), '\n')
				}
				if _, err := w.Write(line); err != nil {
					return
				}
			}
		}
	}()

	return NewSerialMux(port)
}

// TestableSerialPort implements SerialPorter with configurable behaviour for
// tests: scripted reads, captured writes and injected errors.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write report one byte fewer than it was given
	ShortWrite bool

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a TestableSerialPort with blocking reads.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
		BlockReads:  true,
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	for t.BlockReads && !t.Closed && t.ReadBuffer.Len() == 0 && t.ReadError == nil {
		t.readCond.Wait()
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	if t.ReadBuffer.Len() == 0 {
		return 0, io.EOF
	}
	return t.ReadBuffer.Read(p)
}

func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	n, err := t.WriteBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	t.readCond.Broadcast()
	return t.CloseError
}

// AddReadData queues data for subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(data)
	t.readCond.Broadcast()
}

// FailNextRead makes the next Read return err, waking a blocked reader.
func (t *TestableSerialPort) FailNextRead(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadError = err
	t.readCond.Broadcast()
}

// GetWrittenData returns a copy of all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}
