package serialmux

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		require.True(t, ok, "channel closed")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestSerialMux_FanOut(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	id1, ch1 := mux.Subscribe()
	_, ch2 := mux.Subscribe()
	assert.NotEqual(t, "", id1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	port.AddReadData([]byte("{\"a\":1}\r\n\n   \n{\"b\":2}\n"))

	assert.Equal(t, `{"a":1}`, recv(t, ch1))
	assert.Equal(t, `{"b":2}`, recv(t, ch1))
	assert.Equal(t, `{"a":1}`, recv(t, ch2))
	assert.Equal(t, `{"b":2}`, recv(t, ch2))

	mux.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok, "unsubscribed channel is closed")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not stop on cancel")
	}
	require.NoError(t, mux.Close())
}

func TestSerialMux_MonitorEOF(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = false
	port.AddReadData([]byte("line one\n"))
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	require.NoError(t, mux.Monitor(context.Background()))
	assert.Equal(t, "line one", recv(t, ch))
}

func TestSerialMux_MonitorReadError(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	boom := errors.New("device unplugged")

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(context.Background()) }()
	port.FailNextRead(boom)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return the read error")
	}
}

func TestSerialMux_DropsWhenSubscriberFull(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = false
	port.AddReadData([]byte(strings.Repeat("x\n", SubscriberBuffer+5)))
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	require.NoError(t, mux.Monitor(context.Background()))
	assert.Len(t, ch, SubscriberBuffer)
	assert.Equal(t, int64(5), mux.Dropped())
}

func TestSerialMux_SendLine(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.SendLine(`{"mode":"AVOID"}`))
	require.NoError(t, mux.SendLine("already terminated\n"))
	assert.Equal(t, "{\"mode\":\"AVOID\"}\nalready terminated\n", string(port.GetWrittenData()))

	port.WriteError = errors.New("write failed")
	assert.Error(t, mux.SendLine("x"))

	port.ShortWrite = true
	assert.ErrorIs(t, mux.SendLine("x"), ErrWriteFailed)
}

func TestSerialMux_Close(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	require.NoError(t, mux.Close())
	assert.True(t, port.Closed)
	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, mux.SendLine("late"), ErrClosed)
	_, late := mux.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing after close yields a closed channel")
	assert.NoError(t, mux.Close(), "second close is a no-op")
}

func echoHandler(line string) (string, bool) {
	if line == "skip" {
		return "", false
	}
	return "echo " + line, true
}

func TestServeLines(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	t.Cleanup(func() { mux.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, lines := mux.Subscribe()
	go mux.Monitor(ctx)
	served := make(chan error, 1)
	go func() { served <- ServeLines(ctx, mux, id, lines, echoHandler) }()

	port.AddReadData([]byte("skip\nping\n"))
	require.Eventually(t, func() bool {
		return strings.Contains(string(port.GetWrittenData()), "echo ping\n")
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, string(port.GetWrittenData()), "skip")

	cancel()
	select {
	case err := <-served:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeLines did not stop on cancel")
	}
}

func TestServeLines_AnswersLinesReadBeforeServing(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = false
	port.AddReadData([]byte("early\n"))
	mux := NewSerialMux(port)

	id, lines := mux.Subscribe()
	// Monitor reads to EOF before anything answers the subscription.
	require.NoError(t, mux.Monitor(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- ServeLines(ctx, mux, id, lines, echoHandler) }()

	require.Eventually(t, func() bool {
		return strings.Contains(string(port.GetWrittenData()), "echo early\n")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, mux.Close())
	select {
	case err := <-served:
		assert.NoError(t, err, "a closed subscription ends serving")
	case <-time.After(2 * time.Second):
		t.Fatal("ServeLines did not stop when the mux closed")
	}
}

func TestClassifyPayload(t *testing.T) {
	assert.Equal(t, EventTypeLocalRequest, ClassifyPayload(`{"drone_pos":[0,0],"target_pos":[1,1]}`))
	assert.Equal(t, EventTypeGeoRequest, ClassifyPayload(`{"home":{"lat":1,"lon":1,"alt":0}}`))
	assert.Equal(t, EventTypeUnknown, ClassifyPayload(`HEARTBEAT 12`))
}

func TestPortOptions(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, opts)
	assert.Equal(t, "57600 8N1", PortOptions{}.String())

	opts, err = PortOptions{BaudRate: 115200}.ParseFraming("7e2")
	require.NoError(t, err)
	assert.Equal(t, "115200 7E2", opts.String())

	mode, err := opts.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)

	for _, bad := range []string{"8N", "9N1", "8X1", "8N3"} {
		_, err := PortOptions{}.ParseFraming(bad)
		assert.Error(t, err, bad)
	}
	_, err = PortOptions{DataBits: 4}.SerialMode()
	assert.Error(t, err)
}

func TestDisabledSerialMux(t *testing.T) {
	d := NewDisabledSerialMux()
	id, ch := d.Subscribe()
	assert.NoError(t, d.SendLine("ignored"))
	assert.Zero(t, d.Dropped())

	d.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok)

	_, ch = d.Subscribe()
	require.NoError(t, d.Close())
	_, ok = <-ch
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Monitor(ctx), context.Canceled)

	mux := http.NewServeMux()
	d.AttachAdminRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/serial-disabled", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMockSerialMux(t *testing.T) {
	mux := NewMockSerialMux([][]byte{[]byte(`{"drone_pos":[0,0],"target_pos":[1,1]}`)}, 5*time.Millisecond)
	_, ch := mux.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	assert.Equal(t, EventTypeLocalRequest, ClassifyPayload(recv(t, ch)))
	assert.NoError(t, mux.SendLine(`{"mode":"INTERCEPT"}`))
	require.NoError(t, mux.Close())
}

func TestAttachAdminRoutes(t *testing.T) {
	mux := http.NewServeMux()
	NewSerialMux(NewTestableSerialPort()).AttachAdminRoutes(mux)

	// Access control may answer 403, but the routes must be registered.
	for _, path := range []string{"/debug/send-line", "/debug/send-line-api", "/debug/tail", "/debug/tail.js"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, path, nil))
		assert.NotEqual(t, http.StatusNotFound, rec.Code, path)
	}
}
