// Package serialmux multiplexes the companion-computer serial link.
//
// A single serial port carries newline-delimited JSON in both directions.
// Any number of subscribers (the planning loop, the admin tail view) receive
// every inbound line; replies are written back through SendLine, which
// serialises concurrent writers.
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"

	"tailscale.com/tsweb"

	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// ErrClosed is returned by SendLine after Close.
var ErrClosed = fmt.Errorf("serial mux closed")

// SubscriberBuffer is the number of lines queued per subscriber before new
// lines are dropped for that subscriber.
const SubscriberBuffer = 64

// MaxLineBytes bounds a single inbound line. Zone lists make planning
// requests longer than bufio's default token size.
const MaxLineBytes = 1 << 20

//go:embed templates/*
var adminTemplateFS embed.FS

var sendLineTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-line.html.tmpl"))

// SerialMux is a generic serial port multiplexer that allows multiple clients to
// subscribe to lines from a single serial port.
type SerialMux[T SerialPorter] struct {
	port T

	subscriberMu sync.Mutex
	subscribers  map[string]chan string
	writeMu      sync.Mutex
	closingMu    sync.Mutex
	closing      bool

	dropped int64 // guarded by subscriberMu
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving lines from the serial
	// port. The ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendLine writes one line to the serial port.
	SendLine(string) error
	// Monitor reads lines from the serial port and fans them out to
	// subscribers until ctx is done or the port reaches EOF.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error
	// Dropped returns the number of lines dropped because a subscriber's
	// buffer was full.
	Dropped() int64

	// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP
	// mux served at /debug/. These routes are accessible only over
	// localhost/via Tailscale and are not publicly accessible.
	AttachAdminRoutes(*http.ServeMux)
}

// NewSerialMux creates a SerialMux reading from and writing to port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, SubscriberBuffer)

	s.closingMu.Lock()
	closing := s.closing
	s.closingMu.Unlock()
	if closing {
		close(ch)
		return id, ch
	}

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// SendLine writes line to the serial port, appending a newline if needed.
func (s *SerialMux[T]) SendLine(line string) error {
	s.closingMu.Lock()
	closing := s.closing
	s.closingMu.Unlock()
	if closing {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	n, err := s.port.Write([]byte(line))
	if err != nil {
		return err
	}
	if n != len(line) {
		return ErrWriteFailed
	}
	return nil
}

// Dropped returns the number of lines dropped because a subscriber's buffer
// was full.
func (s *SerialMux[T]) Dropped() int64 {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	return s.dropped
}

// Monitor reads lines from the serial port and sends them to subscribers.
// Blank lines are skipped.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking Scan runs in its own goroutine so the loop below can
	// still observe cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			s.publish(line)
		}
	}
}

func (s *SerialMux[T]) publish(line string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- line:
		default:
			// A full subscriber must not stall the link for everyone else.
			s.dropped++
			monitoring.Logf("serialmux: subscriber %s full, dropped line", id)
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	if s.closing {
		s.closingMu.Unlock()
		return nil
	}
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.subscriberMu.Unlock()
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("send-line", "send a line to the flight controller link", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := sendLineTemplate.Execute(buf, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("send-line-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		line := strings.TrimSpace(r.FormValue("line"))
		if line == "" {
			http.Error(w, "Missing line", http.StatusBadRequest)
			return
		}
		if err := s.SendLine(line); err != nil {
			http.Error(w, "Failed to write line", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "Wrote line %q to serial port", line)
	})

	// Server-Sent Events stream of inbound lines.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		serveTail(s, w, r)
	})

	debug.HandleSilentFunc("tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")
		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}

func serveTail(s SerialMuxInterface, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.Subscribe()
	defer s.Unsubscribe(id)

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case payload, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
