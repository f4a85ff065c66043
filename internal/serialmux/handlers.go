package serialmux

import (
	"context"

	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
)

// LineHandler answers one inbound line. When ok is false nothing is written
// back.
type LineHandler func(line string) (reply string, ok bool)

// ServeLines answers each line of the subscription id on s with h, in
// arrival order, until ctx is done or the subscription is closed. The
// subscription is removed on return.
//
// Subscribe before starting Monitor: lines published before a subscription
// exists are not delivered to it.
func ServeLines(ctx context.Context, s SerialMuxInterface, id string, lines <-chan string, h LineHandler) error {
	defer s.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			reply, ok := h(line)
			if !ok {
				continue
			}
			if err := s.SendLine(reply); err != nil {
				monitoring.Logf("serialmux: failed to send reply: %v", err)
			}
		}
	}
}
