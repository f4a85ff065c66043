package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Tahakcygt/HSS-ka/internal/httputil"
	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
	"github.com/Tahakcygt/HSS-ka/internal/serialmux"
)

// SerialDeviceInfo describes a serial port found on this machine.
type SerialDeviceInfo struct {
	PortPath     string `json:"port_path"`
	FriendlyName string `json:"friendly_name"`
	InUse        bool   `json:"in_use"`
	LastSeen     int64  `json:"last_seen"`
}

var defaultListPorts = serialmux.ListPorts

// handleSerialDevices handles GET /serial/devices - list serial ports a
// flight controller could be attached to.
func (s *Server) handleSerialDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	ports, err := s.listPorts()
	if err != nil {
		monitoring.Logf("Error enumerating serial ports: %v", err)
		httputil.InternalServerError(w, "failed to enumerate serial ports")
		return
	}

	devices := make([]SerialDeviceInfo, 0, len(ports))
	now := time.Now().Unix()
	for _, portPath := range ports {
		devices = append(devices, SerialDeviceInfo{
			PortPath:     portPath,
			FriendlyName: getFriendlyName(portPath),
			InUse:        s.serial.Enabled && portPath == s.serial.Port,
			LastSeen:     now,
		})
	}
	httputil.WriteJSONOK(w, devices)
}

// getFriendlyName generates a user-friendly name for a serial port
func getFriendlyName(portPath string) string {
	parts := strings.Split(portPath, "/")
	deviceName := parts[len(parts)-1]
	if deviceName == "" {
		return portPath
	}

	switch {
	case strings.HasPrefix(deviceName, "ttyUSB"):
		return fmt.Sprintf("USB Serial Adapter (%s)", deviceName)
	case strings.HasPrefix(deviceName, "ttyACM"):
		return fmt.Sprintf("Flight Controller USB (%s)", deviceName)
	case strings.HasPrefix(deviceName, "ttyAMA"), strings.HasPrefix(deviceName, "ttyS0"):
		return fmt.Sprintf("Companion UART (%s)", deviceName)
	case strings.HasPrefix(deviceName, "ttyTHS"):
		return fmt.Sprintf("Jetson UART (%s)", deviceName)
	default:
		return deviceName
	}
}
