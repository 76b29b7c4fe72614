package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the device UART.
const DefaultBaudRate = 115200

// OpenSerial opens a serial device like /dev/ttyUSB0 or COM3. A read
// timeout keeps Read from blocking forever when the device goes quiet.
func OpenSerial(devicePath string, baudRate int) (Stream, error) {
	if devicePath == "" {
		return nil, fmt.Errorf("transport: no serial device path provided")
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(devicePath, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", devicePath, err)
	}
	if err := port.SetReadTimeout(1 * time.Second); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: set read timeout: %w", err)
	}
	return port, nil
}
