package ctl

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// consoleFrame mirrors internal/console.Frame without importing the
// daemon-side package, keeping melvinctl's wire dependency minimal.
type consoleFrame struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type consoleTaskView struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

// Tasks connects to the TCP console, reads the first TaskList frame it
// receives, and prints it.
func Tasks(consoleAddr string) error {
	conn, err := net.DialTimeout("tcp", consoleAddr, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	for {
		f, err := readConsoleFrame(conn)
		if err != nil {
			return err
		}
		if f.Kind != "TaskList" {
			continue
		}
		var tasks []consoleTaskView
		if err := json.Unmarshal(f.Payload, &tasks); err != nil {
			return err
		}
		printTaskList(tasks)
		return nil
	}
}

func printTaskList(tasks []consoleTaskView) {
	fmt.Println()
	fmt.Println(header("  TASK QUEUE"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	if len(tasks) == 0 {
		fmt.Println(colorize(dim, "  (empty)"))
	}
	for _, t := range tasks {
		fmt.Printf("  %-16s %s\n", t.Kind, t.At.Format(time.RFC3339))
	}
	fmt.Println()
}

const maxConsoleFrame = 1 << 20

func readConsoleFrame(r io.Reader) (consoleFrame, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return consoleFrame{}, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxConsoleFrame {
		return consoleFrame{}, fmt.Errorf("ctl: console frame too large (%d bytes)", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return consoleFrame{}, err
	}
	var f consoleFrame
	if err := json.Unmarshal(buf, &f); err != nil {
		return consoleFrame{}, err
	}
	return f, nil
}
