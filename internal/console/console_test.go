package console

import (
	"net"
	"testing"
	"time"
)

func TestServeAndPushTaskList(t *testing.T) {
	h := NewHub()
	h.SetTasks([]TaskView{{Kind: "TakeImage", At: time.Unix(1000, 0)}})

	ln, err := h.Serve("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	defer ln.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	f, err := readFrame(conn)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if f.Kind != KindTaskList {
		t.Fatalf("expected initial frame to be TaskList, got %s", f.Kind)
	}
}

func TestBroadcastReachesConnectedClients(t *testing.T) {
	h := NewHub()
	ln, err := h.Serve("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	defer ln.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := readFrame(conn); err != nil {
		t.Fatalf("readFrame (initial): %v", err)
	}

	h.Broadcast(Frame{Kind: KindPing})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	f, err := readFrame(conn)
	if err != nil {
		t.Fatalf("readFrame (broadcast): %v", err)
	}
	if f.Kind != KindPing {
		t.Fatalf("expected Ping frame, got %s", f.Kind)
	}
}
