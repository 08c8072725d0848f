package catalyst

import (
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestRotatorRounds(t *testing.T) {
	r := NewRotator(Samples, rand.New(rand.NewSource(1)))
	for round := 0; round < 3; round++ {
		seen := map[string]int{}
		for i := 0; i < len(Samples); i++ {
			seen[r.Next().Ticker]++
		}
		if len(seen) != len(Samples) {
			t.Fatalf("round %d: %d distinct tickers, want %d", round, len(seen), len(Samples))
		}
	}
}

func TestFeed(t *testing.T) {
	fixed := time.UnixMilli(1761750000000)
	s := New(WithInterval(10*time.Millisecond, 0), WithRotator(NewRotator(Samples, rand.New(rand.NewSource(7)))))
	s.now = func() time.Time { return fixed }
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	seen := map[string]bool{}
	for i := 0; i < len(Samples); i++ {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev.TS != fixed.UnixMilli() || ev.ID != ev.Ticker+"-1761750000000" {
			t.Fatalf("bad stamp: %+v", ev)
		}
		if ev.Label == "" || ev.Severity == "" {
			t.Fatalf("incomplete event: %+v", ev)
		}
		seen[ev.Ticker] = true
	}
	if len(seen) != len(Samples) {
		t.Fatalf("first round repeated events: %v", seen)
	}
}
