package metrics

import "testing"

func TestRenderIsSortedAndSanitized(t *testing.T) {
	e := NewExporter()
	e.Register("tcp.connections", func() float64 { return 3 })
	e.Register("accept errors", func() float64 { return 1 })

	out := e.render()
	wantOrder := []string{"accept_errors", "tcp_connections"}
	idx := 0
	for _, want := range wantOrder {
		i := indexOf(out, want)
		if i < idx {
			t.Fatalf("expected %q to appear after index %d in:\n%s", want, idx, out)
		}
		idx = i
	}
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
