package reactor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutMillis(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{-1, -1},
		{-time.Hour, -1},
		{0, 0},
		{time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{2 * time.Second, 2000},
		{time.Duration(math.MaxInt64), math.MaxInt32},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, timeoutMillis(c.in), "timeout %v", c.in)
	}
}

func TestNewDefaultsToPlatformBackend(t *testing.T) {
	mux, err := New("")
	if err != nil {
		t.Skipf("no multiplexer on this platform: %v", err)
	}
	defer mux.Close()
	assert.Equal(t, 0, mux.Registered())
}
