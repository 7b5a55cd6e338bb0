package zookeeper

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	assert.Equal(t, "0000000003", sequence("_c_2f1e-lock-0000000003"))
	assert.Equal(t, "plain", sequence("plain"))
}

// Runs against a real ensemble when ZK_SERVERS is set.
func TestLocker_Integration(t *testing.T) {
	servers := os.Getenv("ZK_SERVERS")
	if servers == "" {
		t.Skip("ZK_SERVERS not set")
	}
	conn, err := Connect(strings.Split(servers, ","), 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	locker, err := NewLocker(conn, "/globalbooks-test/locks", 5*time.Second, zerolog.Nop())
	require.NoError(t, err)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "B1")
			if !assert.NoError(t, err) {
				return
			}
			v := counter
			time.Sleep(5 * time.Millisecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, counter)
}
