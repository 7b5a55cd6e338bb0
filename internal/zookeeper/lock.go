// Package zookeeper provides a per-key lock shared by several service
// instances, built on ephemeral sequential znodes.
package zookeeper

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultLockRoot = "/globalbooks/locks"

// Connect opens a session and waits until it is established or timeout passes.
func Connect(servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, errors.Wrap(err, "zookeeper connect")
	}
	deadline := time.After(sessionTimeout)
	for {
		select {
		case ev := <-events:
			if ev.State == zk.StateHasSession {
				return conn, nil
			}
		case <-deadline:
			conn.Close()
			return nil, errors.Errorf("zookeeper: no session with %v after %s", servers, sessionTimeout)
		}
	}
}

// Locker hands out exclusive locks under root, one znode directory per key.
type Locker struct {
	conn    *zk.Conn
	root    string
	timeout time.Duration
	log     zerolog.Logger
}

// NewLocker ensures the root path exists. timeout bounds one Lock call when
// the caller's context carries no deadline.
func NewLocker(conn *zk.Conn, root string, timeout time.Duration, log zerolog.Logger) (*Locker, error) {
	if root == "" {
		root = defaultLockRoot
	}
	l := &Locker{conn: conn, root: root, timeout: timeout, log: log}
	if err := l.ensurePath(root); err != nil {
		return nil, err
	}
	return l, nil
}

// ensurePath creates every missing component of path as a persistent node.
func (l *Locker) ensurePath(path string) error {
	current := ""
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		current += "/" + part
		_, err := l.conn.Create(current, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return errors.Wrapf(err, "create lock node %s", current)
		}
	}
	return nil
}

// Lock blocks until this session owns key, ctx is done or the lock timeout passes.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if _, ok := ctx.Deadline(); !ok && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	lockPath := l.root + "/" + key
	if err := l.ensurePath(lockPath); err != nil {
		return nil, err
	}
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(lockPath+"/lock-", nil, zk.WorldACL(zk.PermAll))
	if err != nil {
		return nil, errors.Wrap(err, "create sequential node")
	}
	unlock := func() {
		if err := l.conn.Delete(nodePath, -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
			l.log.Error().Err(err).Str("node", nodePath).Msg("failed to delete zookeeper lock node")
		}
	}

	myName := strings.TrimPrefix(nodePath, lockPath+"/")
	for {
		children, _, err := l.conn.Children(lockPath)
		if err != nil {
			unlock()
			return nil, errors.Wrap(err, "list lock contenders")
		}
		// Protected names carry a GUID prefix; order by the sequence suffix.
		sort.Slice(children, func(i, j int) bool { return sequence(children[i]) < sequence(children[j]) })

		idx := -1
		for i, child := range children {
			if child == myName {
				idx = i
				break
			}
		}
		if idx < 0 {
			unlock()
			return nil, errors.Errorf("lock node %s vanished", nodePath)
		}
		if idx == 0 {
			return unlock, nil
		}

		exists, _, watch, err := l.conn.ExistsW(lockPath + "/" + children[idx-1])
		if err != nil {
			unlock()
			return nil, errors.Wrap(err, "watch previous lock node")
		}
		if !exists {
			continue
		}
		select {
		case <-watch:
		case <-ctx.Done():
			unlock()
			return nil, ctx.Err()
		}
	}
}

func sequence(name string) string {
	if i := strings.LastIndex(name, "-"); i >= 0 {
		return name[i+1:]
	}
	return name
}
