//go:build !linux

package ws

import (
	"net"
	"sync"
)

// Epoll is the portable fallback poller. Each connection gets a goroutine
// that hands it to Wait and then parks until the server calls Rearm, so no
// bytes are consumed outside the frame reader. Workers block in the frame
// read until data arrives or the read timeout expires.
type Epoll struct {
	mu      sync.Mutex
	conns   map[net.Conn]chan struct{} // rearm signal per connection
	readyCh chan net.Conn
	done    chan struct{}
}

// NewEpoll creates a fallback poller.
func NewEpoll() (*Epoll, error) {
	return &Epoll{
		conns:   make(map[net.Conn]chan struct{}),
		readyCh: make(chan net.Conn, 128),
		done:    make(chan struct{}),
	}, nil
}

// Add starts monitoring conn.
func (e *Epoll) Add(conn net.Conn) error {
	rearm := make(chan struct{}, 1)

	e.mu.Lock()
	e.conns[conn] = rearm
	e.mu.Unlock()

	go e.monitor(conn, rearm)
	return nil
}

func (e *Epoll) monitor(conn net.Conn, rearm chan struct{}) {
	for {
		select {
		case e.readyCh <- conn:
		case <-e.done:
			return
		}

		select {
		case _, ok := <-rearm:
			if !ok {
				return
			}
		case <-e.done:
			return
		}
	}
}

// Rearm lets conn be reported by Wait again.
func (e *Epoll) Rearm(conn net.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rearm, ok := e.conns[conn]; ok {
		select {
		case rearm <- struct{}{}:
		default:
		}
	}
}

// Remove stops monitoring conn.
func (e *Epoll) Remove(conn net.Conn) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rearm, ok := e.conns[conn]; ok {
		delete(e.conns, conn)
		close(rearm)
	}
	return nil
}

// Wait blocks until at least one connection is ready and returns every
// connection that is ready at that moment.
func (e *Epoll) Wait() ([]net.Conn, error) {
	var first net.Conn
	select {
	case first = <-e.readyCh:
	case <-e.done:
		return nil, net.ErrClosed
	}

	conns := []net.Conn{first}
	for {
		select {
		case conn := <-e.readyCh:
			conns = append(conns, conn)
		default:
			return conns, nil
		}
	}
}

// Close shuts down the fallback poller.
func (e *Epoll) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	close(e.done)
	e.conns = nil
	return nil
}

// socketFD returns -1; the fallback does not use file descriptors.
func socketFD(net.Conn) int {
	return -1
}
