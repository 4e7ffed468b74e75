// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package telnet

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/embermud/embermud/internal/conn"
	"github.com/embermud/embermud/internal/transcript"
)

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func TestConn_ReadLoopEmitsRawChunks(t *testing.T) {
	defer goleak.VerifyNone(t)

	client, server := net.Pipe()
	c := NewConn(server, transcript.Discard, nil)

	data := make(chan string, 8)
	c.OnData(func(text string) { data <- text })

	go c.ReadLoop()

	_, err := client.Write([]byte("look\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "look\r\n", waitFor(t, data))

	// Escape sequences pass through untouched.
	_, err = client.Write([]byte("\x1b[A"))
	require.NoError(t, err)
	assert.Equal(t, "\x1b[A", waitFor(t, data))

	c.End()
	client.Close()
}

func TestConn_PeerDisconnectEndsSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	client, server := net.Pipe()
	c := NewConn(server, transcript.Discard, nil)

	ended := make(chan struct{}, 1)
	errs := make(chan error, 1)
	c.OnEnd(func() { ended <- struct{}{} })
	c.OnError(func(err error) { errs <- err })

	go c.ReadLoop()

	client.Close()
	waitFor(t, ended)
	assert.False(t, c.IsActive())

	// A clean EOF is a disconnect, not an error.
	select {
	case err := <-errs:
		t.Fatalf("unexpected error event: %v", err)
	default:
	}
}

func TestConn_ReadErrorEmitsErrorThenEnds(t *testing.T) {
	defer goleak.VerifyNone(t)

	client, server := net.Pipe()
	defer client.Close()

	require.NoError(t, server.SetReadDeadline(time.Now().Add(-time.Second)))

	c := NewConn(server, transcript.Discard, nil)

	ended := make(chan struct{}, 1)
	errs := make(chan error, 1)
	c.OnEnd(func() { ended <- struct{}{} })
	c.OnError(func(err error) { errs <- err })

	go c.ReadLoop()

	require.Error(t, waitFor(t, errs))
	waitFor(t, ended)
}

func TestConn_WriteFailureEndsSession(t *testing.T) {
	client, server := net.Pipe()
	c := NewConn(server, transcript.Discard, nil)

	ended := make(chan struct{}, 1)
	errs := make(chan error, 1)
	c.OnEnd(func() { ended <- struct{}{} })
	c.OnError(func(err error) { errs <- err })

	client.Close()
	c.Write("hello")

	require.Error(t, waitFor(t, errs))
	waitFor(t, ended)
	assert.False(t, c.IsActive())
}

func TestConn_WriteAfterEndIsNoop(t *testing.T) {
	client, server := net.Pipe()
	c := NewConn(server, transcript.Discard, nil)

	c.End()
	// Would block forever on an open pipe with no reader if not gated.
	c.Write("ignored")
	client.Close()
}

func TestConn_WriteReachesPeerAndTranscript(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	store := transcript.NewMemoryStore()
	c := NewConn(server, store, nil)
	c.EnableRawLogging(true)

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		got <- string(buf[:n])
	}()

	c.Write("Welcome to EmberMUD\r\n")
	assert.Equal(t, "Welcome to EmberMUD\r\n", waitFor(t, got))
	assert.Equal(t, []string{"Welcome to EmberMUD\r\n"}, store.Entries(c.ID()))

	c.End()
}

func TestConn_Identity(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	c := NewConn(server, transcript.Discard, nil)
	defer c.End()

	assert.Equal(t, conn.TypeTelnet, c.Type())
	assert.NotEmpty(t, c.ID())
	assert.Same(t, server, c.RawConn())
}
