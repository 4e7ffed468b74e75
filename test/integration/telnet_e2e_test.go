// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

//go:build integration

package integration

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/embermud/embermud/internal/conn/telnet"
	"github.com/embermud/embermud/internal/transcript"
)

// telnetEnv runs the full stack behind a real TCP listener.
type telnetEnv struct {
	*testEnv
	server *telnet.Server
	errCh  chan error
}

func setupTelnetEnv() (*telnetEnv, error) {
	env, err := setupTestEnv()
	if err != nil {
		return nil, err
	}

	srv := telnet.NewServer("127.0.0.1:0", func(c *telnet.Conn) {
		env.manager.Attach(env.ctx, c)
	}, transcript.Discard, slog.New(slog.DiscardHandler))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(env.ctx) }()

	// Wait for the listener to bind so Addr reports a real port.
	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == "127.0.0.1:0" {
		if time.Now().After(deadline) {
			env.cleanup()
			return nil, fmt.Errorf("telnet listener did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return &telnetEnv{testEnv: env, server: srv, errCh: errCh}, nil
}

// shutdown stops the listener and waits for Run to return.
func (env *telnetEnv) shutdown() {
	env.cancel()
	Eventually(env.errCh, "5s").Should(Receive(BeNil()), "server should stop cleanly")
}

// telnetClient is a minimal expect-style client for driving the server
// over a real socket. Telnet negotiation bytes pass through unparsed;
// assertions work on substrings of the raw stream.
type telnetClient struct {
	conn net.Conn
	buf  bytes.Buffer
}

func dialTelnet(addr string) (*telnetClient, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &telnetClient{conn: conn}, nil
}

func (c *telnetClient) close() {
	_ = c.conn.Close()
}

// expect reads until the accumulated output contains want.
func (c *telnetClient) expect(want string) error {
	deadline := time.Now().Add(5 * time.Second)
	chunk := make([]byte, 4096)
	for {
		if strings.Contains(c.buf.String(), want) {
			return nil
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		n, err := c.conn.Read(chunk)
		if n > 0 {
			c.buf.Write(chunk[:n])
			continue
		}
		if err != nil {
			return fmt.Errorf("waiting for %q, saw %q: %w", want, c.buf.String(), err)
		}
	}
}

// expectClosed reads until the server closes the socket.
func (c *telnetClient) expectClosed() error {
	deadline := time.Now().Add(5 * time.Second)
	chunk := make([]byte, 4096)
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		if _, err := c.conn.Read(chunk); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return errors.New("connection still open")
			}
			return nil
		}
	}
}

func (c *telnetClient) sendLine(text string) error {
	_, err := c.conn.Write([]byte(text + "\r\n"))
	return err
}

// signIn drives a client through the name and password prompts.
func (c *telnetClient) signIn(username, password string) error {
	if err := c.expect("Account name"); err != nil {
		return err
	}
	if err := c.sendLine(username); err != nil {
		return err
	}
	if err := c.expect("Password: "); err != nil {
		return err
	}
	if err := c.sendLine(password); err != nil {
		return err
	}
	return c.expect("Welcome, " + username + "!")
}

var _ = Describe("Telnet Endpoint", func() {
	var env *telnetEnv

	BeforeEach(func() {
		var err error
		env, err = setupTelnetEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		env.shutdown()
	})

	It("greets a new connection with the banner", func() {
		c, err := dialTelnet(env.server.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer c.close()

		Expect(c.expect("Welcome to EmberMUD")).To(Succeed())
		Expect(c.expect("The embers are warm tonight.")).To(Succeed())
		Expect(c.expect("Account name")).To(Succeed())
	})

	It("creates an account over the wire", func() {
		c, err := dialTelnet(env.server.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer c.close()

		Expect(c.expect("Account name")).To(Succeed())
		Expect(c.sendLine("new")).To(Succeed())
		Expect(c.expect("Choose an account name: ")).To(Succeed())
		Expect(c.sendLine("pyra")).To(Succeed())
		Expect(c.expect("Choose a password")).To(Succeed())
		Expect(c.sendLine("crucible-heat")).To(Succeed())
		Expect(c.expect("Confirm password: ")).To(Succeed())
		Expect(c.sendLine("crucible-heat")).To(Succeed())
		Expect(c.expect(`Create account "pyra"? (y/n) `)).To(Succeed())
		Expect(c.sendLine("y")).To(Succeed())
		Expect(c.expect(`Account "pyra" created.`)).To(Succeed())
		Expect(c.expect("Welcome, pyra!")).To(Succeed())
	})

	It("relays say between two live connections", func() {
		env.register("pyra", "crucible-heat")
		env.register("brand", "kindling-oak")

		pyra, err := dialTelnet(env.server.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer pyra.close()
		Expect(pyra.signIn("pyra", "crucible-heat")).To(Succeed())

		brand, err := dialTelnet(env.server.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer brand.close()
		Expect(brand.signIn("brand", "kindling-oak")).To(Succeed())

		Expect(pyra.sendLine("say Flames rising")).To(Succeed())

		Expect(pyra.expect("You say,")).To(Succeed())
		Expect(brand.expect("pyra says,")).To(Succeed())
		Expect(brand.expect("Flames rising")).To(Succeed())
	})

	It("closes the socket on quit", func() {
		env.register("pyra", "crucible-heat")

		c, err := dialTelnet(env.server.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer c.close()
		Expect(c.signIn("pyra", "crucible-heat")).To(Succeed())

		Expect(c.sendLine("quit")).To(Succeed())
		Expect(c.expect("Goodbye!")).To(Succeed())
		Expect(c.expectClosed()).To(Succeed())
	})

	It("ends live connections on shutdown", func() {
		c, err := dialTelnet(env.server.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer c.close()
		Expect(c.expect("Account name")).To(Succeed())

		env.cancel()

		Expect(c.expectClosed()).To(Succeed())
	})
})
