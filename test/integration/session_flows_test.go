// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

//go:build integration

package integration

import (
	"context"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/command"
	"github.com/embermud/embermud/internal/conn/virtual"
	"github.com/embermud/embermud/internal/session"
	"github.com/embermud/embermud/internal/states"
	"github.com/embermud/embermud/internal/transcript"
)

// testEnv holds one fully wired server core without a network listener.
// Connections come in through the virtual transport, which runs the
// same session plumbing as the real ones.
type testEnv struct {
	ctx      context.Context
	cancel   context.CancelFunc
	machine  *session.Machine
	manager  *session.Manager
	auth     *auth.Service
	commands *command.Registry
}

// setupTestEnv wires the production stack on an in-memory account
// repository. Postgres repository coverage lives next to the
// repository itself.
func setupTestEnv(opts ...session.ManagerOption) (*testEnv, error) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.DiscardHandler)

	machine := session.NewMachine(logger)
	if len(opts) == 0 {
		opts = []session.ManagerOption{session.WithIdleTimeout(0)}
	}
	manager, err := session.NewManager(machine, logger, opts...)
	if err != nil {
		cancel()
		return nil, err
	}

	svc := auth.NewService(auth.NewMemoryUserRepository(), auth.NewArgon2idHasher())

	reg := command.NewRegistry()
	command.RegisterBuiltins(reg, manager)

	if err := states.RegisterAll(states.Deps{
		Machine:  machine,
		Manager:  manager,
		Auth:     svc,
		Commands: reg,
		Logger:   logger,
		GameName: "EmberMUD",
		MOTD:     "The embers are warm tonight.",
	}); err != nil {
		cancel()
		return nil, err
	}

	return &testEnv{
		ctx:      ctx,
		cancel:   cancel,
		machine:  machine,
		manager:  manager,
		auth:     svc,
		commands: reg,
	}, nil
}

func (env *testEnv) cleanup() {
	env.cancel()
}

// connect attaches a fresh virtual connection to the session manager.
// The returned connection has already seen the banner and is resting at
// the login prompt.
func (env *testEnv) connect() *virtual.Conn {
	return env.connectWithStore(nil)
}

func (env *testEnv) connectWithStore(store transcript.Store) *virtual.Conn {
	v := virtual.New(store, slog.New(slog.DiscardHandler))
	env.manager.Attach(env.ctx, v)
	return v
}

// register creates an account directly through the auth service.
func (env *testEnv) register(username, password string) {
	_, err := env.auth.Register(env.ctx, username, password)
	Expect(err).NotTo(HaveOccurred())
}

// line submits one line the way a terminal would: keystroke by
// keystroke with a trailing carriage return.
func line(v *virtual.Conn, text string) {
	v.SimulateInput(text + "\r")
}

// login drives a connection through the name and password prompts.
func login(v *virtual.Conn, username, password string) {
	line(v, username)
	line(v, password)
}

var _ = Describe("Session Flows", func() {
	var env *testEnv

	BeforeEach(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		env.cleanup()
	})

	Describe("Account creation", func() {
		It("walks a new player through signup and into the game", func() {
			v := env.connect()

			out := v.Output(true)
			Expect(out).To(ContainSubstring("Welcome to EmberMUD"))
			Expect(out).To(ContainSubstring("The embers are warm tonight."))
			Expect(out).To(ContainSubstring("Account name"))

			line(v, "new")
			Expect(v.Output(true)).To(ContainSubstring("Choose an account name: "))

			line(v, "pyra")
			Expect(v.Output(true)).To(ContainSubstring("Choose a password"))
			Expect(v.MaskInput()).To(BeTrue(), "password entry should be masked")

			line(v, "crucible-heat")
			Expect(v.Output(true)).To(ContainSubstring("Confirm password: "))

			line(v, "crucible-heat")
			Expect(v.Output(true)).To(ContainSubstring(`Create account "pyra"? (y/n) `))

			line(v, "y")
			out = v.Output(true)
			Expect(out).To(ContainSubstring(`Account "pyra" created.`))
			Expect(out).To(ContainSubstring("Welcome, pyra!"))
			Expect(out).To(ContainSubstring("> "))
			Expect(v.MaskInput()).To(BeFalse())

			exists, err := env.auth.UserExists(env.ctx, "pyra")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue(), "account should be persisted")
		})

		It("re-prompts when the password confirmation differs", func() {
			v := env.connect()
			line(v, "new")
			line(v, "pyra")
			line(v, "crucible-heat")
			v.ClearOutput()

			line(v, "something-else")

			Expect(v.Output(true)).To(ContainSubstring("Passwords do not match."))

			line(v, "crucible-heat")
			line(v, "crucible-heat")
			line(v, "y")
			Expect(v.Output(true)).To(ContainSubstring("Welcome, pyra!"))
		})

		It("returns to login when the account is discarded", func() {
			v := env.connect()
			line(v, "new")
			line(v, "pyra")
			line(v, "crucible-heat")
			line(v, "crucible-heat")
			v.ClearOutput()

			line(v, "n")

			out := v.Output(true)
			Expect(out).To(ContainSubstring("Discarded. Returning to login."))
			Expect(out).To(ContainSubstring("Account name"))

			exists, err := env.auth.UserExists(env.ctx, "pyra")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse(), "discarded account should not be persisted")
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			env.register("pyra", "crucible-heat")
		})

		It("signs in an existing account", func() {
			v := env.connect()

			line(v, "pyra")
			Expect(v.Output(true)).To(ContainSubstring("Password: "))
			Expect(v.MaskInput()).To(BeTrue())

			line(v, "crucible-heat")
			out := v.Output(true)
			Expect(out).NotTo(ContainSubstring("crucible-heat"), "masked input must not echo")
			Expect(out).To(ContainSubstring("Welcome, pyra!"))
			Expect(v.MaskInput()).To(BeFalse())
		})

		It("recovers from a wrong password", func() {
			v := env.connect()
			line(v, "pyra")
			v.ClearOutput()

			line(v, "wrong-heat")
			Expect(v.Output(true)).To(ContainSubstring("Wrong password (1 of 3)"))

			line(v, "crucible-heat")
			Expect(v.Output(true)).To(ContainSubstring("Welcome, pyra!"))
		})
	})

	Describe("Session takeover", func() {
		var first, second *virtual.Conn

		BeforeEach(func() {
			env.register("pyra", "crucible-heat")
			first = env.connect()
			login(first, "pyra", "crucible-heat")
			Expect(first.Output(true)).To(ContainSubstring("Welcome, pyra!"))

			second = env.connect()
			login(second, "pyra", "crucible-heat")
		})

		It("moves the session to the new connection on consent", func() {
			Expect(second.Output(true)).To(ContainSubstring("already connected elsewhere"))

			line(second, "y")

			Expect(second.Output(true)).To(ContainSubstring("Session moved here. Welcome back, pyra."))
			Expect(first.Output(true)).To(ContainSubstring("Your session has been transferred"))
			Expect(first.IsActive()).To(BeFalse(), "displaced connection should end")
			Expect(second.IsActive()).To(BeTrue())
		})

		It("leaves the original session alone on refusal", func() {
			line(second, "n")

			out := second.Output(true)
			Expect(out).To(ContainSubstring("Leaving the other session in place."))
			Expect(out).To(ContainSubstring("Account name"))
			Expect(first.IsActive()).To(BeTrue(), "original session should keep running")
		})
	})

	Describe("Commands in play", func() {
		var pyra, brand *virtual.Conn

		BeforeEach(func() {
			env.register("pyra", "crucible-heat")
			env.register("brand", "kindling-oak")
			pyra = env.connect()
			login(pyra, "pyra", "crucible-heat")
			brand = env.connect()
			login(brand, "brand", "kindling-oak")
			pyra.ClearOutput()
			brand.ClearOutput()
		})

		It("relays say to the other session", func() {
			line(pyra, "say The forge is lit")

			Expect(pyra.Output(true)).To(ContainSubstring("You say,"))
			out := brand.Output(true)
			Expect(out).To(ContainSubstring("pyra says,"))
			Expect(out).To(ContainSubstring("The forge is lit"))
		})

		It("lists both players with who", func() {
			line(pyra, "who")

			out := pyra.Output(true)
			Expect(out).To(ContainSubstring("Online now:"))
			Expect(out).To(ContainSubstring("pyra"))
			Expect(out).To(ContainSubstring("brand"))
		})

		It("ends the session on quit", func() {
			Expect(env.manager.Count()).To(Equal(2))

			line(pyra, "quit")

			Expect(pyra.Output(true)).To(ContainSubstring("Goodbye!"))
			Expect(pyra.IsActive()).To(BeFalse())
			Expect(env.manager.Count()).To(Equal(1), "quit should detach the session")
		})
	})

	Describe("Transcript policy", func() {
		It("never records masked input", func() {
			store := transcript.NewMemoryStore()
			v := env.connectWithStore(store)
			v.EnableRawLogging(true)

			line(v, "new")
			line(v, "pyra")
			line(v, "crucible-heat")
			line(v, "crucible-heat")
			line(v, "y")
			Expect(v.Output(true)).To(ContainSubstring("Welcome, pyra!"))

			entries := strings.Join(store.Entries(v.ID()), "\n")
			Expect(entries).To(ContainSubstring("[PASSWORD INPUT MASKED]"))
			Expect(entries).NotTo(ContainSubstring("crucible-heat"), "passwords must never reach transcripts")
		})
	})
})

var _ = Describe("Idle Sweep", func() {
	It("ends idle sessions past the timeout", func() {
		env, err := setupTestEnv(
			session.WithIdleTimeout(50*time.Millisecond),
			session.WithSweepInterval(10*time.Millisecond),
		)
		Expect(err).NotTo(HaveOccurred())
		defer env.cleanup()

		go env.manager.Sweep(env.ctx)

		v := env.connect()
		Eventually(v.IsActive).Should(BeFalse(), "idle session should be swept")
		Expect(v.Output(true)).To(ContainSubstring("Idle timeout. Goodbye."))
	})

	It("keeps active sessions alive", func() {
		env, err := setupTestEnv(
			session.WithIdleTimeout(200*time.Millisecond),
			session.WithSweepInterval(10*time.Millisecond),
		)
		Expect(err).NotTo(HaveOccurred())
		defer env.cleanup()

		go env.manager.Sweep(env.ctx)

		v := env.connect()
		for range 5 {
			time.Sleep(50 * time.Millisecond)
			line(v, "")
		}
		Expect(v.IsActive()).To(BeTrue(), "activity should reset the idle clock")
	})
})
