// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package states

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embermud/embermud/internal/session"
)

func TestTransfer_SecondLoginPrompts(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ember", "opensesame")

	v1, c1 := f.connect(t)
	loginAs(v1, "ember", "opensesame")
	require.True(t, c1.Authenticated())

	v2, c2 := f.connect(t)
	loginAs(v2, "ember", "opensesame")

	out := v2.Output(true)
	assert.Contains(t, out, "already connected elsewhere")
	assert.Contains(t, out, "(y/n)")
	assert.Equal(t, session.StateTransferRequest, c2.State())
	assert.False(t, c2.Authenticated(), "login must not complete while the prompt is open")
	assert.False(t, v2.MaskInput(), "the y/n answer is not a password")
}

func TestTransfer_AcceptingMovesTheSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ember", "opensesame")

	v1, _ := f.connect(t)
	loginAs(v1, "ember", "opensesame")
	v2, c2 := f.connect(t)
	loginAs(v2, "ember", "opensesame")
	v1.ClearOutput()
	v2.ClearOutput()

	line(v2, "y")

	assert.Contains(t, v1.Output(false), "transferred to another connection")
	assert.False(t, v1.IsActive(), "displaced connection must end")

	out := v2.Output(true)
	assert.Contains(t, out, "Session moved here. Welcome back, ember.")
	assert.Contains(t, out, "> ")
	assert.Equal(t, session.StateAuthenticated, c2.State())
	assert.True(t, c2.Authenticated())
	require.NotNil(t, c2.User())
	assert.Equal(t, "ember", c2.User().Username)

	assert.Equal(t, 1, f.manager.Count())
}

func TestTransfer_DecliningKeepsExistingSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ember", "opensesame")

	v1, c1 := f.connect(t)
	loginAs(v1, "ember", "opensesame")
	v2, c2 := f.connect(t)
	loginAs(v2, "ember", "opensesame")
	v2.ClearOutput()

	line(v2, "n")

	out := v2.Output(true)
	assert.Contains(t, out, "Leaving the other session in place.")
	assert.Contains(t, out, "Account name", "declining returns to the login prompt")
	assert.Equal(t, session.StateLogin, c2.State())
	assert.False(t, c2.Authenticated())

	assert.True(t, v1.IsActive())
	assert.True(t, c1.Authenticated())
	assert.Equal(t, 2, f.manager.Count())
}

func TestTransfer_AnswerMustBeYesOrNo(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ember", "opensesame")

	v1, _ := f.connect(t)
	loginAs(v1, "ember", "opensesame")
	v2, c2 := f.connect(t)
	loginAs(v2, "ember", "opensesame")
	v2.ClearOutput()

	line(v2, "what")

	assert.Contains(t, v2.Output(true), "Please answer y or n")
	assert.Equal(t, session.StateTransferRequest, c2.State())
	assert.True(t, v1.IsActive(), "an unclear answer must not displace anyone")
}

func TestTransfer_DisplacedSessionAlreadyGone(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ember", "opensesame")

	v1, _ := f.connect(t)
	loginAs(v1, "ember", "opensesame")
	v2, c2 := f.connect(t)
	loginAs(v2, "ember", "opensesame")

	// The other connection drops while the prompt is open.
	v1.End()
	v2.ClearOutput()

	line(v2, "y")

	assert.Equal(t, session.StateAuthenticated, c2.State())
	assert.True(t, c2.Authenticated())
	assert.Equal(t, 1, f.manager.Count())
}

func TestTransfer_ExitClearsPendingContext(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ember", "opensesame")

	v1, _ := f.connect(t)
	loginAs(v1, "ember", "opensesame")
	v2, c2 := f.connect(t)
	loginAs(v2, "ember", "opensesame")

	line(v2, "n")

	assert.False(t, c2.BoolData(session.DataAwaitingTransfer))
	_, pending := c2.Data(dataPendingUser)
	assert.False(t, pending, "pending user must be scrubbed on exit")

	// The login flow works normally afterwards.
	v2.ClearOutput()
	loginAs(v2, "ember", "opensesame")
	assert.Equal(t, session.StateTransferRequest, c2.State(), "account still attached on the first connection")
}
