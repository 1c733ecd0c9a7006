package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zapRelays = []string{"wss://relay.primal.net", "wss://nos.lol"}

func TestBuildZapRequest(t *testing.T) {
	event, err := BuildZapRequest(21000, testAccount, "02"+"ea8be2224d58ef0738613fc327811c14feb4b73a12b48fa1056c86cce6b1da39", "", zapRelays, "")
	require.NoError(t, err)
	assert.Equal(t, KindZapRequest, event.Kind)
	assert.Equal(t, testAccount, event.PubKey)

	p := event.Tags.GetFirst([]string{"p"})
	require.NotNil(t, p)

	amount := event.Tags.GetFirst([]string{"amount"})
	require.NotNil(t, amount)
	assert.Equal(t, "21000", amount.Value())

	relays := event.Tags.GetFirst([]string{"relays"})
	require.NotNil(t, relays)
	assert.Len(t, *relays, 3)

	assert.Nil(t, event.Tags.GetFirst([]string{"e"}))
	assert.Nil(t, event.Tags.GetFirst([]string{"description"}))
}

func TestBuildZapRequestWithNoteAndContent(t *testing.T) {
	noteID := Sha256("1f4a1d2e3b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f6")
	event, err := BuildZapRequest(10000, testAccount, testAccount, noteID, zapRelays, "CyberHerd treats")
	require.NoError(t, err)

	e := event.Tags.GetFirst([]string{"e"})
	require.NotNil(t, e)
	assert.Equal(t, string(noteID), e.Value())
	assert.Equal(t, zapRelays[0], (*e)[2])
	assert.Equal(t, "root", (*e)[3])

	description := event.Tags.GetFirst([]string{"description"})
	require.NotNil(t, description)
	assert.Equal(t, "CyberHerd treats", event.Content)
}

func TestBuildZapRequestRejectsBadInput(t *testing.T) {
	_, err := BuildZapRequest(0, testAccount, testAccount, "", zapRelays, "")
	assert.Error(t, err)

	_, err = BuildZapRequest(-1000, testAccount, testAccount, "", zapRelays, "")
	assert.Error(t, err)

	_, err = BuildZapRequest(1000, testAccount, testAccount, "", nil, "")
	assert.Error(t, err)
}

func TestSignZapRequest(t *testing.T) {
	event, err := SignZapRequest(21000, testAccount, testAccount, testPrivateKey, "", zapRelays, "")
	require.NoError(t, err)
	assert.True(t, VerifyEventSignature(event))

	_, err = SignZapRequest(21000, "02"+"a716a37a60a2a32112674173bc0ccba2a3914c1728a007b31d1c30c54ccdbef1", testAccount, testPrivateKey, "", zapRelays, "")
	assert.Error(t, err)
}
