package actors

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nbd-wtf/go-nostr/nip06"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/library"
)

// Identity is the key pair this herd signs zap requests and notes with.
type Identity struct {
	PrivateKey string
	SeedWords  string
	Account    library.Account
}

var currentIdentity Identity
var currentIdentityMutex = &deadlock.Mutex{}

// MyIdentity returns the configured signing identity, generating and
// persisting a fresh one when nothing is configured. It fails when the
// configured private key does not derive the configured account, so a
// misconfigured deployment dies before it tries to sign anything.
func MyIdentity() (Identity, error) {
	currentIdentityMutex.Lock()
	defer currentIdentityMutex.Unlock()
	if len(currentIdentity.PrivateKey) > 0 {
		return currentIdentity, nil
	}
	if sec := MakeOrGetConfig().GetString("nosSec"); len(sec) > 0 {
		account, err := library.DerivePublicKey(sec)
		if err != nil {
			return Identity{}, fmt.Errorf("configured signing key is invalid: %w", err)
		}
		if expected := MakeOrGetConfig().GetString("hexKey"); len(expected) > 0 {
			if !library.VerifyKeyPair(sec, expected) {
				return Identity{}, fmt.Errorf("configured signing key does not derive account %s", expected)
			}
		}
		currentIdentity = Identity{PrivateKey: sec, Account: account}
		return currentIdentity, nil
	}
	if id, ok := getIdentityFromDisk(); ok {
		currentIdentity = id
		return currentIdentity, nil
	}
	library.LogCLI("generating a new signing identity, write down the seed words if you want to keep it", 4)
	id, err := makeNewIdentity()
	if err != nil {
		return Identity{}, err
	}
	currentIdentity = id
	fmt.Printf("\n\n~NEW IDENTITY~\nAccount: %s\nPrivate Key: %s\nSeed Words: %s\n\n", id.Account, id.PrivateKey, id.SeedWords)
	if err := persistCurrentIdentity(); err != nil {
		library.LogCLI(err.Error(), 1)
	}
	return currentIdentity, nil
}

func makeNewIdentity() (Identity, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return Identity{}, err
	}
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return Identity{}, err
	}
	account, err := library.DerivePublicKey(sk)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		PrivateKey: sk,
		SeedWords:  seedWords,
		Account:    account,
	}, nil
}

func persistCurrentIdentity() error {
	file, err := os.Create(MakeOrGetConfig().GetString("rootDir") + "identity.dat")
	if err != nil {
		return err
	}
	defer file.Close()
	b, err := json.Marshal(currentIdentity)
	if err != nil {
		return err
	}
	_, err = file.Write(b)
	return err
}

func getIdentityFromDisk() (id Identity, ok bool) {
	file, err := os.ReadFile(MakeOrGetConfig().GetString("rootDir") + "identity.dat")
	if err != nil {
		return Identity{}, false
	}
	if err := json.Unmarshal(file, &id); err != nil {
		library.LogCLI(fmt.Sprintf("error parsing identity file: %s", err), 2)
		return Identity{}, false
	}
	return id, true
}
