package library

import (
	"github.com/nbd-wtf/go-nostr"
)

func GetFirstTag(e nostr.Event, startsWith string) (string, bool) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{startsWith}) {
			return tag.Value(), true
		}
	}
	return "", false
}

// GetNoteReference returns the id of the first note referenced by an e tag.
func GetNoteReference(e nostr.Event) (Sha256, bool) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{"e"}) {
			if len(tag) > 1 && len(tag[1]) == 64 {
				return tag[1], true
			}
		}
	}
	return "", false
}

// GetAmountTag returns the content of the first amount tag, as found on
// zap requests.
func GetAmountTag(e nostr.Event) (string, bool) {
	return GetFirstTag(e, "amount")
}
