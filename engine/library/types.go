package library

// Account is a hex-encoded compressed secp256k1 public key.
type Account = string

// Lud16 is a lightning address in user@domain form.
type Lud16 = string

type Sha256 = string

// Profile is the content shape of a kind-0 metadata event.
type Profile struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Nip05       string `json:"nip05"`
	Lud16       string `json:"lud16"`
	Picture     string `json:"picture"`
}

// PaymentReceipt is what the wallet service returns for a settled payment.
type PaymentReceipt struct {
	PaymentHash string `json:"payment_hash"`
	CheckingID  string `json:"checking_id"`
}

// Event kinds this engine cares about.
const (
	KindProfileMetadata = 0
	KindTextNote        = 1
	KindRepost          = 6
	KindReaction        = 7
	KindZapRequest      = 9734
)
