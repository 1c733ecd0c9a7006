package actors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fiatjaf/go-lnurl"
	decodepay "github.com/nbd-wtf/ln-decodepay"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/library"
	"cyberherd/state/targets"
)

// LightningClient talks to the LNbits instance holding the herd wallet, and
// directly to LNURL pay services when rewarding members.
type LightningClient struct {
	baseURL   string
	herdKey   string
	splitsKey string
	client    *http.Client

	balanceMutex   *deadlock.Mutex
	cachedBalance  int64
	balanceFetched time.Time
}

func NewLightningClient() *LightningClient {
	conf := MakeOrGetConfig()
	return &LightningClient{
		baseURL:      strings.TrimRight(conf.GetString("lnbitsUrl"), "/"),
		herdKey:      conf.GetString("herdKey"),
		splitsKey:    conf.GetString("splitsKey"),
		client:       &http.Client{Timeout: 20 * time.Second},
		balanceMutex: &deadlock.Mutex{},
	}
}

// CreateInvoice asks the herd wallet for a bolt11 invoice of amountSats.
func (l *LightningClient) CreateInvoice(amountSats int64, memo string) (string, error) {
	payload := map[string]interface{}{
		"out":    false,
		"amount": amountSats,
		"memo":   memo,
	}
	var response struct {
		PaymentRequest string `json:"payment_request"`
	}
	err := Retry(func() error {
		return l.postJSON("/api/v1/payments", l.herdKey, payload, &response)
	})
	if err != nil {
		return "", fmt.Errorf("could not create invoice for %d sats: %w", amountSats, err)
	}
	if response.PaymentRequest == "" {
		return "", fmt.Errorf("wallet returned an empty payment request")
	}
	return response.PaymentRequest, nil
}

// PayInvoice pays a bolt11 invoice from the herd wallet. The invoice is
// decoded first so a garbled one is rejected before any money moves.
func (l *LightningClient) PayInvoice(bolt11 string) (*library.PaymentReceipt, error) {
	decoded, err := decodepay.Decodepay(bolt11)
	if err != nil {
		return nil, fmt.Errorf("refusing to pay undecodable invoice: %w", err)
	}
	library.LogCLI(fmt.Sprintf("paying invoice %s for %d msat", decoded.PaymentHash, decoded.MSatoshi), 3)
	payload := map[string]interface{}{
		"out":    true,
		"bolt11": bolt11,
	}
	var receipt library.PaymentReceipt
	err = Retry(func() error {
		return l.postJSON("/api/v1/payments", l.herdKey, payload, &receipt)
	})
	if err != nil {
		return nil, fmt.Errorf("could not pay invoice %s: %w", decoded.PaymentHash, err)
	}
	return &receipt, nil
}

// Balance returns the herd wallet balance in sats. Reads are cached briefly
// unless forceRefresh is set.
func (l *LightningClient) Balance(forceRefresh bool) (int64, error) {
	l.balanceMutex.Lock()
	defer l.balanceMutex.Unlock()
	if !forceRefresh && time.Since(l.balanceFetched) < 10*time.Second {
		return l.cachedBalance, nil
	}
	var response struct {
		Balance int64 `json:"balance"`
	}
	err := Retry(func() error {
		return l.getJSON("/api/v1/wallet", l.herdKey, &response)
	})
	if err != nil {
		return 0, fmt.Errorf("could not fetch wallet balance: %w", err)
	}
	// LNbits reports msats
	l.cachedBalance = response.Balance / 1000
	l.balanceFetched = time.Now()
	return l.cachedBalance, nil
}

// ReplaceTargets swaps the wallet's split table for the given allocation.
func (l *LightningClient) ReplaceTargets(list []targets.Target) error {
	payload := struct {
		Targets []targets.Target `json:"targets"`
	}{Targets: list}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return Retry(func() error {
		req, err := http.NewRequest(http.MethodPut, l.baseURL+"/splitpayments/api/v1/targets", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("X-API-KEY", l.splitsKey)
		req.Header.Set("Content-Type", "application/json")
		resp, err := l.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("split target update returned status %d", resp.StatusCode)
		}
		return nil
	})
}

type lnServicePayResponse struct {
	Callback       string `json:"callback"`
	MaxSendable    int64  `json:"maxSendable"`
	MinSendable    int64  `json:"minSendable"`
	Metadata       string `json:"metadata"`
	Tag            string `json:"tag"`
	CommentAllowed int64  `json:"commentAllowed"`
	AllowsNostr    bool   `json:"allowsNostr"`
	NostrPubkey    string `json:"nostrPubkey"`
}

type lnServiceInvoice struct {
	Pr     string     `json:"pr"`
	Routes []struct{} `json:"routes"`
}

// PayToAddress pays amountMsat to a lightning address. Amounts outside the
// recipient's declared sendable range are logged and skipped with a nil
// receipt rather than treated as an error. When the receiving service
// advertises zap support, a signed zap request rides along so the payment
// shows up on the recipient's feed.
func (l *LightningClient) PayToAddress(address library.Lud16, amountMsat int64, description string) (*library.PaymentReceipt, error) {
	params, err := l.lnurlParams(address)
	if err != nil {
		return nil, err
	}
	if amountMsat < params.MinSendable || amountMsat > params.MaxSendable {
		library.LogCLI(fmt.Sprintf("%s: %d msat is out of bounds (min: %d, max: %d)",
			address, amountMsat, params.MinSendable, params.MaxSendable), 2)
		return nil, nil
	}
	callback := params.Callback + "?amount=" + strconv.FormatInt(amountMsat, 10)
	if params.CommentAllowed > 0 {
		callback += "&comment=" + url.QueryEscape(strings.TrimSpace(description))
	}
	if params.AllowsNostr && len(params.NostrPubkey) > 0 {
		id, err := MyIdentity()
		if err != nil {
			return nil, err
		}
		zap, err := library.SignZapRequest(amountMsat, id.Account, params.NostrPubkey, id.PrivateKey,
			"", MakeOrGetConfig().GetStringSlice("relays"), description)
		if err != nil {
			return nil, fmt.Errorf("could not build zap request for %s: %w", address, err)
		}
		zapJSON, err := json.Marshal(zap)
		if err != nil {
			return nil, err
		}
		callback += "&nostr=" + url.QueryEscape(string(zapJSON))
	}
	var invoice lnServiceInvoice
	err = Retry(func() error {
		resp, err := l.client.Get(callback)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("LN service for %s did not produce an invoice: %w", address, err)
	}
	if invoice.Pr == "" {
		return nil, fmt.Errorf("LN service for %s returned an empty invoice", address)
	}
	return l.PayInvoice(invoice.Pr)
}

// lnurlParams resolves a lightning address into its LNURL pay parameters.
func (l *LightningClient) lnurlParams(address library.Lud16) (p lnServicePayResponse, e error) {
	wellKnown, err := lud16ToUrl(address)
	if err != nil {
		return p, err
	}
	lud06, err := lnurl.Encode(wellKnown)
	if err != nil {
		return p, fmt.Errorf("could not encode lnurl for %s: %w", address, err)
	}
	decoded, err := lnurl.LNURLDecode(lud06)
	if err != nil {
		return p, err
	}
	e = Retry(func() error {
		resp, err := l.client.Get(decoded)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &p)
	})
	return p, e
}

func lud16ToUrl(address library.Lud16) (string, error) {
	split := strings.Split(address, "@")
	if len(split) != 2 || len(split[0]) == 0 || len(split[1]) == 0 {
		return "", fmt.Errorf("invalid lightning address %q", address)
	}
	return "https://" + split[1] + "/.well-known/lnurlp/" + split[0], nil
}

func (l *LightningClient) postJSON(path string, key string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", key)
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (l *LightningClient) getJSON(path string, key string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", key)
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
