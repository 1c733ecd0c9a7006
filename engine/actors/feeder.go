package actors

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// FeederClient drives the physical feeder and its counters through the
// OpenHAB REST API.
type FeederClient struct {
	baseURL string
	auth    string
	rule    string
	client  *http.Client
}

func NewFeederClient() *FeederClient {
	conf := MakeOrGetConfig()
	return &FeederClient{
		baseURL: strings.TrimRight(conf.GetString("openhabUrl"), "/"),
		auth:    conf.GetString("openhabAuth"),
		rule:    conf.GetString("feederRule"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// OverrideStatus reports whether the manual feeder override switch is ON.
func (f *FeederClient) OverrideStatus() (bool, error) {
	var state string
	err := Retry(func() error {
		s, err := f.getItemState("FeederOverride")
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("could not read feeder override: %w", err)
	}
	return state == "ON", nil
}

// Trigger runs the feeder rule once.
func (f *FeederClient) Trigger() error {
	err := Retry(func() error {
		req, err := http.NewRequest(http.MethodPost, f.baseURL+"/rest/rules/"+f.rule+"/runnow", nil)
		if err != nil {
			return err
		}
		req.SetBasicAuth(f.auth, "")
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("feeder rule returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not trigger feeder: %w", err)
	}
	return nil
}

// UpdateGoatSats adds satsReceived to the running sats counter and returns
// the new total.
func (f *FeederClient) UpdateGoatSats(satsReceived int64) (int64, error) {
	current, err := f.GoatSatsToday()
	if err != nil {
		return 0, err
	}
	total := current + satsReceived
	err = Retry(func() error {
		return f.putItemState("GoatSats", strconv.FormatInt(total, 10))
	})
	if err != nil {
		return 0, fmt.Errorf("could not update sats counter: %w", err)
	}
	return total, nil
}

// GoatSatsToday returns the current value of the sats counter. A counter
// holding junk counts as zero rather than an error.
func (f *FeederClient) GoatSatsToday() (int64, error) {
	var state string
	err := Retry(func() error {
		s, err := f.getItemState("GoatSats")
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("could not read sats counter: %w", err)
	}
	parsed, err := strconv.ParseFloat(state, 64)
	if err != nil {
		return 0, nil
	}
	return int64(parsed), nil
}

// FetchBTCPrice returns the BTC price the automation system tracks.
func (f *FeederClient) FetchBTCPrice() (float64, error) {
	var state string
	err := Retry(func() error {
		s, err := f.getItemState("BTC_Price_Output")
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("could not fetch BTC price: %w", err)
	}
	price, err := strconv.ParseFloat(state, 64)
	if err != nil {
		return 0, fmt.Errorf("BTC price item holds %q: %w", state, err)
	}
	return price, nil
}

// ConvertToSats converts a USD amount to sats at the current tracked price.
func (f *FeederClient) ConvertToSats(usd float64) (int64, error) {
	price, err := f.FetchBTCPrice()
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("BTC price is %f, refusing to convert", price)
	}
	return int64(math.Round(usd / price * 100_000_000)), nil
}

func (f *FeederClient) getItemState(item string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, f.baseURL+"/rest/items/"+item+"/state", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(f.auth, "")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("item %s returned status %d", item, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (f *FeederClient) putItemState(item string, state string) error {
	req, err := http.NewRequest(http.MethodPut, f.baseURL+"/rest/items/"+item+"/state", strings.NewReader(state))
	if err != nil {
		return err
	}
	req.SetBasicAuth(f.auth, "")
	req.Header.Set("Content-Type", "text/plain")
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("item %s update returned status %d", item, resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
