// Package kiteconnect is a typed Go client for the Zerodha Kite Connect REST
// API. It covers session handling (including the fully automated TOTP login
// flow), order placement, positions, margins, historical candles, and LTP
// quotes.
//
// Usage example:
//
//	kc := kiteconnect.New(kiteconnect.Config{
//	    APIKey:     "your_api_key",
//	    APISecret:  "your_api_secret",
//	    UserID:     "AB1234",
//	    Password:   "secret",
//	    TOTPSecret: "BASE32SECRET",
//	})
//	if _, err := kc.GenerateSession(); err != nil { log.Fatal(err) }
//	orderID, err := kc.PlaceOrder(kiteconnect.OrderParams{
//	    Exchange: "NSE", TradingSymbol: "SBIN", TransactionType: "BUY",
//	    Quantity: 1, Product: "MIS", OrderType: "MARKET",
//	})
package kiteconnect

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

const (
	defaultRoot    = "https://api.kite.trade"
	defaultLogin   = "https://kite.zerodha.com"
	defaultTimeout = 7 * time.Second
	kiteVersion    = "3"
)

var routes = map[string]string{
	"session.token":      "/session/token",
	"session.invalidate": "/session/token",

	"user.profile": "/user/profile",
	"user.margins": "/user/margins",

	"order.place": "/orders/regular",
	"orders":      "/orders",

	"portfolio.positions": "/portfolio/positions",

	"market.ltp":        "/quote/ltp",
	"market.historical": "/instruments/historical/%d/%s",
}

// Config holds client credentials and transport settings.
type Config struct {
	APIKey     string
	APISecret  string
	UserID     string
	Password   string
	TOTPSecret string

	AccessToken string // optional: reuse a previously issued token

	RootURL   string        // default: https://api.kite.trade
	LoginURL  string        // default: https://kite.zerodha.com
	Timeout   time.Duration // default: 7s
	TokenFile string        // optional: persist session tokens as JSON
	Debug     bool
}

// Client is a Kite Connect API client. It is not safe for concurrent session
// mutation; callers serialize Connect/Logout (the connection guard does).
type Client struct {
	apiKey     string
	apiSecret  string
	userID     string
	password   string
	totpSecret string

	accessToken string
	publicToken string

	rootURL   string
	loginURL  string
	tokenFile string
	debug     bool

	httpClient *http.Client
}

// New creates a Kite Connect client. If cfg.TokenFile is set, a previously
// saved access token is loaded so a restart can skip the login handshake.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = defaultLogin
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		userID:      cfg.UserID,
		password:    cfg.Password,
		totpSecret:  cfg.TOTPSecret,
		accessToken: cfg.AccessToken,
		rootURL:     strings.TrimRight(cfg.RootURL, "/"),
		loginURL:    strings.TrimRight(cfg.LoginURL, "/"),
		tokenFile:   cfg.TokenFile,
		debug:       cfg.Debug,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
	if c.accessToken == "" && c.tokenFile != "" {
		c.loadToken()
	}
	return c
}

// SetAccessToken overrides the session token (e.g. from an external login).
func (c *Client) SetAccessToken(token string) { c.accessToken = token }

// AccessToken returns the current session token ("" if logged out).
func (c *Client) AccessToken() string { return c.accessToken }

// LoginURL returns the manual login URL for browser-based authentication.
func (c *Client) LoginURL() string {
	return fmt.Sprintf("%s/connect/login?v=%s&api_key=%s", c.loginURL, kiteVersion, c.apiKey)
}

// ---- Session ----

// UserSession is the token set issued on a successful login.
type UserSession struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token"`
	LoginTime   string `json:"login_time"`
}

// GenerateSession performs the fully automated login flow:
// user-id/password login, TOTP two-factor step, request-token capture from
// the connect redirect, and the checksum token exchange. On success the
// client holds a valid access token (persisted to TokenFile if configured).
func (c *Client) GenerateSession() (*UserSession, error) {
	requestToken, err := c.fetchRequestToken()
	if err != nil {
		return nil, fmt.Errorf("automated login: %w", err)
	}
	return c.GenerateSessionWithToken(requestToken)
}

// GenerateSessionWithToken exchanges a request token (from the browser
// redirect or the automated flow) for an access token.
func (c *Client) GenerateSessionWithToken(requestToken string) (*UserSession, error) {
	h := sha256.Sum256([]byte(c.apiKey + requestToken + c.apiSecret))
	form := url.Values{
		"api_key":       {c.apiKey},
		"request_token": {requestToken},
		"checksum":      {hex.EncodeToString(h[:])},
	}

	var sess UserSession
	if err := c.doJSON(http.MethodPost, routes["session.token"], form, &sess); err != nil {
		return nil, err
	}
	c.accessToken = sess.AccessToken
	c.publicToken = sess.PublicToken
	if c.tokenFile != "" {
		c.saveToken()
	}
	log.Printf("[kiteconnect] session generated for %s", sess.UserID)
	return &sess, nil
}

// fetchRequestToken drives the kite.zerodha.com login pages over plain HTTP:
// password login, TOTP twofa, then the connect/login redirect that carries
// request_token in its Location query.
func (c *Client) fetchRequestToken() (string, error) {
	jar, _ := cookiejar.New(nil)
	web := &http.Client{
		Timeout: c.httpClient.Timeout,
		Jar:     jar,
		// The request token lives in a redirect Location; never follow it.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Step 1: user-id + password
	var loginResp struct {
		RequestID string `json:"request_id"`
	}
	if err := c.webPost(web, "/api/login", url.Values{
		"user_id":  {c.userID},
		"password": {c.password},
	}, &loginResp); err != nil {
		return "", fmt.Errorf("password step: %w", err)
	}

	// Step 2: TOTP two-factor
	code, err := totp.GenerateCode(c.totpSecret, time.Now())
	if err != nil {
		return "", fmt.Errorf("totp generate: %w", err)
	}
	if err := c.webPost(web, "/api/twofa", url.Values{
		"user_id":      {c.userID},
		"request_id":   {loginResp.RequestID},
		"twofa_value":  {code},
		"twofa_type":   {"totp"},
		"skip_session": {"true"},
	}, nil); err != nil {
		return "", fmt.Errorf("twofa step: %w", err)
	}

	// Step 3: connect/login issues a redirect whose query holds request_token
	req, err := http.NewRequest(http.MethodGet, c.LoginURL(), nil)
	if err != nil {
		return "", err
	}
	resp, err := web.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	loc := resp.Header.Get("Location")
	for loc != "" {
		u, err := url.Parse(loc)
		if err != nil {
			break
		}
		if tok := u.Query().Get("request_token"); tok != "" {
			return tok, nil
		}
		// Intermediate /connect/finish hop: follow manually.
		if !u.IsAbs() {
			u = resp.Request.URL.ResolveReference(u)
		}
		next, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			break
		}
		r2, err := web.Do(next)
		if err != nil {
			return "", err
		}
		r2.Body.Close()
		resp = r2
		loc = resp.Header.Get("Location")
	}
	return "", errors.New("request token not present in login redirect")
}

// InvalidateSession logs out and clears tokens (and the token file).
func (c *Client) InvalidateSession() error {
	form := url.Values{
		"api_key":      {c.apiKey},
		"access_token": {c.accessToken},
	}
	err := c.doJSON(http.MethodDelete, routes["session.invalidate"], form, nil)
	c.accessToken = ""
	c.publicToken = ""
	if c.tokenFile != "" {
		os.Remove(c.tokenFile)
	}
	return err
}

// Profile fetches the logged-in user profile. Used as a lightweight session check.
func (c *Client) Profile() (*Profile, error) {
	var p Profile
	if err := c.doJSON(http.MethodGet, routes["user.profile"], nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ---- Orders ----

// PlaceOrder submits a regular order and returns the broker order id.
func (c *Client) PlaceOrder(ord OrderParams) (string, error) {
	form := url.Values{
		"exchange":         {ord.Exchange},
		"tradingsymbol":    {ord.TradingSymbol},
		"transaction_type": {ord.TransactionType},
		"quantity":         {fmt.Sprintf("%d", ord.Quantity)},
		"product":          {defaultStr(ord.Product, "MIS")},
		"order_type":       {defaultStr(ord.OrderType, "MARKET")},
		"validity":         {defaultStr(ord.Validity, "DAY")},
	}
	if ord.Price > 0 {
		form.Set("price", fmt.Sprintf("%.2f", ord.Price))
	}

	var out struct {
		OrderID string `json:"order_id"`
	}
	if err := c.doJSON(http.MethodPost, routes["order.place"], form, &out); err != nil {
		return "", err
	}
	return out.OrderID, nil
}

// Orders returns the day's order book.
func (c *Client) Orders() ([]Order, error) {
	var out []Order
	if err := c.doJSON(http.MethodGet, routes["orders"], nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Portfolio & account ----

// Positions returns net positions for the day.
func (c *Client) Positions() ([]Position, error) {
	var out struct {
		Net []Position `json:"net"`
	}
	if err := c.doJSON(http.MethodGet, routes["portfolio.positions"], nil, &out); err != nil {
		return nil, err
	}
	return out.Net, nil
}

// Margins returns equity segment margins.
func (c *Client) Margins() (*Margins, error) {
	var out struct {
		Equity Margins `json:"equity"`
	}
	if err := c.doJSON(http.MethodGet, routes["user.margins"], nil, &out); err != nil {
		return nil, err
	}
	return &out.Equity, nil
}

// ---- Market data ----

// LTP returns the last traded price for one "EXCHANGE:SYMBOL" instrument.
func (c *Client) LTP(instrument string) (float64, error) {
	path := routes["market.ltp"] + "?i=" + url.QueryEscape(instrument)
	var out map[string]struct {
		LastPrice float64 `json:"last_price"`
	}
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	q, ok := out[instrument]
	if !ok {
		return 0, fmt.Errorf("no quote returned for %s", instrument)
	}
	return q.LastPrice, nil
}

// HistoricalCandles fetches OHLCV candles for an instrument token.
// interval is a Kite interval string ("5minute", "day", ...).
func (c *Client) HistoricalCandles(instrumentToken int, interval string, from, to time.Time) ([]HistoricalCandle, error) {
	const layout = "2006-01-02 15:04:05"
	path := fmt.Sprintf(routes["market.historical"], instrumentToken, interval) +
		"?from=" + url.QueryEscape(from.Format(layout)) +
		"&to=" + url.QueryEscape(to.Format(layout))

	// Kite returns candles as positional arrays: [ts, o, h, l, c, vol].
	var out struct {
		Candles [][]json.RawMessage `json:"candles"`
	}
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	candles := make([]HistoricalCandle, 0, len(out.Candles))
	for _, row := range out.Candles {
		if len(row) < 6 {
			continue
		}
		var hc HistoricalCandle
		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			continue
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		hc.TS = t
		json.Unmarshal(row[1], &hc.Open)
		json.Unmarshal(row[2], &hc.High)
		json.Unmarshal(row[3], &hc.Low)
		json.Unmarshal(row[4], &hc.Close)
		json.Unmarshal(row[5], &hc.Volume)
		candles = append(candles, hc)
	}
	return candles, nil
}

// ---- Transport ----

// envelope is the standard Kite API response wrapper.
type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"error_type"`
	Message   string          `json:"message"`
}

func (c *Client) doJSON(method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil && method != http.MethodGet {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequest(method, c.rootURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Kite-Version", kiteVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "token "+c.apiKey+":"+c.accessToken)
	}

	if c.debug {
		log.Printf("[kiteconnect] %s %s", method, path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Status != "success" || resp.StatusCode >= 400 {
		return &APIError{
			Code:      resp.StatusCode,
			ErrorType: env.ErrorType,
			Message:   env.Message,
		}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// webPost posts form data to the kite.zerodha.com web endpoints used by the
// automated login flow.
func (c *Client) webPost(web *http.Client, path string, form url.Values, out any) error {
	resp, err := web.PostForm(c.loginURL+path, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("parse login response (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Status != "success" {
		return &APIError{Code: resp.StatusCode, ErrorType: env.ErrorType, Message: env.Message}
	}
	if out != nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// ---- Token persistence ----

type tokenFileData struct {
	APIKey      string `json:"api_key"`
	AccessToken string `json:"access_token"`
}

func (c *Client) saveToken() {
	data, _ := json.Marshal(tokenFileData{APIKey: c.apiKey, AccessToken: c.accessToken})
	if err := os.WriteFile(c.tokenFile, data, 0o600); err != nil {
		log.Printf("[kiteconnect] failed to save token: %v", err)
	}
}

func (c *Client) loadToken() {
	raw, err := os.ReadFile(c.tokenFile)
	if err != nil {
		return
	}
	var td tokenFileData
	if err := json.Unmarshal(raw, &td); err != nil {
		return
	}
	// Tokens are key-specific; ignore a file written for another app.
	if td.APIKey == c.apiKey && td.AccessToken != "" {
		c.accessToken = td.AccessToken
		log.Printf("[kiteconnect] access token loaded from %s", c.tokenFile)
	}
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
