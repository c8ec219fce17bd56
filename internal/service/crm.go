package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wacrm-bridge/internal/model"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a webhook
// secret is configured.
const SignatureHeader = "X-Bridge-Signature"

// Notifier records interactions in the CRM. Notify never reports
// failure to the caller.
type Notifier interface {
	Notify(in model.Interaction)
}

type CRMNotifier struct {
	url    string
	secret string
	client *http.Client
	log    zerolog.Logger

	wg sync.WaitGroup
}

func NewCRMNotifier(url, secret string, timeout time.Duration, log zerolog.Logger) *CRMNotifier {
	return &CRMNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Notify posts the interaction in the background. Errors are logged and
// dropped; there is no retry.
func (n *CRMNotifier) Notify(in model.Interaction) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		logEvt := n.log.With().
			Str("phone", in.Phone).
			Str("origin", in.Origin).
			Str("type", string(in.Type)).
			Logger()

		if err := n.post(in); err != nil {
			logEvt.Error().Err(err).Msg("crm interaction not recorded")
			return
		}
		logEvt.Info().Msg("crm interaction recorded")
	}()
}

// Wait blocks until in-flight notifications finish.
func (n *CRMNotifier) Wait() {
	n.wg.Wait()
}

func (n *CRMNotifier) post(in model.Interaction) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if n.secret != "" {
		mac := hmac.New(sha256.New, []byte(n.secret))
		mac.Write(body)
		req.Header.Set(SignatureHeader, hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("crm responded %s", resp.Status)
	}
	return nil
}
