package oracle

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"EcbBreaker/server/internal/protocol"
)

// Remote queries a challenge session hosted by the gateway.
type Remote struct {
	endpoint string
	client   *http.Client
}

// NewRemote returns an oracle for the challenge session id on the gateway at
// baseURL. A nil client gets a default with a 10 second timeout.
func NewRemote(baseURL, id string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Remote{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/challenges/" + url.PathEscape(id) + "/encrypt",
		client:   client,
	}
}

func (r *Remote) Encrypt(ctx context.Context, input []byte) ([]byte, error) {
	body, err := json.Marshal(protocol.ChallengeEncryptRequest{Input: hex.EncodeToString(input)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote oracle returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out protocol.ChallengeEncryptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid remote oracle response: %w", err)
	}
	ciphertext, err := hex.DecodeString(out.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid remote oracle ciphertext: %w", err)
	}
	return ciphertext, nil
}
