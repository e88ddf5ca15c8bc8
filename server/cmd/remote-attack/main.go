// Command remote-attack recovers the secret of a gateway challenge session
// using nothing but its encrypt endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"EcbBreaker/server/internal/attack"
	"EcbBreaker/server/internal/oracle"
	"EcbBreaker/server/internal/protocol"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "gateway base URL")
	id := flag.String("id", "", "challenge session id; empty creates a new session (needs -token)")
	token := flag.String("token", "", "operator token for creating a session")
	secret := flag.String("secret", "", "secret for a new session; empty uses the server default")
	algorithm := flag.String("algorithm", "AES", "algorithm for a new session")
	workers := flag.Int("workers", 8, "concurrent dictionary queries")
	maxQueries := flag.Int64("max-queries", 0, "query budget, 0 for unlimited")
	verify := flag.Bool("verify", true, "check the recovered secret with the server")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{MaxIdleConnsPerHost: *workers},
	}

	if *id == "" {
		if *token == "" {
			log.Fatal("either -id or -token is required")
		}
		created, err := createSession(ctx, client, *baseURL, *token, protocol.ChallengeCreateRequest{
			Secret:    *secret,
			Algorithm: *algorithm,
		})
		if err != nil {
			log.Fatalf("Failed to create challenge: %v", err)
		}
		fmt.Printf("Created challenge %s (%s, expires %s)\n", created.ID, created.Algorithm,
			time.Unix(created.ExpiresAt, 0).Format(time.RFC3339))
		*id = created.ID
	}

	metered := oracle.NewMetered(oracle.NewRemote(*baseURL, *id, client), *maxQueries)
	breaker := attack.NewBreaker(metered)
	breaker.Workers = *workers
	breaker.Log.Observe(func(index int, message string) {
		fmt.Printf("[%3d] %s\n", index, message)
	})

	start := time.Now()
	report, err := breaker.Run(ctx)
	if err != nil {
		log.Fatalf("Attack failed after %d queries: %v", metered.Queries(), err)
	}

	fmt.Printf("\nRecovered %d/%d bytes in %s (%d queries)\n",
		len(report.Recovery.Secret), report.SecretLength, time.Since(start).Round(time.Millisecond), metered.Queries())
	fmt.Printf("%q\n", report.Recovery.Secret)
	if err := report.Recovery.Err(); err != nil {
		log.Printf("Warning: %v", err)
	}

	if *verify {
		ok, err := verifyGuess(ctx, client, *baseURL, *id, report.Recovery.Secret)
		if err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		fmt.Printf("Server verdict: correct=%t\n", ok)
		if !ok {
			os.Exit(1)
		}
	}
}

func postJSON(ctx context.Context, client *http.Client, url, token string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e protocol.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s: %s", resp.Status, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func createSession(ctx context.Context, client *http.Client, baseURL, token string, req protocol.ChallengeCreateRequest) (*protocol.ChallengeCreateResponse, error) {
	var out protocol.ChallengeCreateResponse
	err := postJSON(ctx, client, strings.TrimRight(baseURL, "/")+"/api/challenges", token, req, &out)
	return &out, err
}

func verifyGuess(ctx context.Context, client *http.Client, baseURL, id string, guess []byte) (bool, error) {
	var out protocol.ChallengeVerifyResponse
	url := strings.TrimRight(baseURL, "/") + "/api/challenges/" + id + "/verify"
	err := postJSON(ctx, client, url, "", protocol.ChallengeVerifyRequest{Guess: hex.EncodeToString(guess)}, &out)
	return out.Correct, err
}
