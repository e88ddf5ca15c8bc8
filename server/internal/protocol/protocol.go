package protocol

import (
	"time"
)

// EncryptionAlgorithm type for available algorithms
type EncryptionAlgorithm string

const (
	AES EncryptionAlgorithm = "AES"
	DES EncryptionAlgorithm = "DES"
	RC6 EncryptionAlgorithm = "RC6"
)

// EncryptionMode type for block cipher modes
type EncryptionMode string

const (
	ECB EncryptionMode = "ECB"
	CBC EncryptionMode = "CBC"
)

// PaddingMode type for padding schemes
type PaddingMode string

const (
	Zeros    PaddingMode = "ZEROS"
	PKCS7    PaddingMode = "PKCS7"
	ANSI     PaddingMode = "ANSI_X923"
	ISO10126 PaddingMode = "ISO_10126"
)

// WebSocket event types
const (
	EventRunStarted  = "run_started"
	EventStep        = "step"
	EventRunFinished = "run_finished"
	EventRunFailed   = "run_failed"
)

// WebSocket timings
const (
	PongWait   = 60 * time.Second
	PingPeriod = 30 * time.Second
	WriteWait  = 10 * time.Second
)

// DemoRequest is the JSON body of POST /api/demo/run. The key is hex encoded.
type DemoRequest struct {
	KeyHex        string `json:"key"`
	AttackerInput string `json:"attacker_input"`
	Unknown       string `json:"unknown"`
	Algorithm     string `json:"algorithm,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Padding       string `json:"padding,omitempty"`
}

// DemoResponse is the result of a demo run, byte fields hex encoded.
type DemoResponse struct {
	RunID         string   `json:"run_id"`
	Ciphertext    string   `json:"ciphertext"`
	Recovered     string   `json:"recovered"`
	RecoveredText string   `json:"recovered_text"`
	Steps         []string `json:"steps"`
	Complete      bool     `json:"complete"`
	BlockSize     int      `json:"block_size"`
	SecretLength  int      `json:"secret_length"`
	Queries       int64    `json:"queries"`
}

// RunRecord is the persisted summary of a demo run. It never carries the key
// or the secret.
type RunRecord struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	Algorithm      string    `json:"algorithm"`
	Mode           string    `json:"mode"`
	Padding        string    `json:"padding"`
	BlockSize      int       `json:"block_size"`
	SecretLength   int       `json:"secret_length"`
	RecoveredBytes int       `json:"recovered_bytes"`
	Complete       bool      `json:"complete"`
	Queries        int64     `json:"queries"`
	Steps          int       `json:"steps"`
	CreatedAt      time.Time `json:"created_at"`
}

// Operator is a user allowed to create challenges and read run history.
type Operator struct {
	ID             int64
	Username       string
	HashedPassword string
	CreatedAt      int64
}

// ChallengeCreateRequest is the JSON body of POST /api/challenges.
type ChallengeCreateRequest struct {
	Secret    string `json:"secret"`
	Algorithm string `json:"algorithm,omitempty"`
	Padding   string `json:"padding,omitempty"`
}

// ChallengeCreateResponse identifies a hidden oracle session.
type ChallengeCreateResponse struct {
	ID        string `json:"id"`
	Algorithm string `json:"algorithm"`
	ExpiresAt int64  `json:"expires_at"`
}

// ChallengeEncryptRequest carries hex encoded attacker input.
type ChallengeEncryptRequest struct {
	Input string `json:"input"`
}

// ChallengeEncryptResponse carries the hex encoded ciphertext.
type ChallengeEncryptResponse struct {
	Ciphertext string `json:"ciphertext"`
}

// ChallengeVerifyRequest carries a hex encoded guess of the secret.
type ChallengeVerifyRequest struct {
	Guess string `json:"guess"`
}

// ChallengeVerifyResponse reports whether the guess matched.
type ChallengeVerifyResponse struct {
	Correct bool `json:"correct"`
}

// WebSocketEvent represents a real-time event sent to clients
type WebSocketEvent struct {
	Type  string      `json:"type"`
	RunID string      `json:"run_id"`
	Data  interface{} `json:"data,omitempty"`
}

// StepEvent is the payload of an EventStep event.
type StepEvent struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON body of failed API calls.
type ErrorResponse struct {
	Error string `json:"error"`
}
