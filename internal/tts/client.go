// Package tts calls the remote text-to-speech engine, one request per text
// segment, and resolves every response shape the engine may answer with
// into a plain WAV byte buffer.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lunareadings/narrator/internal/model"
)

// Request is one synthesis call for a single text segment.
type Request struct {
	Text  string
	Voice model.VoiceSpec
}

type Client struct {
	URL     string
	Model   string
	APIKey  string
	Client  *http.Client
	Timeout time.Duration // hard per-call timeout; a hung call must not hang the job
}

// Synthesize sends one segment to the engine and returns the audio buffer.
// Failures are returned as *Error carrying the HTTP status and any
// server-provided retry delay, so the caller's retry policy can classify
// them.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	params := map[string]interface{}{
		"input": req.Text,
		"model": c.Model,
	}

	if req.Voice.Name != "" {
		params["voice"] = req.Voice.Name
	}
	if req.Voice.SampleURL != "" {
		params["voice_sample_url"] = req.Voice.SampleURL
	}
	if req.Voice.Speed > 0 {
		params["speed"] = req.Voice.Speed
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal speech generation params: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech generation request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(resp)
	}

	audioResp, err := parseResponse(resp)
	if err != nil {
		return nil, err
	}

	return audioResp.WaveData(ctx, c.Client)
}

// newError reads the failed response into an *Error, including the
// Retry-After header when the server provides one.
func newError(resp *http.Response) *Error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	e := &Error{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(msg)),
	}

	if after := resp.Header.Get("Retry-After"); after != "" {
		if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(after); err == nil {
			e.RetryAfter = time.Until(at)
		}
	}

	return e
}

// Error is a failed remote synthesis call.
type Error struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("speech generation: server responded with %d", e.StatusCode)
	}

	return fmt.Sprintf("speech generation: server responded with %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the call may succeed when repeated.
// Authentication and malformed-request failures cannot, and retrying them
// only burns the retry budget and rate-limit headroom.
func (e *Error) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}

	return e.StatusCode >= 500
}

// RetryDelayHint exposes the server-provided retry delay to the retry
// policy.
func (e *Error) RetryDelayHint() time.Duration {
	return e.RetryAfter
}
