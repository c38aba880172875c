package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Response is the audio payload of a successful synthesis call. The engine
// answers with either a JSON document pointing at a hosted audio URL or
// streamed audio bytes. The shape is decided once here, at the API
// boundary, instead of duck-typing the payload throughout the pipeline.
type Response struct {
	url    string
	stream io.ReadCloser
}

func URLResponse(url string) Response         { return Response{url: url} }
func StreamResponse(r io.ReadCloser) Response { return Response{stream: r} }

// parseResponse classifies a successful HTTP response by content type.
func parseResponse(resp *http.Response) (Response, error) {
	contentType := resp.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/json") {
		var payload struct {
			AudioURL string `json:"audio_url"`
			URL      string `json:"url"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return Response{}, fmt.Errorf("decode speech generation response: %w", err)
		}

		url := payload.AudioURL
		if url == "" {
			url = payload.URL
		}
		if url == "" {
			return Response{}, fmt.Errorf("speech generation response contains no audio url")
		}

		return URLResponse(url), nil
	}

	// Audio content types arrive as a stream over the response body; the
	// caller resolves it before the body is closed.
	return StreamResponse(resp.Body), nil
}

// WaveData resolves the response to raw audio bytes, fetching hosted audio
// or draining a stream as needed.
func (r Response) WaveData(ctx context.Context, client *http.Client) ([]byte, error) {
	switch {
	case r.stream != nil:
		defer r.stream.Close()

		data, err := io.ReadAll(r.stream)
		if err != nil {
			return nil, fmt.Errorf("read speech stream: %w", err)
		}

		return data, nil
	case r.url != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
		if err != nil {
			return nil, fmt.Errorf("build audio download request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download generated audio: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, newError(resp)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read downloaded audio: %w", err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("empty speech generation response")
}
