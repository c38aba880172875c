package config

type Configuration struct {
	ServerURL      string  `json:"serverURL"`
	APIKey         string  `json:"apiKey,omitempty"`
	Model          string  `json:"model,omitempty"`
	Voice          string  `json:"voice,omitempty"`
	VoiceSampleURL string  `json:"voiceSampleURL,omitempty"`
	Speed          float64 `json:"speed,omitempty"`

	MaxChunkLen    int `json:"maxChunkLen,omitempty"`
	FadeMs         int `json:"fadeMs,omitempty"`
	MaxAttempts    int `json:"maxAttempts,omitempty"`
	RequestTimeout int `json:"requestTimeout,omitempty"` // seconds
	RetryDelay     int `json:"retryDelay,omitempty"`     // seconds
	RequestDelay   int `json:"requestDelay,omitempty"`   // milliseconds
	Concurrency    int `json:"concurrency,omitempty"`

	Bitrate       string `json:"bitrate,omitempty"`
	IntroTemplate string `json:"introTemplate,omitempty"`
}
