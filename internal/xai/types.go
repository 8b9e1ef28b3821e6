package xai

// API request/response types for the xAI chat completions endpoint.

type chatRequest struct {
	Messages         []chatMessage    `json:"messages"`
	SearchParameters searchParameters `json:"search_parameters"`
	Model            string           `json:"model"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// searchParameters enables xAI live search. Mode is "on" or "auto".
type searchParameters struct {
	Mode string `json:"mode"`
}

// Completion is the outcome of a successful request.
type Completion struct {
	// Text is the first choice's content, or the compacted response JSON
	// when the response carries no content.
	Text string

	// Raw is the response body as received.
	Raw []byte

	// Fallback is true when Text is the serialized payload.
	Fallback bool
}
