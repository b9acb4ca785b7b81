package models

// AskRequest for POST /api/v1/ask
type AskRequest struct {
	Question string `json:"question"`
	// Timeout bounds the whole conversation, in seconds.
	Timeout int `json:"timeout"`
}

func (r *AskRequest) SetDefaults() {
	if r.Timeout == 0 {
		r.Timeout = 120
	}
	if r.Timeout < 10 {
		r.Timeout = 10
	}
	if r.Timeout > 600 {
		r.Timeout = 600
	}
}
