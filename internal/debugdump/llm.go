package debugdump

import (
	"encoding/json"
	"time"
)

// LLMExchange represents a prompt/response pair sent to an analysis backend
type LLMExchange struct {
	Timestamp   time.Time `json:"timestamp"`
	Provider    string    `json:"provider"` // e.g. "gemini"
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	BlockReason string    `json:"block_reason,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// SaveLLMExchange writes an exchange to the llm directory.
func (d *Dumper) SaveLLMExchange(exchange LLMExchange) (string, error) {
	if !d.Enabled() {
		return "", nil
	}

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}
	return d.write(StepLLM, d.generateFilename(exchange.Provider, ".json"), data)
}
