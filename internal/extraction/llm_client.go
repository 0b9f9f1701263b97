package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ModelTier selects which LLM tier a chunk is routed to.
type ModelTier string

const (
	TierFlash ModelTier = "flash"
	TierPro   ModelTier = "pro"
)

// ExtractedAddress mirrors the LLM's structured address output.
type ExtractedAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// ExtractedIncome mirrors the LLM's structured income-record output.
//
// Amount is carried as the raw string the model returned (it may include
// a currency symbol or thousands separators) rather than a parsed
// number, so the converter can apply the documented stripping rule
// itself instead of trusting JSON-number coercion to have done it.
type ExtractedIncome struct {
	Amount     string `json:"amount"`
	Period     string `json:"period"`
	Year       int    `json:"year"`
	SourceType string `json:"source_type"`
	Employer   string `json:"employer"`
}

// ExtractedBorrower is the raw, unvalidated shape the LLM returns for
// one borrower before conversion into domain.BorrowerRecord.
type ExtractedBorrower struct {
	Name           string             `json:"name"`
	SSN            string             `json:"ssn"`
	Phone          string             `json:"phone"`
	Email          string             `json:"email"`
	Address        *ExtractedAddress  `json:"address"`
	IncomeHistory  []ExtractedIncome  `json:"income_history"`
	AccountNumbers []string           `json:"account_numbers"`
	LoanNumbers    []string           `json:"loan_numbers"`
}

// ExtractionResponse is the LLM call's structured result plus token
// accounting.
type ExtractionResponse struct {
	Borrowers    []ExtractedBorrower `json:"borrowers"`
	InputTokens  int                 `json:"input_tokens"`
	OutputTokens int                 `json:"output_tokens"`
}

const systemInstruction = `You extract borrower identity, contact, and income data from mortgage ` +
	`loan documents. Return only borrowers explicitly present in the text. Never infer or ` +
	`fabricate values not stated in the document.`

// requestTemperature is fixed at the model family's required value for
// structured extraction, per the target family's documented default.
const requestTemperature = 1.0

// LLMClient performs structured-extraction calls against the
// configured LLM service.
type LLMClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewLLMClient builds an LLMClient.
func NewLLMClient(baseURL, token string, timeout time.Duration) *LLMClient {
	return &LLMClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: timeout}}
}

type extractionRequest struct {
	SystemInstruction string    `json:"system_instruction"`
	Text              string    `json:"text"`
	Tier              ModelTier `json:"tier"`
	Temperature       float64   `json:"temperature"`
	ResponseSchema    string    `json:"response_schema"`
}

// responseSchemaName names the JSON schema the service coerces its
// output into; the router never parses free-form text.
const responseSchemaName = "BorrowerExtractionResult"

// Extract sends chunkText for structured extraction at the given tier.
func (c *LLMClient) Extract(ctx context.Context, chunkText string, tier ModelTier) (ExtractionResponse, error) {
	reqBody := extractionRequest{
		SystemInstruction: systemInstruction,
		Text:              chunkText,
		Tier:              tier,
		Temperature:       requestTemperature,
		ResponseSchema:    responseSchemaName,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ExtractionResponse{}, fmt.Errorf("llm client: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return ExtractionResponse{}, fmt.Errorf("llm client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ExtractionResponse{}, fmt.Errorf("llm client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return ExtractionResponse{}, fmt.Errorf("llm client: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed ExtractionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ExtractionResponse{}, fmt.Errorf("llm client: decode response: %w", err)
	}
	return parsed, nil
}
