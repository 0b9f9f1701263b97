package extraction

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// Method selects which extraction path the router dispatches to.
type Method string

const (
	MethodDocling     Method = "docling"
	MethodLangExtract Method = "langextract"
	MethodAuto        Method = "auto"
)

var transientMarkers = []string{"503", "429", "timeout", "overloaded", "rate limit"}

// isTransient classifies an error by its printable, lowercased form,
// per the substring rule. The Open Question on structured-kind-first
// classification is resolved here: a *domain-level transient marker set
// directly on the error (none exists upstream in this pack) would be
// checked first, but since no client here surfaces a structured kind,
// substring matching is the only classifier in play.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryConfig parameterizes the exponential-backoff retry budget for
// the langextract and auto methods.
type RetryConfig struct {
	Base     time.Duration
	MaxWait  time.Duration
	Attempts int
}

// DefaultRetryConfig matches the documented defaults: base=4s,
// max_wait=60s, attempts=3.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Base: 4 * time.Second, MaxWait: 60 * time.Second, Attempts: 3}
}

func (c RetryConfig) wait(attempt int) time.Duration {
	d := time.Duration(float64(c.Base) * math.Pow(2, float64(attempt-1)))
	if d > c.MaxWait {
		d = c.MaxWait
	}
	return d
}

// Output is C3's contract result: the reconciled-pending borrower list
// plus bookkeeping for validation errors, alignment warnings, and which
// method actually ran.
type Output struct {
	Borrowers         []domain.BorrowerRecord
	ValidationErrors  []domain.ValidationError
	AlignmentWarnings []string
	MethodUsed        Method
	InputTokens       int
	OutputTokens      int
	Complexity        ComplexityAssessment
}

// Router implements C3: method selection, transient/fatal
// classification, and the exponential-backoff retry budget, each
// `Extract` call isolated to its own fresh retry counter.
type Router struct {
	Docling     *Extractor
	CharGround  *CharExtractor
	RetryConfig RetryConfig
	Sleep       func(time.Duration)
	logger      *logging.Logger
}

// NewRouter wires a Router from its collaborators.
func NewRouter(docling *Extractor, charGround *CharExtractor, retry RetryConfig) *Router {
	return &Router{
		Docling:     docling,
		CharGround:  charGround,
		RetryConfig: retry,
		Sleep:       time.Sleep,
		logger:      logging.NewLogger("ExtractionRouter"),
	}
}

// Extract dispatches content through the requested method.
func (r *Router) Extract(ctx context.Context, content domain.DocumentContent, documentID, documentName string, method Method) (Output, error) {
	switch method {
	case MethodDocling:
		return r.runDocling(ctx, content, documentID, documentName)
	case MethodLangExtract:
		return r.runLangExtractOrRaise(ctx, content, documentID, documentName)
	default:
		return r.runAuto(ctx, content, documentID, documentName)
	}
}

func (r *Router) runDocling(ctx context.Context, content domain.DocumentContent, documentID, documentName string) (Output, error) {
	borrowers, assessment, verrs, inTok, outTok, err := r.Docling.Extract(ctx, content, documentID, documentName)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Borrowers:        borrowers,
		ValidationErrors: verrs,
		MethodUsed:       MethodDocling,
		InputTokens:      inTok,
		OutputTokens:     outTok,
		Complexity:       assessment,
	}, nil
}

// runLangExtractOrRaise retries transient failures up to the budget
// then raises (never falls back) on exhaustion or a fatal error.
func (r *Router) runLangExtractOrRaise(ctx context.Context, content domain.DocumentContent, documentID, documentName string) (Output, error) {
	result, err := r.attemptCharGround(ctx, content, documentID, documentName)
	if err != nil {
		return Output{}, fmt.Errorf("extraction router: langextract exhausted: %w", err)
	}
	return result, nil
}

// runAuto attempts langextract with the retry budget; on unrecoverable
// failure it falls back to the docling path rather than raising.
func (r *Router) runAuto(ctx context.Context, content domain.DocumentContent, documentID, documentName string) (Output, error) {
	result, err := r.attemptCharGround(ctx, content, documentID, documentName)
	if err == nil {
		return result, nil
	}
	r.logger.Warn("langextract path exhausted, falling back to docling", "error", err)
	return r.runDocling(ctx, content, documentID, documentName)
}

// attemptCharGround runs the char-grounded extractor with a fresh
// retry counter local to this call.
func (r *Router) attemptCharGround(ctx context.Context, content domain.DocumentContent, documentID, documentName string) (Output, error) {
	var lastErr error
	for attempt := 1; attempt <= r.RetryConfig.Attempts; attempt++ {
		result, err := r.CharGround.Extract(ctx, content, documentID, documentName)
		if err == nil {
			return Output{
				Borrowers:         result.Borrowers,
				AlignmentWarnings: result.AlignmentWarnings,
				MethodUsed:        MethodLangExtract,
				InputTokens:       result.InputTokens,
				OutputTokens:      result.OutputTokens,
			}, nil
		}

		lastErr = err
		if !isTransient(err) {
			return Output{}, fmt.Errorf("fatal extraction error: %w", err)
		}
		if attempt == r.RetryConfig.Attempts {
			break
		}

		wait := r.RetryConfig.wait(attempt)
		r.logger.Warn("transient extraction error, retrying", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return Output{}, ctx.Err()
		default:
			r.Sleep(wait)
		}
	}
	return Output{}, lastErr
}
