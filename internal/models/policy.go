package models

import "time"

// CaptureMethod records which scraping path produced a policy's content.
type CaptureMethod string

const (
	// MethodHTTP is the fast path: a plain HTTP fetch of the raw HTML.
	MethodHTTP CaptureMethod = "http"
	// MethodBrowser is the slow path: full headless-browser rendering.
	MethodBrowser CaptureMethod = "browser"
)

// Policy is the persisted privacy-policy record.
type Policy struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	SourceURL string        `json:"source_url"`
	Content   string        `json:"content"`
	Category  string        `json:"category"`
	Method    CaptureMethod `json:"method,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PolicyUpdate carries a partial update. Nil fields are left untouched.
type PolicyUpdate struct {
	Title     *string        `json:"title,omitempty"`
	SourceURL *string        `json:"source_url,omitempty"`
	Content   *string        `json:"content,omitempty"`
	Category  *string        `json:"category,omitempty"`
	Method    *CaptureMethod `json:"method,omitempty"`
}

// ScrapeResult is the outcome of scraping one URL. On success Policy holds
// the extracted title/content/source URL/capture method; timestamps and id
// are assigned later by the store.
type ScrapeResult struct {
	Success bool    `json:"success"`
	Policy  *Policy `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Classification is the label + self-reported confidence returned by the
// classifier. It is consumed immediately during ingestion, never persisted
// on its own.
type Classification struct {
	Category   string `json:"category"`
	Confidence int    `json:"confidence"`
}

// CategoryOther is the catch-all label and the fallback for anything the
// classifier cannot place.
const CategoryOther = "OUTROS"

// Categories is the fixed taxonomy policies are classified into. The labels
// are stored verbatim, so they must match what the classifier prompt
// enumerates.
var Categories = []string{
	"DADOS PESSOAIS GERAIS",
	"DADOS FINANCEIROS",
	"DADOS LOCALIZACAO",
	"COOKIES TRACKING",
	"MARKETING PUBLICIDADE",
	"COMPARTILHAMENTO TERCEIROS",
	"SEGURANCA PROTECAO",
	"DIREITOS USUARIO",
	"RETENCAO DADOS",
	"MENORES IDADE",
	"TRANSFERENCIA INTERNACIONAL",
	CategoryOther,
}

// IsCategory reports whether label belongs to the fixed taxonomy.
func IsCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}
