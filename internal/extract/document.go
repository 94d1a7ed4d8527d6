package extract

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/openclaims/claimlens/internal/jsonx"
	"github.com/openclaims/claimlens/internal/llm"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
)

// truncationMarker flags that the text budget cut the document short.
const truncationMarker = "...[truncated]"

const documentSystemPrompt = "You are an insurance claim document analyst. " +
	"You read claim paperwork and extract factual fields. " +
	"Respond with a single JSON object and nothing else."

const documentUserPrompt = `Read the following claim document and extract its fields.

Return a JSON object with exactly these keys, using null for anything the document does not state:
{
  "claimNumber": string or null,
  "policyNumber": string or null,
  "incidentDate": string or null,
  "incidentLocation": string or null,
  "incidentDescription": string or null,
  "estimatedCost": string or null,
  "claimantName": string or null
}

Document:
`

var documentSchemaKeys = []string{
	"claimNumber", "policyNumber", "incidentDate", "incidentLocation",
	"incidentDescription", "estimatedCost", "claimantName",
}

// DocumentExtractor produces a DocumentRecord per document artifact.
type DocumentExtractor struct {
	log        *logger.Logger
	backend    Backend
	textBudget int
}

// NewDocumentExtractor creates a document extractor. textBudget caps the raw
// text submitted to the model; the cap is a truncation, not a summarization.
func NewDocumentExtractor(log *logger.Logger, backend Backend, textBudget int) *DocumentExtractor {
	if textBudget <= 0 {
		textBudget = 15000
	}
	return &DocumentExtractor{
		log:        log.With("component", "extract.document"),
		backend:    backend,
		textBudget: textBudget,
	}
}

// Extract analyzes one document. Like the vision extractor it never returns
// an error; every failure collapses into the empty record.
func (e *DocumentExtractor) Extract(ctx context.Context, data []byte, mimeHint string, sourceKey string) model.DocumentRecord {
	text := documentText(data, mimeHint)
	if strings.TrimSpace(text) == "" {
		e.log.Warn("document yielded no text", "key", sourceKey)
		return model.EmptyDocumentRecord(sourceKey)
	}
	text = truncate(text, e.textBudget)

	raw, err := e.backend.Complete(ctx, llm.CompletionRequest{
		System: documentSystemPrompt,
		User:   documentUserPrompt + text,
	})
	if err != nil {
		e.log.Warn("document extraction failed", "key", sourceKey, "error", err)
		return model.EmptyDocumentRecord(sourceKey)
	}

	obj, err := jsonx.ExtractObject(raw)
	if err != nil {
		e.log.Warn("document response had no JSON object", "key", sourceKey, "error", err)
		return model.EmptyDocumentRecord(sourceKey)
	}

	if !jsonx.HasKeys(obj, documentSchemaKeys...) {
		e.log.Debug("document payload missed schema keys, using best effort", "key", sourceKey)
	}

	return model.DocumentRecord{
		RawText:   text,
		Fields:    obj,
		SourceKey: sourceKey,
	}
}

// truncate caps s at budget bytes and appends the truncation marker. The cut
// backs off to a rune boundary so a multi-byte rune is never split. The
// remainder is dropped, not summarized.
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	cut := budget
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}

// documentText converts raw document bytes to text. PDFs go through the pdf
// reader; everything else is treated as text with non-printable bytes
// filtered out.
func documentText(data []byte, mimeHint string) string {
	if strings.Contains(mimeHint, "pdf") || bytes.HasPrefix(data, []byte("%PDF")) {
		if text := pdfText(data); text != "" {
			return text
		}
	}
	return printableText(data)
}

func pdfText(data []byte) string {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return ""
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return ""
	}
	return string(out)
}

// printableText keeps valid UTF-8 runes and drops control bytes so scanned
// or oddly-encoded files still produce usable text.
func printableText(data []byte) string {
	var b strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			data = data[1:]
			continue
		}
		if r == '\n' || r == '\t' || r >= ' ' {
			b.WriteRune(r)
		}
		data = data[size:]
	}
	return b.String()
}
