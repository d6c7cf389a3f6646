package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "pixtral-large-latest"
)

// tableSeparator matches markdown table rules such as "|---|:--:|".
var tableSeparator = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)

// MistralOCR extracts text from scanned PDFs using the Mistral OCR API.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewMistralOCR creates a MistralOCR extractor. If model is empty, the default is used.
func NewMistralOCR(apiKey, model string) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// ExtractLines implements Extractor. Markdown table rows become lines whose
// cells are separated by a column gap; table rules are dropped.
func (m *MistralOCR) ExtractLines(ctx context.Context, pdfPath string) ([]string, error) {
	text, err := m.ExtractText(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	lines := SplitLines(text)
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(l, "|") {
			if tableSeparator.MatchString(l) {
				continue
			}
			l = tableRowToLine(l)
		}
		out = append(out, l)
	}
	return out, nil
}

func tableRowToLine(row string) string {
	row = strings.Trim(row, "|")
	cells := make([]string, 0, 8)
	for _, c := range strings.Split(row, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return strings.Join(cells, columnGap)
}

// ExtractText reads a PDF file, sends it to Mistral OCR, and returns the
// markdown of every page in page order.
func (m *MistralOCR) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read PDF %s", pdfPath)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	dataURL := "data:application/pdf;base64," + encoded

	reqBody := mistralOCRRequest{
		Model: m.model,
		Document: mistralOCRDocument{
			Type:        "document_url",
			DocumentURL: dataURL,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "ocr: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "ocr: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ocr: mistral API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ocr: read mistral response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("ocr: mistral API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", eris.Wrap(err, "ocr: unmarshal mistral response")
	}

	var sb strings.Builder
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Markdown)
	}

	return sb.String(), nil
}
