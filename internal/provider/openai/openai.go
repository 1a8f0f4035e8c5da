package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/manash/ladmaker/internal/provider"
	"github.com/manash/ladmaker/pkg/models"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	editsPath      = "/images/edits"
)

type apiResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Error   *apiError   `json:"error,omitempty"`
}

type imageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
	verbose    bool
}

func New(cfg *provider.Config, log *zap.SugaredLogger) (*Provider, error) {
	if err := provider.CheckCredential(cfg.APIKey); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log:     log.Named("openai"),
		verbose: cfg.Verbose,
	}, nil
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderOpenAI
}

// parseResponse maps a raw HTTP exchange onto the first normalized output.
func parseResponse(statusCode int, body []byte) (models.Output, error) {
	var apiResp apiResponse
	parseErr := json.Unmarshal(body, &apiResp)

	if statusCode < 200 || statusCode > 299 {
		if parseErr == nil && apiResp.Error != nil && apiResp.Error.Message != "" {
			return models.Output{}, fmt.Errorf("%w: %s", provider.ErrRemote, apiResp.Error.Message)
		}
		return models.Output{}, fmt.Errorf("%w: status %d", provider.ErrRemote, statusCode)
	}

	if parseErr != nil {
		return models.Output{}, fmt.Errorf("%w: failed to parse response: %v", provider.ErrRemote, parseErr)
	}

	if apiResp.Error != nil {
		return models.Output{}, fmt.Errorf("%w: %s", provider.ErrRemote, apiResp.Error.Message)
	}

	if len(apiResp.Data) == 0 {
		return models.Output{}, provider.ErrNoImageData
	}

	return normalize(apiResp.Data[0])
}

func normalize(data imageData) (models.Output, error) {
	switch {
	case data.URL != "":
		return models.Hosted(data.URL), nil
	case data.B64JSON != "":
		decoded, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return models.Output{}, fmt.Errorf("%w: %v", provider.ErrInlineDecode, err)
		}
		return models.Inline(decoded), nil
	default:
		return models.Output{}, provider.ErrNoImageSource
	}
}

func (p *Provider) logMultipartRequest(method, url string, headers http.Header, req *models.EditRequest) {
	if !p.verbose {
		return
	}

	p.log.Debugw("request",
		"method", method,
		"url", url,
		"headers", redactHeaders(headers),
		"model", req.Model,
		"prompt_chars", len(req.Prompt),
		"image_bytes", len(req.Image),
		"image_type", req.MIMEType,
		"size", req.Size,
		"quality", req.Quality,
	)
}

func (p *Provider) logResponse(statusCode int, headers http.Header, body []byte) {
	if !p.verbose {
		return
	}

	p.log.Debugw("response",
		"status", statusCode,
		"headers", flattenHeaders(headers),
		"body", string(truncateBase64InJSON(body)),
	)
}

func redactHeaders(headers http.Header) map[string]string {
	out := flattenHeaders(headers)
	for key := range out {
		if strings.EqualFold(key, "authorization") {
			out[key] = "[REDACTED]"
		}
	}
	return out
}

func flattenHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		out[key] = strings.Join(values, ", ")
	}
	return out
}

func truncateBase64InJSON(body []byte) []byte {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	truncateBase64Fields(data)

	result, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return result
}

func truncateBase64Fields(data map[string]interface{}) {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if key == "b64_json" && len(v) > 100 {
				data[key] = v[:100] + "... [truncated]"
			}
		case map[string]interface{}:
			truncateBase64Fields(v)
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					truncateBase64Fields(m)
				}
			}
		}
	}
}
