package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/manash/ladmaker/internal/provider"
	"github.com/manash/ladmaker/pkg/models"
)

func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (models.Output, error) {
	if err := req.Validate(); err != nil {
		return models.Output{}, err
	}

	body, contentType, err := buildMultipartBody(req)
	if err != nil {
		return models.Output{}, err
	}

	url := p.baseURL + editsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return models.Output{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.logMultipartRequest(http.MethodPost, url, httpReq.Header, req)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return models.Output{}, fmt.Errorf("%w: %v", provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Output{}, fmt.Errorf("%w: failed to read response: %v", provider.ErrTransport, err)
	}

	p.logResponse(resp.StatusCode, resp.Header, bodyBytes)

	return parseResponse(resp.StatusCode, bodyBytes)
}

func buildMultipartBody(req *models.EditRequest) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", req.Model); err != nil {
		return nil, "", fmt.Errorf("failed to write model: %w", err)
	}

	if err := writer.WriteField("prompt", req.Prompt); err != nil {
		return nil, "", fmt.Errorf("failed to write prompt: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, req.Filename))
	header.Set("Content-Type", req.MIMEType)
	imagePart, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := imagePart.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}

	if req.Size != "" {
		if err := writer.WriteField("size", req.Size); err != nil {
			return nil, "", fmt.Errorf("failed to write size: %w", err)
		}
	}

	if req.Quality != "" {
		if err := writer.WriteField("quality", req.Quality); err != nil {
			return nil, "", fmt.Errorf("failed to write quality: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
