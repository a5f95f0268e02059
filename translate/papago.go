package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"overlay-gpt/internal/constants"
)

// PapagoTranslator calls the Naver Papago NMT API.
type PapagoTranslator struct {
	client  *retryablehttp.Client
	baseURL string
}

type papagoResponse struct {
	Message struct {
		Result struct {
			SrcLangType    string `json:"srcLangType"`
			TarLangType    string `json:"tarLangType"`
			TranslatedText string `json:"translatedText"`
		} `json:"result"`
	} `json:"message"`
}

// NewPapagoTranslator creates a client authenticated with the Naver Cloud
// API gateway key pair. An empty baseURL uses the public endpoint.
func NewPapagoTranslator(clientID, clientSecret, baseURL string, maxRetries int) (*PapagoTranslator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("missing required Papago credentials")
	}
	if baseURL == "" {
		baseURL = constants.DefaultPapagoURL
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = newHTTPClientWithHeaders(map[string]string{
		"X-NCP-APIGW-API-KEY-ID": clientID,
		"X-NCP-APIGW-API-KEY":    clientSecret,
	})
	client.HTTPClient.Timeout = 30 * time.Second
	client.RetryMax = maxRetries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil

	return &PapagoTranslator{client: client, baseURL: baseURL}, nil
}

func (p *PapagoTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	form := url.Values{}
	form.Set("source", source)
	form.Set("target", target)
	form.Set("text", text)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating Papago request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error calling Papago: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading Papago response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Papago error")
		return "", fmt.Errorf("papago returned status %d", resp.StatusCode)
	}

	var parsed papagoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("error decoding Papago response: %w", err)
	}
	return parsed.Message.Result.TranslatedText, nil
}
