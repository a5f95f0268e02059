package translate

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderTransport(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Key") != "secret" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "Success")
	}))
	defer testServer.Close()

	client := newHTTPClientWithHeaders(map[string]string{"X-Key": "secret"})

	req, err := http.NewRequest("GET", testServer.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, req.Header.Get("X-Key"), "original request must not be modified")
}

func TestPapagoTranslate(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "id", r.Header.Get("X-NCP-APIGW-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("X-NCP-APIGW-API-KEY"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message":{"result":{"srcLangType":"ja","tarLangType":"ko","translatedText":"안녕하세요"}}}`)
	}))
	defer server.Close()

	p, err := NewPapagoTranslator("id", "secret", server.URL, 0)
	require.NoError(t, err)

	got, err := p.Translate(context.Background(), "こんにちは", "ja", "ko")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", got)
	assert.Equal(t, "ja", form.Get("source"))
	assert.Equal(t, "ko", form.Get("target"))
	assert.Equal(t, "こんにちは", form.Get("text"))
}

func TestPapagoErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage":"Authentication Failed"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	p, err := NewPapagoTranslator("id", "bad", server.URL, 0)
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), "text", "en", "ko")
	assert.ErrorContains(t, err, "401")
}

func TestPapagoRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"message":{"result":{"translatedText":"ok"}}}`)
	}))
	defer server.Close()

	p, err := NewPapagoTranslator("id", "secret", server.URL, 2)
	require.NoError(t, err)
	p.client.RetryWaitMin = 0
	p.client.RetryWaitMax = 0

	got, err := p.Translate(context.Background(), "text", "en", "ko")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewPapagoTranslatorRequiresCredentials(t *testing.T) {
	_, err := NewPapagoTranslator("", "secret", "", 0)
	assert.Error(t, err)
}
