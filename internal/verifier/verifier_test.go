package verifier

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestHTTPVerifier_Verify_Accepted(t *testing.T) {
	v := &HTTPVerifier{
		BaseURL: "http://verifier.local",
		Timeout: time.Second,
		Client: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "http://verifier.local/verify", req.URL.String())
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"success":true}`)),
			}, nil
		}),
	}

	result, err := v.Verify(context.Background(), Request{ActionID: "tx-1"})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestHTTPVerifier_Verify_Rejected(t *testing.T) {
	v := &HTTPVerifier{
		BaseURL: "http://verifier.local",
		Timeout: time.Second,
		Client: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"success":false,"error":"bad proof"}`)),
			}, nil
		}),
	}

	result, err := v.Verify(context.Background(), Request{ActionID: "tx-1"})
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "bad proof", result.Reason)
}

func TestHTTPVerifier_Verify_ServerErrorIsPropagated(t *testing.T) {
	v := &HTTPVerifier{
		BaseURL: "http://verifier.local",
		Timeout: time.Second,
		Client: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		}),
	}

	_, err := v.Verify(context.Background(), Request{ActionID: "tx-1"})
	assert.Error(t, err)
}

func TestStagingAlwaysAcceptVerifier_AlwaysAccepts(t *testing.T) {
	v := StagingAlwaysAcceptVerifier{}
	result, err := v.Verify(context.Background(), Request{ActionID: "tx-1"})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}
