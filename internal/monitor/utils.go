package monitor

import (
	"fmt"
	"net/http"
)

const (
	noHTTPStatus  = "0"
	successStatus = "success"
	errorStatus   = "error"
)

// ParseHTTPResponseStatus condenses an outbound HTTP call's result into the status/status_code
// label pair used by the verifier request metrics.
func ParseHTTPResponseStatus(resp *http.Response, reqErr error) (status, statusCode string) {
	if reqErr != nil {
		return errorStatus, noHTTPStatus
	}
	return successStatus, fmt.Sprint(resp.StatusCode)
}
