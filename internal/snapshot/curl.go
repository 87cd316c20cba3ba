package snapshot

import (
	"net/http"
	"strings"

	"moul.io/http2curl/v2"
)

// CurlCommand returns a curl command line reproducing req with the given body. The request itself is
// not touched: the command is built from a clone. It returns nil when no command can be built.
func CurlCommand(req *http.Request, body *string) *string {
	clone := req.Clone(req.Context())
	clone.Body = http.NoBody
	clone.GetBody = nil
	if body != nil {
		clone.Body = NewSeekableBody([]byte(*body))
		clone.ContentLength = int64(len(*body))
	}

	cmd, err := http2curl.GetCurlCommand(clone)
	if err != nil {
		return nil
	}

	command := strings.TrimSpace(cmd.String())
	return &command
}
