// Package formatter renders log messages for request/response pairs from templates such as
// "{method} {uri} {code}".
package formatter

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gitlab.com/gitlab-org/httpwatch/internal/snapshot"
)

// Predefined templates.
const (
	// CLF is the Apache common log format.
	CLF = `{hostname} {req_header_User-Agent} - [{date_common_log}] "{method} {target} HTTP/{version}" {code} {res_header_Content-Length}`
	// Debug dumps the whole exchange.
	Debug = ">>>>>>>>\n{request}\n<<<<<<<<\n{response}\n--------\n{error}"
	// Short is a one line summary.
	Short = `[{ts}] "{method} {target} HTTP/{version}" {code}`
)

var placeholder = regexp.MustCompile(`{\s*([A-Za-z0-9_\-]+)\s*}`)

// Formatter renders messages from a template.
type Formatter struct {
	template string
	now      func() time.Time
	hostname func() (string, error)
}

// New returns a Formatter for template. An empty template selects CLF.
func New(template string) *Formatter {
	if template == "" {
		template = CLF
	}

	return &Formatter{template: template, now: time.Now, hostname: os.Hostname}
}

// Format renders the template. resp and err may be nil.
func (f *Formatter) Format(req *http.Request, resp *http.Response, err error) string {
	cache := map[string]string{}

	return placeholder.ReplaceAllStringFunc(f.template, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if value, ok := cache[name]; ok {
			return value
		}

		value := f.value(name, req, resp, err)
		cache[name] = value

		return value
	})
}

func (f *Formatter) value(name string, req *http.Request, resp *http.Response, err error) string {
	switch name {
	case "request":
		return dumpRequest(req)
	case "response":
		return dumpResponse(resp)
	case "req_headers":
		return requestLine(req) + "\r\n" + headerLines(req.Header)
	case "res_headers":
		if resp == nil {
			return "NULL"
		}
		return fmt.Sprintf("HTTP/%d.%d %s\r\n%s", resp.ProtoMajor, resp.ProtoMinor, resp.Status, headerLines(resp.Header))
	case "req_body":
		if body := snapshot.CaptureRequest(req).Body; body != nil {
			return *body
		}
		return ""
	case "res_body":
		if resp == nil {
			return "NULL"
		}
		return snapshot.CaptureResponse(resp, true).Body
	case "ts", "date_iso_8601":
		return f.now().UTC().Format(time.RFC3339)
	case "date_common_log":
		return f.now().Format("02/Jan/2006:15:04:05 -0700")
	case "method":
		return req.Method
	case "version":
		return protocolVersion(req.ProtoMajor, req.ProtoMinor)
	case "uri", "url":
		return req.URL.String()
	case "target":
		return req.URL.RequestURI()
	case "req_version":
		return protocolVersion(req.ProtoMajor, req.ProtoMinor)
	case "res_version":
		if resp == nil {
			return "NULL"
		}
		return protocolVersion(resp.ProtoMajor, resp.ProtoMinor)
	case "host":
		return req.Host
	case "hostname":
		name, _ := f.hostname()
		return name
	case "code":
		if resp == nil {
			return "NULL"
		}
		return strconv.Itoa(resp.StatusCode)
	case "phrase":
		if resp == nil {
			return "NULL"
		}
		return snapshot.CaptureResponse(resp, false).StatusPhrase
	case "error":
		if err == nil {
			return "NULL"
		}
		return err.Error()
	}

	if header, ok := strings.CutPrefix(name, "req_header_"); ok {
		return strings.Join(req.Header.Values(header), ", ")
	}

	if header, ok := strings.CutPrefix(name, "res_header_"); ok {
		if resp == nil {
			return "NULL"
		}
		return strings.Join(resp.Header.Values(header), ", ")
	}

	return ""
}

func requestLine(req *http.Request) string {
	return fmt.Sprintf("%s %s HTTP/%s", req.Method, req.URL.RequestURI(), protocolVersion(req.ProtoMajor, req.ProtoMinor))
}

func headerLines(h http.Header) string {
	var buf bytes.Buffer
	_ = h.Write(&buf)
	return buf.String()
}

func dumpRequest(req *http.Request) string {
	snap := snapshot.CaptureRequest(req)
	out := requestLine(req) + "\r\n" + headerLines(req.Header) + "\r\n"
	if snap.Body != nil {
		out += *snap.Body
	}

	return out
}

func dumpResponse(resp *http.Response) string {
	if resp == nil {
		return "NULL"
	}

	snap := snapshot.CaptureResponse(resp, true)

	return fmt.Sprintf("HTTP/%s %s\r\n%s\r\n%s", snap.ProtocolVersion, resp.Status, headerLines(resp.Header), snap.Body)
}

func protocolVersion(major, minor int) string {
	if major == 0 {
		return "1.1"
	}

	return fmt.Sprintf("%d.%d", major, minor)
}
