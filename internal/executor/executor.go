// Package executor sends single HTTP requests against a chosen replica and
// classifies the outcome into a typed payload or a *RequestFailure.
//
// An Execute call makes exactly one network attempt. Retrying against another
// replica is the caller's decision.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/version"
)

const (
	// DefaultTimeout bounds a whole request when no client is supplied.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 10 << 20

	contentTypeJSON = "application/json"
)

// ErrBodyTooLarge is the cause of a RequestFailure for a response body over
// the configured limit.
var ErrBodyTooLarge = errors.New("response body too large")

// ErrUnexpectedContent is returned by Decode when a success response is not
// JSON and the target cannot hold raw text.
var ErrUnexpectedContent = errors.New("unexpected non-JSON response body")

// Request fully describes one outbound call. It is a value; build a new one
// rather than mutating a shared instance.
type Request struct {
	Method  string
	BaseURL string
	Path    string
	Body    any         // JSON-encoded for methods that carry a body
	Header  http.Header // extra headers; cannot override Authorization
}

func (r Request) URL() string { return r.BaseURL + r.Path }

// Response is a classified success (2xx) response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// IsJSON reports whether the response declares a JSON media type.
func (r *Response) IsJSON() bool {
	return isJSON(r.Header.Get("Content-Type"))
}

// Decode fills v from the body. JSON bodies are unmarshalled; a decode error is
// a *RequestFailure with status 500. Non-JSON bodies are handed over as raw
// text when v is *string, *[]byte or *any.
func (r *Response) Decode(v any) error {
	empty := len(bytes.TrimSpace(r.Body)) == 0
	if r.IsJSON() {
		if empty {
			return nil
		}
		if err := json.Unmarshal(r.Body, v); err != nil {
			return decodeFailure(r.Body, err)
		}
		return nil
	}

	switch p := v.(type) {
	case *string:
		*p = string(r.Body)
		return nil
	case *[]byte:
		*p = append([]byte(nil), r.Body...)
		return nil
	case *any:
		*p = string(r.Body)
		return nil
	}
	if empty {
		return nil
	}
	return fmt.Errorf("%w: content type %q", ErrUnexpectedContent, r.Header.Get("Content-Type"))
}

// Doer is what façades and registry sources depend on.
type Doer interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}

type Options struct {
	Credential Credential
	Client     *http.Client  // optional, defaults to a client with Timeout
	Timeout    time.Duration // used only when Client is nil
	Logger     logger.Logger // optional
	UserAgent  string        // optional, defaults to version.UserAgent()
	RequestID  func() string // optional, defaults to uuid.NewString
	// MaxBodyBytes caps response bodies, defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Executor is safe for concurrent use.
type Executor struct {
	cred      Credential
	client    *http.Client
	logger    logger.Logger
	userAgent string
	requestID func() string
	maxBody   int64
}

// New validates the credential and builds an Executor. A missing credential is
// a configuration fault, reported as ErrMissingCredential.
func New(opts Options) (*Executor, error) {
	if err := opts.Credential.Validate(); err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}
	reqID := opts.RequestID
	if reqID == nil {
		reqID = uuid.NewString
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return &Executor{
		cred:      opts.Credential,
		client:    client,
		logger:    log,
		userAgent: ua,
		requestID: reqID,
		maxBody:   maxBody,
	}, nil
}

// Execute sends req once. Non-2xx answers and transport faults come back as
// *RequestFailure.
func (e *Executor) Execute(ctx context.Context, req Request) (*Response, error) {
	if e == nil || e.cred.Validate() != nil {
		return nil, ErrMissingCredential
	}

	httpReq, err := e.build(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("outbound request",
		logger.String("method", httpReq.Method),
		logger.String("url", httpReq.URL.String()),
		logger.String("request_id", httpReq.Header.Get("X-Request-ID")))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, transportFailure(err)
	}
	oversized := false
	defer func() {
		// An oversized body is abandoned rather than drained.
		if !oversized {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, e.maxBody))
		}
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, transportFailure(fmt.Errorf("read response body: %w", err))
	}
	if int64(len(body)) > e.maxBody {
		oversized = true
		return nil, tooLargeFailure(resp.StatusCode, e.maxBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusFailure(resp, body)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func (e *Executor) build(ctx context.Context, req Request) (*http.Request, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil && carriesBody(method) {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", e.userAgent)
	httpReq.Header.Set("X-Request-ID", e.requestID())
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Authorization", e.cred.header())

	return httpReq, nil
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return false
	default:
		return true
	}
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "json")
	}
	return mt == contentTypeJSON || strings.HasSuffix(mt, "+json")
}

// Do executes req and decodes the success body into T.
func Do[T any](ctx context.Context, d Doer, req Request) (T, error) {
	var out T
	resp, err := d.Execute(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func Get[T any](ctx context.Context, d Doer, baseURL, path string) (T, error) {
	return Do[T](ctx, d, Request{Method: http.MethodGet, BaseURL: baseURL, Path: path})
}
