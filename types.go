package apicore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Method is a lowercase HTTP method name as written in the routes file.
type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
	MethodPatch  Method = "patch"
)

// AllowedMethods is the fixed set of methods a route may declare, in canonical order.
var AllowedMethods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

func (m Method) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	default:
		return false
	}
}

// HTTP returns the uppercase method name used on the wire.
func (m Method) HTTP() string {
	return strings.ToUpper(string(m))
}

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid method: %s (valid methods: %s)", s, allowedMethodList())
	}
	return m, nil
}

func allowedMethodList() string {
	names := make([]string, len(AllowedMethods))
	for i, m := range AllowedMethods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// RawRoute is one entry of the routes file before validation.
type RawRoute struct {
	Key         string   `json:"key" yaml:"-"`
	Route       string   `json:"route" yaml:"route" validate:"required,startswith=/"`
	Methods     []string `json:"methods" yaml:"methods" validate:"required,min=1"`
	Action      string   `json:"action" yaml:"action" validate:"required"`
	Middlewares []string `json:"middlewares,omitempty" yaml:"middlewares"`
}

// Configuration is a validated route definition.
type Configuration struct {
	Key         string
	Route       string
	Methods     []Method
	Action      string
	Middlewares []string
}

// RouteCollection holds route definitions in declaration order.
type RouteCollection []Configuration

// Route is a Configuration with its action and middlewares bound.
type Route struct {
	Configuration
	Handler Action
	Chain   []Middleware
}

// Action handles a matched request and produces the response.
type Action func(ex Exchange) (Response, error)

// Middleware wraps an http.Handler, in the chi style.
type Middleware func(http.Handler) http.Handler

// Exchange is the request/response pair threaded through the request hooks
// and the action.
type Exchange struct {
	Request  *http.Request
	Response Response
}

// Response is an HTTP response value. The With* methods return modified
// copies and leave the receiver untouched.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns an empty 200 response.
func NewResponse() Response {
	return Response{Status: http.StatusOK, Header: make(http.Header)}
}

func (r Response) clone() Response {
	c := Response{Status: r.Status, Header: r.Header.Clone()}
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

func (r Response) WithStatus(code int) Response {
	c := r.clone()
	c.Status = code
	return c
}

func (r Response) WithHeader(key, value string) Response {
	c := r.clone()
	c.Header.Set(key, value)
	return c
}

func (r Response) WithBody(body []byte) Response {
	c := r.clone()
	c.Body = append([]byte(nil), body...)
	return c
}

// WithJSON encodes v as the body and sets the JSON content type.
func (r Response) WithJSON(v any) (Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("encode json body: %w", err)
	}
	return r.WithHeader("Content-Type", "application/json").WithBody(data), nil
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// Token is the body returned by the token endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}
