package waitlistform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/go-playground/validator/v10"
)

const defaultRequestTimeout = 15 * time.Second

// Doer sends the submission request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Navigator moves the user to another view after a successful submission.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// State is a snapshot of the form. Messages are empty when not shown.
type State struct {
	Fields         Fields
	Submitting     bool
	SuccessMessage string
	ErrorMessage   string
}

type Config struct {
	Definition Definition
	// BaseURL is prefixed to the definition's endpoint, e.g. "https://cv99x.com".
	BaseURL    string
	HTTPClient Doer
	Navigator  Navigator
	Logger     *log.Logger
}

type Controller struct {
	mu        sync.Mutex
	def       Definition
	endpoint  string
	client    Doer
	navigator Navigator
	logger    *log.Logger
	validate  *validator.Validate
	state     State
}

func NewController(cfg Config) *Controller {
	def := cfg.Definition.withDefaults()

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewLoggerWithJSONOutput()
	}

	return &Controller{
		def:       def,
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + def.Endpoint,
		client:    client,
		navigator: cfg.Navigator,
		logger:    logger.WithComponent("waitlistform"),
		validate:  newValidator(),
		state:     State{Fields: NewFields(def)},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdateField replaces the snapshot with one carrying value under key.
func (c *Controller) UpdateField(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.state.Fields.With(key, value)
	if err != nil {
		return err
	}
	c.state.Fields = next
	return nil
}

// Submit runs local checks and, if they pass, sends one POST with every field
// plus the source tag. It returns the resulting state. A call made while a
// submission is in flight returns the current state untouched.
func (c *Controller) Submit(ctx context.Context) State {
	fields, proceed := c.begin()
	if proceed {
		c.send(ctx, fields)
	}
	return c.State()
}

// begin clears old messages and runs the local checks. When it returns true the
// form is marked as submitting and the caller owns the request.
func (c *Controller) begin() (Fields, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Submitting {
		return Fields{}, false
	}

	c.state.SuccessMessage = ""
	c.state.ErrorMessage = ""
	fields := c.state.Fields

	if c.def.HoneypotKey != "" && fields.Get(c.def.HoneypotKey) != "" {
		c.logger.Debug("Honeypot field filled; submission skipped")
		return Fields{}, false
	}

	if msg := validateFields(c.validate, c.def, fields); msg != "" {
		c.state.ErrorMessage = msg
		return Fields{}, false
	}

	c.state.Submitting = true
	return fields, true
}

func (c *Controller) send(ctx context.Context, fields Fields) {
	defer func() {
		c.mu.Lock()
		c.state.Submitting = false
		c.mu.Unlock()
	}()

	if err := c.post(ctx, fields); err != nil {
		c.logger.Error("Waitlist submission failed", "endpoint", c.endpoint, "error", err)
		c.mu.Lock()
		c.state.ErrorMessage = MessageSubmitFailed
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.state.Fields = NewFields(c.def)
	c.mu.Unlock()

	if c.def.Success == SuccessNavigate && c.navigator != nil {
		err := c.navigate(ctx)
		if err == nil {
			return
		}
		c.logger.Warn("Navigation after submission failed; showing inline message", "path", c.def.SuccessPath, "error", err)
	}

	c.mu.Lock()
	c.state.SuccessMessage = c.def.SuccessMessage
	c.mu.Unlock()
}

func (c *Controller) navigate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("navigator panicked: %v", r)
		}
	}()
	return c.navigator.Navigate(ctx, c.def.SuccessPath)
}

func (c *Controller) post(ctx context.Context, fields Fields) error {
	payload := fields.Map()
	payload["source"] = c.def.Source

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed: %d", resp.StatusCode)
	}

	return nil
}
