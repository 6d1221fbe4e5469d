package omf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/omf/auth"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

// Client posts OMF messages to a tenant/namespace-scoped ingestion
// endpoint. It is stateless between sends apart from its token
// provider's cache and is safe for concurrent use.
type Client struct {
	messagesURL    string
	tokens         auth.TokenProvider
	scheme         authScheme
	useCompression bool
	httpClient     *http.Client
	logger         *slog.Logger
	otel           *otelInstrumentation

	// sendSem bounds concurrent SendValues calls so a collection loop
	// fanning out cannot exhaust the connection pool.
	sendSem *semaphore.Weighted
}

// New creates a client from the given options. The base URL and a
// token source are always required; tenant and namespace are required
// unless WithMessagesPath overrides the REST suffix.
func New(opts ...Option) (*Client, error) {
	o := newOptions(opts...)

	if o.baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if o.tokens == nil {
		return nil, ErrTokenProviderRequired
	}
	if o.messagesPath == "" {
		if o.tenant == "" {
			return nil, ErrTenantRequired
		}
		if o.namespace == "" {
			return nil, ErrNamespaceRequired
		}
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("omf: init otel: %w", err)
	}

	path := o.messagesPath
	if path == "" {
		path = fmt.Sprintf("/api/tenants/%s/namespaces/%s/omf2",
			url.PathEscape(o.tenant), url.PathEscape(o.namespace))
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	logger := o.logger
	if o.serviceName != "" {
		logger = logger.With("service", o.serviceName)
	}

	return &Client{
		messagesURL:    strings.TrimRight(o.baseURL, "/") + path,
		tokens:         o.tokens,
		scheme:         o.scheme,
		useCompression: o.useCompression,
		httpClient:     httpClient,
		logger:         logger,
		otel:           otelInstr,
		sendSem:        semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}, nil
}

// CreateTypes registers type definition schemas. Each schema is a raw
// OMF type definition; use Type.Raw to build one.
func (c *Client) CreateTypes(ctx context.Context, schemas []json.RawMessage) error {
	return c.sendSchemas(ctx, ActionCreate, schemas)
}

// UpdateTypes updates previously registered type definitions.
func (c *Client) UpdateTypes(ctx context.Context, schemas []json.RawMessage) error {
	return c.sendSchemas(ctx, ActionUpdate, schemas)
}

// DeleteTypes removes previously registered type definitions.
func (c *Client) DeleteTypes(ctx context.Context, schemas []json.RawMessage) error {
	return c.sendSchemas(ctx, ActionDelete, schemas)
}

func (c *Client) sendSchemas(ctx context.Context, action Action, schemas []json.RawMessage) error {
	if len(schemas) == 0 {
		return ErrEmptyPayload
	}
	return c.send(ctx, MessageTypeType, action, schemas)
}

// CreateContainers declares containers binding stream IDs to types.
func (c *Client) CreateContainers(ctx context.Context, containers []Container) error {
	return c.sendContainers(ctx, ActionCreate, containers)
}

// UpdateContainers updates previously declared containers.
func (c *Client) UpdateContainers(ctx context.Context, containers []Container) error {
	return c.sendContainers(ctx, ActionUpdate, containers)
}

// DeleteContainers removes previously declared containers.
func (c *Client) DeleteContainers(ctx context.Context, containers []Container) error {
	return c.sendContainers(ctx, ActionDelete, containers)
}

func (c *Client) sendContainers(ctx context.Context, action Action, containers []Container) error {
	if len(containers) == 0 {
		return ErrEmptyPayload
	}
	return c.send(ctx, MessageTypeContainer, action, containers)
}

// SendValues posts time-series value records. Each call is one HTTP
// request carrying the whole array; either all records are accepted or
// none are. Safe to call from many goroutines; concurrency is bounded
// by WithMaxConcurrentSends.
func (c *Client) SendValues(ctx context.Context, values []StreamValues) error {
	if len(values) == 0 {
		return ErrEmptyPayload
	}
	if err := c.sendSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	defer c.sendSem.Release(1)
	return c.send(ctx, MessageTypeData, ActionCreate, values)
}

// SendAssets posts static asset attribute records as a Data message.
func (c *Client) SendAssets(ctx context.Context, assets []AssetValues) error {
	if len(assets) == 0 {
		return ErrEmptyPayload
	}
	return c.send(ctx, MessageTypeData, ActionCreate, assets)
}

// LinkAssets posts link records positioning assets and associating
// streams with them.
func (c *Client) LinkAssets(ctx context.Context, links []Link) error {
	if len(links) == 0 {
		return ErrEmptyPayload
	}
	payload := []linkValues{{TypeID: LinkTypeID, Values: links}}
	return c.send(ctx, MessageTypeData, ActionCreate, payload)
}

// send serializes the payload, wraps it in a message envelope,
// compresses it when configured, and posts it. Exactly one attempt;
// every failure surfaces to the caller unmodified.
func (c *Client) send(ctx context.Context, msgType MessageType, action Action, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("omf: marshal payload: %w", err)
	}

	msg := NewMessage(msgType, body)
	msg.Action = action
	if c.useCompression {
		if err := msg.Compress(CompressionGZip); err != nil {
			return err
		}
	}

	ctx, endSpan := c.otel.startSpan(ctx, "omf.send",
		attribute.String("messagetype", msgType.String()),
		attribute.String("action", action.String()),
	)
	start := time.Now()
	err = c.post(ctx, msg)
	c.otel.recordSend(ctx, time.Since(start), msgType, action, len(msg.Body), err)
	endSpan(err)
	return err
}

// post performs the single HTTP request for a message.
func (c *Client) post(ctx context.Context, msg *Message) error {
	sendID := uuid.NewString()

	tokenStart := time.Now()
	token, err := c.tokens.Token(ctx)
	c.otel.recordTokenFetch(ctx, time.Since(tokenStart), err)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL, bytes.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("omf: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range msg.Headers() {
		req.Header.Set(k, v)
	}
	switch c.scheme {
	case authProducerToken:
		req.Header.Set("producertoken", token)
	default:
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	// The body is read for diagnostics but a 2xx needs no particular
	// content.
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		c.logger.Debug("message accepted",
			"send_id", sendID,
			"messagetype", msg.Type.String(),
			"action", msg.Action.String(),
			"status", resp.StatusCode,
			"bytes", len(msg.Body),
		)
		return nil
	}

	c.logger.Error("message rejected",
		"send_id", sendID,
		"messagetype", msg.Type.String(),
		"action", msg.Action.String(),
		"status", resp.StatusCode,
	)
	return &IngestionError{
		StatusCode:  resp.StatusCode,
		Body:        string(body),
		MessageType: msg.Type,
		Action:      msg.Action,
	}
}
