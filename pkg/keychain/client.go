package keychain

import (
	"context"
	"time"
)

// Config is the scope a Client applies to every query.
type Config struct {
	// Service is written to every query's service attribute.
	Service string
	// AccessGroup is written to every query's access group attribute.
	// Empty removes the attribute, leaving the vault's default group.
	AccessGroup string
}

// Logger receives debug traces of client decisions. Payloads are never
// logged.
type Logger interface {
	Debug(format string, args ...interface{})
}

// Recorder observes completed operations, e.g. for metrics.
type Recorder interface {
	RecordOperation(op, outcome string, elapsed time.Duration)
	RecordSetPlan(plan string)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the debug logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRecorder sets the operation recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// Client runs scoped fetch/set/delete/exists operations against a Vault.
// It holds no mutable state and is safe for concurrent use if the vault is.
type Client struct {
	vault    Vault
	cfg      Config
	logger   Logger
	recorder Recorder
}

// New creates a Client bound to cfg.
func New(vault Vault, cfg Config, opts ...Option) *Client {
	c := &Client{
		vault:    vault,
		cfg:      cfg,
		logger:   nopLogger{},
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client's scope.
func (c *Client) Config() Config {
	return c.cfg
}

// Fetch returns the payload of the single item matching query. A vault
// that reports success without returning a payload yields ItemCopyFailed
// with StatusDecode rather than StatusSuccess, so the error always carries
// a failure status.
func (c *Client) Fetch(ctx context.Context, query Attributes) (data []byte, err error) {
	defer c.observe("fetch", time.Now(), &err)
	return c.fetch(ctx, query)
}

// Set stores data under query, adding, updating or replacing the item as
// needed. When accessControl is non-nil a fresh access-control object is
// created for the write and attached to the item.
func (c *Client) Set(ctx context.Context, data []byte, query Attributes, accessControl *AccessControl) (err error) {
	defer c.observe("set", time.Now(), &err)

	probe := query.Clone()
	probe.AuthenticationUI = AuthUIFail
	_, probeErr := c.fetch(ctx, probe)

	plan := planSet(probeErr)
	c.logger.Debug("keychain set %s: plan %s", c.describeQuery(c.scoped(query)), plan.action)
	c.recorder.RecordSetPlan(plan.action.String())

	switch plan.action {
	case actionUpdate:
		return c.update(ctx, data, query, accessControl)
	case actionRewrite:
		if err := c.delete(ctx, query); err != nil {
			return err
		}
		return c.add(ctx, data, query, accessControl)
	case actionAdd:
		return c.add(ctx, data, query, accessControl)
	default:
		return plan.err
	}
}

// Delete removes every item matching query. Deleting nothing succeeds.
func (c *Client) Delete(ctx context.Context, query Attributes) (err error) {
	defer c.observe("delete", time.Now(), &err)
	return c.delete(ctx, query)
}

// Exists reports whether an item matches query without prompting the
// user. A gated item exists. Failures other than not-found are returned,
// since they leave existence unknown.
func (c *Client) Exists(ctx context.Context, query Attributes) (found bool, err error) {
	defer c.observe("exists", time.Now(), &err)

	probe := query.Clone()
	probe.AuthenticationUI = AuthUIFail
	_, err = c.fetch(ctx, probe)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	case IsInteractionNotAllowed(err):
		return true, nil
	}
	return false, err
}

func (c *Client) fetch(ctx context.Context, query Attributes) ([]byte, error) {
	q := c.scoped(query)
	q.ReturnData = Bool(true)
	q.ReturnAttributes = Bool(true)
	q.MatchLimit = MatchLimitOne

	results, status := c.vault.CopyMatching(ctx, q.Native())
	c.logger.Debug("keychain copy-matching %s: status %d", c.describeQuery(q), status)
	if status != StatusSuccess {
		return nil, c.statusError(KindItemCopyFailed, status)
	}
	if len(results) > 0 {
		if data := FromNative(results[0]).Data; data != nil {
			return data, nil
		}
	}
	return nil, c.statusError(KindItemCopyFailed, StatusDecode)
}

func (c *Client) add(ctx context.Context, data []byte, query Attributes, accessControl *AccessControl) error {
	q := c.scoped(query)
	q.Data = cloneBytes(data)
	if q.Data == nil {
		q.Data = []byte{}
	}
	q.AccessControl = nil
	delete(q.Extra, KeyAccessControl)
	if accessControl != nil {
		obj, err := accessControl.Create(ctx, c.vault)
		if err != nil {
			return err
		}
		q.AccessControl = obj
	}

	status := c.vault.Add(ctx, q.Native())
	c.logger.Debug("keychain add %s: status %d", c.describeQuery(q), status)
	if status != StatusSuccess {
		return c.statusError(KindItemAddFailed, status)
	}
	return nil
}

func (c *Client) update(ctx context.Context, data []byte, query Attributes, accessControl *AccessControl) error {
	q := c.scoped(query)

	changes := Attributes{Data: cloneBytes(data)}
	if changes.Data == nil {
		changes.Data = []byte{}
	}
	if accessControl != nil {
		obj, err := accessControl.Create(ctx, c.vault)
		if err != nil {
			return err
		}
		changes.AccessControl = obj
	}

	status := c.vault.Update(ctx, q.Native(), changes.Native())
	c.logger.Debug("keychain update %s: status %d", c.describeQuery(q), status)
	if status != StatusSuccess {
		return c.statusError(KindItemUpdateFailed, status)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, query Attributes) error {
	q := c.scoped(query)
	status := c.vault.Delete(ctx, q.Native())
	c.logger.Debug("keychain delete %s: status %d", c.describeQuery(q), status)
	if status != StatusSuccess && status != StatusItemNotFound {
		return c.statusError(KindItemDeleteFailed, status)
	}
	return nil
}

// scoped returns a copy of query bound to the client's service and access
// group.
func (c *Client) scoped(query Attributes) Attributes {
	q := query.Clone()
	q.Service = String(c.cfg.Service)
	q.AccessGroup = nil
	if c.cfg.AccessGroup != "" {
		q.AccessGroup = String(c.cfg.AccessGroup)
	}
	delete(q.Extra, KeyService)
	delete(q.Extra, KeyAccessGroup)
	return q
}

func (c *Client) statusError(kind ErrorKind, status Status) *Error {
	d, _ := c.vault.(StatusDescriber)
	return newStatusError(kind, status, d)
}

func (c *Client) describeQuery(q Attributes) string {
	return q.Class.String() + " " + StringValue(q.Service) + "/" + StringValue(q.Account)
}

func (c *Client) observe(op string, start time.Time, err *error) {
	c.recorder.RecordOperation(op, Outcome(*err), time.Since(start))
}

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case IsInteractionNotAllowed(err):
		return "interaction_not_allowed"
	case IsACLCreationFailed(err):
		return "acl_failed"
	}
	return "error"
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string, time.Duration) {}
func (nopRecorder) RecordSetPlan(string)                          {}
