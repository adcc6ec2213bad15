package finance

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SummaryCache stores computed title summaries. Get returns nil on a miss.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*finance.TitleSummary, error)
	Set(ctx context.Context, key string, summary *finance.TitleSummary) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// StatementParser turns a raw statement file into entries
type StatementParser interface {
	// Detect picks the format from the file name and content
	Detect(filename string, content []byte) (finance.StatementFormat, error)
	// Parse reads every entry; one malformed record fails the whole file
	Parse(format finance.StatementFormat, content []byte) ([]finance.ParsedEntry, error)
	// Fingerprint identifies byte-identical uploads
	Fingerprint(content []byte) string
}

// FileArchiver keeps a copy of uploaded statement files
type FileArchiver interface {
	Upload(ctx context.Context, key string, content []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// ReportRenderer renders a statement report. Renderers without a browser
// fall back to HTML, hence the returned content type.
type ReportRenderer interface {
	RenderStatementReport(ctx context.Context, report *StatementReport) (content []byte, contentType string, err error)
}

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID      uuid.UUID
	Permissions []string
}

// Can reports whether the actor holds permission. "*" grants everything and
// "resource:*" grants every action on resource.
func (a Actor) Can(permission string) bool {
	resource, _, _ := strings.Cut(permission, ":")
	return slices.ContainsFunc(a.Permissions, func(p string) bool {
		return p == "*" || p == permission || p == resource+":*"
	})
}

type options struct {
	now             func() time.Time
	publisher       shared.EventPublisher
	logger          *zap.Logger
	defaultDueDays  int
	suggestionLimit int
}

// Option configures the finance services
type Option func(*options)

// WithClock injects the source of "now"
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEventPublisher publishes domain events after commits
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDefaultDueDays sets the term of titles generated from work orders
func WithDefaultDueDays(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.defaultDueDays = days
		}
	}
}

// WithSuggestionLimit sets how many match suggestions are returned when the
// caller does not ask for a number
func WithSuggestionLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.suggestionLimit = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:             func() time.Time { return time.Now().UTC() },
		publisher:       noopPublisher{},
		logger:          zap.NewNop(),
		defaultDueDays:  defaultWorkOrderDueDays,
		suggestionLimit: defaultSuggestionLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish hands events to the publisher. Failures are logged; the write that
// raised them is already committed.
func (o options) publish(ctx context.Context, events ...shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := o.publisher.Publish(ctx, events...); err != nil {
		o.logger.Warn("failed to publish finance events", zap.Error(err), zap.Int("count", len(events)))
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }
