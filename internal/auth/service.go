// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/netserver/accounts/pkg/errutil"
)

var tracer = otel.Tracer("github.com/netserver/accounts/internal/auth")

// Default limits for reset code handling.
const (
	DefaultDeliveryTimeout = 10 * time.Second
	DefaultCodeAttempts    = 5
)

// DefaultIssueTimeout bounds token signing during Login.
const DefaultIssueTimeout = 5 * time.Second

// Deps are the collaborators required by Service.
type Deps struct {
	Users    UserRepository
	Roles    RoleRepository
	Resets   ResetTokenRepository
	Tx       Transactor
	Hasher   PasswordHasher
	Issuer   TokenIssuer
	Notifier Notifier
}

// Service coordinates credential checks, role assignment, profiles, and the
// reset code lifecycle. It is safe for concurrent use; all cross-request
// coordination happens in the stores.
type Service struct {
	users    UserRepository
	roles    RoleRepository
	resets   ResetTokenRepository
	tx       Transactor
	hasher   PasswordHasher
	issuer   TokenIssuer
	notifier Notifier

	logger          *slog.Logger
	now             func() time.Time
	newCode         func() (string, error)
	resetTTL        time.Duration
	deliveryTimeout time.Duration
	issueTimeout    time.Duration
	codeAttempts    uint64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides reset code generation.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

// WithResetCodeTTL sets how long issued and refreshed codes stay valid.
func WithResetCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithDeliveryTimeout bounds each notification send.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.deliveryTimeout = d
		}
	}
}

// WithIssueTimeout bounds each token signing call made by Login.
func WithIssueTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.issueTimeout = d
		}
	}
}

// WithCodeAttempts bounds how many fresh codes are tried when a generated code
// collides with a stored one.
func WithCodeAttempts(n uint64) Option {
	return func(s *Service) {
		if n > 0 {
			s.codeAttempts = n
		}
	}
}

// NewService creates a Service. Every dependency in deps is required.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Users == nil:
		return nil, oops.Errorf("user repository is required")
	case deps.Roles == nil:
		return nil, oops.Errorf("role repository is required")
	case deps.Resets == nil:
		return nil, oops.Errorf("reset token repository is required")
	case deps.Tx == nil:
		return nil, oops.Errorf("transactor is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case deps.Issuer == nil:
		return nil, oops.Errorf("token issuer is required")
	case deps.Notifier == nil:
		return nil, oops.Errorf("notifier is required")
	}

	s := &Service{
		users:           deps.Users,
		roles:           deps.Roles,
		resets:          deps.Resets,
		tx:              deps.Tx,
		hasher:          deps.Hasher,
		issuer:          deps.Issuer,
		notifier:        deps.Notifier,
		logger:          slog.Default(),
		now:             time.Now,
		newCode:         GenerateResetCode,
		resetTTL:        DefaultResetCodeTTL,
		deliveryTimeout: DefaultDeliveryTimeout,
		issueTimeout:    DefaultIssueTimeout,
		codeAttempts:    DefaultCodeAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// begin starts a span and returns a func that records the outcome.
// Call as: ctx, done := s.begin(ctx, "op"); defer done(&err).
func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "auth."+operation)
	span.SetAttributes(attrs...)
	start := time.Now()
	return ctx, func(errp *error) {
		err := *errp
		recordOperation(operation, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorCode(err))
		}
		span.End()
	}
}

// fail classifies err and logs infrastructure faults.
func (s *Service) fail(ctx context.Context, operation string, err error) error {
	classified := unavailable(operation, err)
	if HasCode(classified, CodeUnavailable) {
		errutil.LogError(ctx, s.logger, "auth operation failed", classified)
	}
	return classified
}
