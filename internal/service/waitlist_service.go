package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"clevermock-web/internal/domain"
	"clevermock-web/internal/observability"
)

// emailRegex is the pattern the signup form has always accepted. It is
// applied to the address exactly as submitted, before normalization.
var emailRegex = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// ValidEmail reports whether email is acceptable for the waitlist.
func ValidEmail(email string) bool {
	return email != "" && emailRegex.MatchString(email)
}

// NormalizeEmail is the form in which emails are stored and compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type WaitlistService struct {
	repo     domain.WaitlistRepository
	notifier domain.WaitlistNotifier
}

// NewWaitlistService creates the signup flow. notifier may be nil, in which
// case no confirmation is requested.
func NewWaitlistService(repo domain.WaitlistRepository, notifier domain.WaitlistNotifier) *WaitlistService {
	return &WaitlistService{
		repo:     repo,
		notifier: notifier,
	}
}

// Join adds email to the waitlist and requests the confirmation email.
// It returns domain.ErrInvalidEmail or domain.ErrAlreadyOnWaitlist for the
// expected rejections.
func (s *WaitlistService) Join(ctx context.Context, email string) (*domain.WaitlistEntry, error) {
	log := observability.FromContext(ctx)

	if !ValidEmail(email) {
		observability.WaitlistSignupsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidEmail
	}
	email = NormalizeEmail(email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		observability.WaitlistSignupsTotal.WithLabelValues("duplicate").Inc()
		return nil, domain.ErrAlreadyOnWaitlist
	} else if !errors.Is(err, domain.ErrWaitlistNotFound) {
		observability.WaitlistSignupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	entry := &domain.WaitlistEntry{Email: email}
	if err := s.repo.Create(ctx, entry); err != nil {
		// A concurrent signup can win the race between the lookup and the insert.
		if errors.Is(err, domain.ErrAlreadyOnWaitlist) {
			observability.WaitlistSignupsTotal.WithLabelValues("duplicate").Inc()
			return nil, domain.ErrAlreadyOnWaitlist
		}
		observability.WaitlistSignupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	observability.WaitlistSignupsTotal.WithLabelValues("created").Inc()
	log.Info("waitlist signup", slog.String("entry_id", entry.ID))

	if s.notifier != nil {
		if err := s.notifier.NotifyJoined(ctx, entry); err != nil {
			log.Warn("failed to request waitlist confirmation",
				slog.String("entry_id", entry.ID),
				slog.String("error", err.Error()))
		}
	}

	return entry, nil
}

// Ready reports whether the waitlist store is reachable.
func (s *WaitlistService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
