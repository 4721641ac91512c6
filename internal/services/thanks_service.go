// Package services – ThanksService
//
// ThanksService runs one thank request: it resolves the target (revision or
// log entry) to a canonical identifier and recipient, consults the sender's
// dedup cache, validates the sender and recipient, and for a genuinely new
// thanks persists the record, emits one notification and extends the cache.
//
// A duplicate is a success with no side effects. Any rejection before the
// durable append leaves no trace. A notification failure after the append
// still updates the cache and is then reported as ErrNotifyFailed.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-thanks-backend/internal/domain"
	"github.com/tbourn/go-thanks-backend/internal/repo"
	"github.com/tbourn/go-thanks-backend/internal/session"
)

// TargetResolver looks up the wiki objects a thanks can point at.
type TargetResolver interface {
	UserByActor(ctx context.Context, actorID int64) (*domain.User, error)
	Revision(ctx context.Context, id int64) (*domain.Revision, error)
	HasPreviousRevision(ctx context.Context, rev *domain.Revision) (bool, error)
	// LogEntry returns only thankable entries; see repo.GetAllowedLogEntry.
	LogEntry(ctx context.Context, id int64) (*domain.LogEntry, error)
}

// PermissionChecker answers block questions about the sender.
type PermissionChecker interface {
	IsBlockedFromThanking(ctx context.Context, actorID int64) (bool, error)
	IsBlockedFromTitle(ctx context.Context, actorID int64, title string) (bool, error)
}

// Notifier hands notifications to the delivery system.
type Notifier interface {
	Emit(ctx context.Context, n domain.Notification) error
}

// ThankRequest is one thank action. Exactly one of RevisionID and LogID must
// be set.
type ThankRequest struct {
	RevisionID *int64
	LogID      *int64
	Source     string
}

// ThankResult is returned on success, including duplicates.
type ThankResult struct {
	Success   bool
	Recipient string
	// Duplicate is true when nothing was recorded because the sender had
	// already thanked this target.
	Duplicate bool
}

// ThanksService orchestrates thank requests.
type ThanksService struct {
	Cache       *ThanksCache
	Log         ThanksLog
	Targets     TargetResolver
	Permissions PermissionChecker
	Notifier    Notifier

	// SendToBots allows bot accounts to receive thanks.
	SendToBots bool
}

// target is a resolved thank target.
type target struct {
	id          domain.ThankedID
	title       string
	recipient   *domain.User
	revCreation bool
}

// Thank processes req on behalf of senderActorID using the sender's session.
func (s *ThanksService) Thank(ctx context.Context, sess session.Store, senderActorID int64, req ThankRequest) (*ThankResult, error) {
	ctx, span := otel.Tracer("services/ThanksService").Start(ctx, "Thank",
		trace.WithAttributes(
			attribute.Int64("actor.id", senderActorID),
			attribute.String("thanks.source", NormalizeSource(req.Source)),
		),
	)
	defer span.End()

	res, err := s.thank(ctx, sess, senderActorID, req)
	outcome := thankOutcome(res, err)
	thankOutcomes.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("thanks.outcome", outcome))
	if err != nil && (outcome == "failed" || outcome == "notify_failed") {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (s *ThanksService) thank(ctx context.Context, sess session.Store, senderActorID int64, req ThankRequest) (*ThankResult, error) {
	sender, err := s.sender(ctx, senderActorID)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	tgt, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("thanks.target", tgt.id.String()))

	// Dedup check on the resolved identifier.
	already, err := s.Cache.IsAlreadyThanked(ctx, sess, sender.ActorID, tgt.id.ID, string(tgt.id.Kind))
	if err != nil {
		return nil, err
	}
	if already {
		return &ThankResult{Success: true, Recipient: tgt.recipient.Name, Duplicate: true}, nil
	}

	if err := s.validate(ctx, sess, sender, tgt); err != nil {
		if errors.Is(err, errDuplicate) {
			return &ThankResult{Success: true, Recipient: tgt.recipient.Name, Duplicate: true}, nil
		}
		return nil, err
	}

	rec := &domain.ThanksLog{
		ActorID:     sender.ActorID,
		RecipientID: tgt.recipient.ID,
		ThankID:     tgt.id.String(),
		PageTitle:   tgt.title,
		Source:      NormalizeSource(req.Source),
	}
	if err := s.Log.AppendThanks(ctx, rec); err != nil {
		return nil, fmt.Errorf("record thanks: %w", err)
	}

	emitErr := s.Notifier.Emit(ctx, buildNotification(sender, tgt, rec.Source))

	if _, err := s.Cache.RecordThanks(ctx, sess, sender.ActorID, tgt.id.String()); err != nil {
		// The durable record exists; the next population picks it up.
		zerolog.Ctx(ctx).Warn().Err(err).
			Int64("actor_id", sender.ActorID).
			Str("thank_id", tgt.id.String()).
			Msg("thanks cache update failed")
	}

	if emitErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotifyFailed, emitErr)
	}
	return &ThankResult{Success: true, Recipient: tgt.recipient.Name}, nil
}

// ThankedList returns the sender's canonical thanked ids, newest last,
// capped at limit (<= 0 means no cap).
func (s *ThanksService) ThankedList(ctx context.Context, sess session.Store, senderActorID int64, limit int) ([]string, error) {
	sender, err := s.sender(ctx, senderActorID)
	if err != nil {
		return nil, err
	}
	list, err := s.Cache.MembershipList(ctx, sess, sender.ActorID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, id := range list {
		out = append(out, domain.CanonicalThankedID(id))
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *ThanksService) sender(ctx context.Context, actorID int64) (*domain.User, error) {
	if actorID <= 0 {
		return nil, ErrNotLoggedIn
	}
	u, err := s.Targets.UserByActor(ctx, actorID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}
	if !u.IsNamed() {
		return nil, ErrNotLoggedIn
	}
	return u, nil
}

func validateRequest(req ThankRequest) error {
	var id domain.ThankedID
	switch {
	case req.RevisionID != nil && req.LogID == nil:
		id = domain.RevisionID(*req.RevisionID)
	case req.LogID != nil && req.RevisionID == nil:
		id = domain.LogID(*req.LogID)
	}
	if !id.Valid() {
		return ErrInvalidParams
	}
	return nil
}

func (s *ThanksService) resolve(ctx context.Context, req ThankRequest) (*target, error) {
	if req.LogID != nil {
		entry, err := s.Targets.LogEntry(ctx, *req.LogID)
		if err != nil {
			return nil, mapLogError(err)
		}
		if entry.AssociatedRevID != nil && *entry.AssociatedRevID > 0 {
			return s.resolveRevision(ctx, *entry.AssociatedRevID)
		}
		recipient, err := s.recipient(ctx, entry.PerformerActorID)
		if err != nil {
			return nil, err
		}
		return &target{id: domain.LogID(entry.ID), title: entry.PageTitle, recipient: recipient}, nil
	}
	return s.resolveRevision(ctx, *req.RevisionID)
}

func (s *ThanksService) resolveRevision(ctx context.Context, id int64) (*target, error) {
	// Revision id 1 is reserved and never thankable.
	if id == 1 {
		return nil, ErrInvalidRevision
	}
	rev, err := s.Targets.Revision(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidRevision
	}
	if err != nil {
		return nil, err
	}
	if rev.DeletedText {
		return nil, ErrRevisionDeleted
	}
	if rev.AuthorActorID == nil || rev.DeletedUser {
		return nil, ErrInvalidRecipient
	}
	recipient, err := s.recipient(ctx, *rev.AuthorActorID)
	if err != nil {
		return nil, err
	}
	hasPrev, err := s.Targets.HasPreviousRevision(ctx, rev)
	if err != nil {
		return nil, err
	}
	return &target{
		id:          domain.RevisionID(rev.ID),
		title:       rev.Page.Title,
		recipient:   recipient,
		revCreation: !hasPrev,
	}, nil
}

func (s *ThanksService) recipient(ctx context.Context, actorID int64) (*domain.User, error) {
	u, err := s.Targets.UserByActor(ctx, actorID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidRecipient
	}
	return u, err
}

var errDuplicate = errors.New("already thanked")

func (s *ThanksService) validate(ctx context.Context, sess session.Store, sender *domain.User, tgt *target) error {
	// Second look on the canonical string, right before anything is written.
	list, err := s.Cache.MembershipList(ctx, sess, sender.ActorID)
	if err != nil {
		return err
	}
	if containsThanked(list, tgt.id.String()) {
		return errDuplicate
	}

	blocked, err := s.Permissions.IsBlockedFromThanking(ctx, sender.ActorID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlocked
	}
	blocked, err = s.Permissions.IsBlockedFromTitle(ctx, sender.ActorID, tgt.title)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlockedFromTitle
	}
	if sender.ID == tgt.recipient.ID {
		return ErrSelfThanks
	}
	if !CanReceiveThanks(tgt.recipient, s.SendToBots) {
		return ErrInvalidRecipient
	}
	return nil
}

// CanReceiveThanks reports whether u may be thanked: registered, not a
// system account, and not a bot unless sendToBots.
func CanReceiveThanks(u *domain.User, sendToBots bool) bool {
	if u == nil || u.ID <= 0 || !u.Registered || u.System {
		return false
	}
	return sendToBots || !u.Bot
}

// NormalizeSource trims source, defaulting to "undefined".
func NormalizeSource(source string) string {
	if s := strings.TrimSpace(source); s != "" {
		return s
	}
	return "undefined"
}

func buildNotification(sender *domain.User, tgt *target, source string) domain.Notification {
	extra := domain.NotificationExtra{
		ThankedUserID: tgt.recipient.ID,
		Source:        source,
		Excerpt:       "",
		RevCreation:   tgt.revCreation,
	}
	id := tgt.id.ID
	if tgt.id.Kind == domain.KindLog {
		extra.LogID = &id
	} else {
		extra.RevID = &id
	}
	return domain.Notification{
		Type:      domain.NotificationTypeEditThank,
		Title:     tgt.title,
		Extra:     extra,
		Agent:     sender.ActorID,
		AgentName: sender.Name,
	}
}

func mapLogError(err error) error {
	var lte *repo.LogTypeError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrInvalidLogID
	case errors.As(err, &lte):
		return fmt.Errorf("%w: %s", ErrInvalidLogType, lte.Type)
	case errors.Is(err, repo.ErrLogTypeNotAllowed):
		return ErrInvalidLogType
	case errors.Is(err, repo.ErrLogPerformerDeleted):
		return ErrLogDeleted
	}
	return err
}

func thankOutcome(res *ThankResult, err error) string {
	switch {
	case err == nil && res != nil && res.Duplicate:
		return "duplicate"
	case err == nil:
		return "sent"
	case errors.Is(err, ErrNotifyFailed):
		return "notify_failed"
	case isRejection(err):
		return "rejected"
	}
	return "failed"
}

func isRejection(err error) bool {
	for _, e := range []error{
		ErrInvalidParams, ErrNotLoggedIn, ErrInvalidRevision, ErrRevisionDeleted,
		ErrInvalidLogID, ErrInvalidLogType, ErrLogDeleted, ErrBlocked,
		ErrBlockedFromTitle, ErrSelfThanks, ErrInvalidRecipient,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
