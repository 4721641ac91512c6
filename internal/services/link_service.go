// Package services – LinkService
//
// LinkService decides whether a "thank" link is offered next to a revision
// or log entry, and what it looks like. Every surface (diffs, history,
// contributions, logs, mobile views) goes through ShouldOfferThankLink.
package services

import (
	"context"
	"errors"
	"strconv"

	"golang.org/x/text/language"

	"github.com/tbourn/go-thanks-backend/internal/domain"
	"github.com/tbourn/go-thanks-backend/internal/repo"
	"github.com/tbourn/go-thanks-backend/internal/session"
)

// Views whose link requires the viewer to hold a privileged group.
var gatedViews = map[string]bool{
	"diff":           true,
	"mobile-diff":    true,
	"mobile-history": true,
	"contributions":  true,
}

// LinkTarget is everything the link policy needs to know about one row.
// Exactly one of Revision and LogEntry is set.
type LinkTarget struct {
	View      string
	Recipient *domain.User

	Revision *domain.Revision
	// OldRevisionID is the left side of a diff (0 when not a diff).
	OldRevisionID int64

	LogEntry *domain.LogEntry

	BlockedFromThanking bool
	BlockedFromTitle    bool
}

// LinkState is the rendered link for one row.
type LinkState struct {
	Offered              bool   `json:"offered"`
	Thanked              bool   `json:"thanked"`
	ID                   string `json:"id,omitempty"`
	Href                 string `json:"href,omitempty"`
	Label                string `json:"label,omitempty"`
	Tooltip              string `json:"tooltip,omitempty"`
	Recipient            string `json:"recipient,omitempty"`
	ConfirmationRequired bool   `json:"confirmation_required"`
}

// DescribeRequest identifies the row to describe. Exactly one of RevisionID
// and LogID must be set.
type DescribeRequest struct {
	View          string
	RevisionID    *int64
	LogID         *int64
	OldRevisionID int64
	Lang          language.Tag
}

// LinkService applies the thank-link policy.
type LinkService struct {
	Cache       *ThanksCache
	Targets     TargetResolver
	Permissions PermissionChecker

	AllowedLogTypes      []string
	PrivilegedGroups     []string
	SendToBots           bool
	ConfirmationRequired bool
}

// ShouldOfferThankLink reports whether viewer may be offered a thank link
// for t. It has no side effects.
func (s *LinkService) ShouldOfferThankLink(viewer *domain.User, t LinkTarget) bool {
	if !viewer.IsNamed() {
		return false
	}
	if gatedViews[t.View] && !viewer.InGroup(s.PrivilegedGroups...) {
		return false
	}
	if t.BlockedFromThanking || t.BlockedFromTitle {
		return false
	}
	if t.Recipient == nil || t.Recipient.ID == viewer.ID {
		return false
	}
	if !CanReceiveThanks(t.Recipient, s.SendToBots) {
		return false
	}

	switch {
	case t.Revision != nil && t.LogEntry == nil:
		rev := t.Revision
		if rev.ID == 0 || rev.DeletedText || rev.DeletedUser {
			return false
		}
		// A diff spanning several revisions has no single author to thank.
		if t.OldRevisionID > 0 {
			if rev.ParentID == nil || *rev.ParentID != t.OldRevisionID {
				return false
			}
		}
		return true
	case t.LogEntry != nil && t.Revision == nil:
		e := t.LogEntry
		return !e.DeletedUser && repo.LogTypeAllowed(e, s.AllowedLogTypes)
	}
	return false
}

// RenderState renders the link for t, consulting the viewer's dedup cache
// when the link is offered.
func (s *LinkService) RenderState(ctx context.Context, sess session.Store, viewer *domain.User, t LinkTarget, lang language.Tag) (*LinkState, error) {
	if !s.ShouldOfferThankLink(viewer, t) {
		return &LinkState{}, nil
	}

	id, href := linkTarget(t)
	thanked, err := s.Cache.IsAlreadyThanked(ctx, sess, viewer.ActorID, id.ID, string(id.Kind))
	if err != nil {
		return nil, err
	}

	p := printer(lang)
	st := &LinkState{
		Offered:   true,
		ID:        id.String(),
		Recipient: t.Recipient.Name,
	}
	if thanked {
		st.Thanked = true
		st.Label = p.Sprintf(msgThankedLabel)
		st.Tooltip = p.Sprintf(msgThankedTooltip, t.Recipient.Name)
		return st, nil
	}
	st.Href = href
	st.Label = p.Sprintf(msgThankLabel)
	st.Tooltip = p.Sprintf(msgThankTooltip, t.Recipient.Name)
	st.ConfirmationRequired = s.ConfirmationRequired
	return st, nil
}

// linkTarget returns the identifier and href for t. A log entry that created
// a revision is thanked as that revision.
func linkTarget(t LinkTarget) (domain.ThankedID, string) {
	revID := int64(0)
	switch {
	case t.LogEntry == nil:
		revID = t.Revision.ID
	case t.LogEntry.AssociatedRevID != nil && *t.LogEntry.AssociatedRevID > 0:
		revID = *t.LogEntry.AssociatedRevID
	default:
		return domain.LogID(t.LogEntry.ID), "/wiki/Special:Thanks/Log/" + strconv.FormatInt(t.LogEntry.ID, 10)
	}
	return domain.RevisionID(revID), "/wiki/Special:Thanks/" + strconv.FormatInt(revID, 10)
}

// Describe resolves the row named by req and renders its link for the
// viewer behind actorID. Anonymous viewers and rows without a thankable
// author get a state with Offered=false rather than an error.
func (s *LinkService) Describe(ctx context.Context, sess session.Store, actorID int64, req DescribeRequest) (*LinkState, error) {
	if err := validateRequest(ThankRequest{RevisionID: req.RevisionID, LogID: req.LogID}); err != nil {
		return nil, err
	}

	viewer, err := s.Targets.UserByActor(ctx, actorID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !viewer.IsNamed()) {
		return &LinkState{}, nil
	}
	if err != nil {
		return nil, err
	}

	t := LinkTarget{View: req.View, OldRevisionID: req.OldRevisionID}
	var title string
	var authorActorID int64

	if req.LogID != nil {
		e, err := s.Targets.LogEntry(ctx, *req.LogID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrInvalidLogID
		case errors.Is(err, repo.ErrLogTypeNotAllowed), errors.Is(err, repo.ErrLogPerformerDeleted):
			return &LinkState{}, nil
		case err != nil:
			return nil, err
		}
		t.LogEntry = e
		title = e.PageTitle
		authorActorID = e.PerformerActorID
	} else {
		rev, err := s.Targets.Revision(ctx, *req.RevisionID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidRevision
		}
		if err != nil {
			return nil, err
		}
		if rev.AuthorActorID == nil {
			return &LinkState{}, nil
		}
		t.Revision = rev
		title = rev.Page.Title
		authorActorID = *rev.AuthorActorID
	}

	recipient, err := s.Targets.UserByActor(ctx, authorActorID)
	if errors.Is(err, repo.ErrNotFound) {
		return &LinkState{}, nil
	}
	if err != nil {
		return nil, err
	}
	t.Recipient = recipient

	if t.BlockedFromThanking, err = s.Permissions.IsBlockedFromThanking(ctx, viewer.ActorID); err != nil {
		return nil, err
	}
	if t.BlockedFromTitle, err = s.Permissions.IsBlockedFromTitle(ctx, viewer.ActorID, title); err != nil {
		return nil, err
	}

	return s.RenderState(ctx, sess, viewer, t, req.Lang)
}
