// Package domain defines the persistence models of the thanks service: the
// durable thanks log plus the wiki host tables (users, blocks, pages,
// revisions and log entries) that the thanks flow resolves targets against.
// These types are mapped with GORM and shared by the repo and service layers.
package domain

import (
	"strings"
	"time"
)

// User is a wiki account as seen by the thanks flow.
//
// Fields:
//   - ID: numeric user id (0 is reserved for anonymous).
//   - ActorID: actor identifier used by edits, logs and the thanks log; unique.
//   - Name: display name returned to the client on success.
//   - Registered: false for IP editors.
//   - Temp: temporary (auto-created) accounts are not "named" users.
//   - System: reserved maintenance accounts that must never receive thanks.
//   - Bot: bot accounts; eligible only when sending to bots is enabled.
//   - Groups: comma-separated group names (e.g. "sysop,rollback").
type User struct {
	ID         int64  `json:"id"          gorm:"primaryKey"`
	ActorID    int64  `json:"actor_id"    gorm:"not null;uniqueIndex:ux_users_actor"`
	Name       string `json:"name"        gorm:"type:varchar(255);not null;uniqueIndex:ux_users_name"`
	Registered bool   `json:"registered"  gorm:"not null"`
	Temp       bool   `json:"temp"        gorm:"not null;default:false"`
	System     bool   `json:"system"      gorm:"not null;default:false"`
	Bot        bool   `json:"bot"         gorm:"not null;default:false"`
	Groups     string `json:"groups"      gorm:"type:varchar(512);not null;default:''"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsNamed reports whether the user is a registered, non-temporary account.
func (u *User) IsNamed() bool {
	return u != nil && u.ID > 0 && u.Registered && !u.Temp
}

// InGroup reports whether the user is a member of any of the given groups.
func (u *User) InGroup(groups ...string) bool {
	if u == nil || u.Groups == "" {
		return false
	}
	for _, g := range strings.Split(u.Groups, ",") {
		g = strings.TrimSpace(g)
		for _, want := range groups {
			if g != "" && g == want {
				return true
			}
		}
	}
	return false
}

// Block restricts an actor. A sitewide block covers every page; a partial
// block lists the page titles it covers, one per line. Actions names the restricted
// actions (e.g. "thanks"); a sitewide block with an empty action list
// restricts everything.
type Block struct {
	ID        int64      `json:"id"         gorm:"primaryKey"`
	ActorID   int64      `json:"actor_id"   gorm:"not null;index:idx_blocks_actor"`
	Sitewide  bool       `json:"sitewide"   gorm:"not null"`
	Actions   string     `json:"actions"    gorm:"type:varchar(255);not null;default:''"`
	Pages     string     `json:"pages"      gorm:"type:text;not null;default:''"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName returns the database table name for Block.
func (Block) TableName() string { return "blocks" }

// Active reports whether the block is in force at now.
func (b *Block) Active(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// Restricts reports whether the block applies to action.
func (b *Block) Restricts(action string) bool {
	if strings.TrimSpace(b.Actions) == "" {
		return b.Sitewide
	}
	for _, a := range strings.Split(b.Actions, ",") {
		if strings.TrimSpace(a) == action {
			return true
		}
	}
	return false
}

// CoversTitle reports whether the block applies to edits on title.
func (b *Block) CoversTitle(title string) bool {
	if b.Sitewide {
		return true
	}
	for _, p := range strings.Split(b.Pages, "\n") {
		if strings.TrimSpace(p) == title {
			return true
		}
	}
	return false
}

// Page is a wiki page.
type Page struct {
	ID    int64  `json:"id"    gorm:"primaryKey"`
	Title string `json:"title" gorm:"type:varchar(255);not null;uniqueIndex:ux_pages_title"`
}

// TableName returns the database table name for Page.
func (Page) TableName() string { return "pages" }

// Revision is a single saved version of a page.
//
// ParentID is nil for the first revision of a page. AuthorActorID is nil when
// the author has been hidden. DeletedText marks revisions whose content was
// suppressed; such revisions cannot be thanked.
type Revision struct {
	ID            int64     `json:"id"              gorm:"primaryKey"`
	PageID        int64     `json:"page_id"         gorm:"not null;index:idx_revisions_page,priority:1"`
	ParentID      *int64    `json:"parent_id,omitempty"`
	AuthorActorID *int64    `json:"author_actor_id,omitempty" gorm:"index"`
	DeletedText   bool      `json:"deleted_text"    gorm:"not null;default:false"`
	DeletedUser   bool      `json:"deleted_user"    gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at"      gorm:"index:idx_revisions_page,priority:2"`

	Page Page `json:"-" gorm:"foreignKey:PageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Revision.
func (Revision) TableName() string { return "revisions" }

// LogEntry is a logged administrative action. Entries that also created a
// revision (e.g. page protection) carry AssociatedRevID.
type LogEntry struct {
	ID               int64     `json:"id"                 gorm:"primaryKey"`
	Type             string    `json:"type"               gorm:"type:varchar(32);not null;index"`
	Subtype          string    `json:"subtype"            gorm:"type:varchar(32);not null;default:''"`
	PageTitle        string    `json:"page_title"         gorm:"type:varchar(255);not null"`
	PerformerActorID int64     `json:"performer_actor_id" gorm:"not null;index"`
	AssociatedRevID  *int64    `json:"associated_rev_id,omitempty"`
	DeletedUser      bool      `json:"deleted_user"       gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName returns the database table name for LogEntry.
func (LogEntry) TableName() string { return "log_entries" }

// ThanksLog is one durable record of a thanks. The table is append-only and
// may physically contain duplicates; readers collapse them.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ActorID: sender actor; indexed together with CreatedAt for the
//     "recently thanked by" query.
//   - RecipientID: user id of the thanked author.
//   - ThankID: serialized ThankedID ("revision-<id>" or "log-<id>").
//   - PageTitle: title of the thanked page.
//   - Source: UI surface the thanks came from.
type ThanksLog struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ActorID     int64     `json:"actor_id"     gorm:"not null;index:idx_thanks_actor_time,priority:1"`
	RecipientID int64     `json:"recipient_id" gorm:"not null;index"`
	ThankID     string    `json:"thank_id"     gorm:"type:varchar(64);not null"`
	PageTitle   string    `json:"page_title"   gorm:"type:varchar(255);not null;default:''"`
	Source      string    `json:"source"       gorm:"type:varchar(64);not null;default:'undefined'"`
	CreatedAt   time.Time `json:"created_at"   gorm:"not null;index:idx_thanks_actor_time,priority:2"`
}

// TableName returns the database table name for ThanksLog.
func (ThanksLog) TableName() string { return "thanks_log" }
