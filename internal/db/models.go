package db

import (
	"time"
)

// Action is one dog's recorded response inside a match.
type Action string

const (
	ActionUndecided Action = "undecided"
	ActionLike      Action = "like"
	ActionSuperLike Action = "superlike"
	ActionPass      Action = "pass"
)

// Decided reports whether the slot holds an actual response.
func (a Action) Decided() bool { return a != ActionUndecided && a != "" }

// Positive reports whether the slot counts toward mutuality.
// A superlike is sufficient on its own side.
func (a Action) Positive() bool { return a == ActionLike || a == ActionSuperLike }

// Valid reports whether a is a recordable swipe action.
func (a Action) Valid() bool {
	return a == ActionLike || a == ActionSuperLike || a == ActionPass
}

// Status is the derived state of a match, recomputed from the two slots.
type Status string

const (
	StatusPending  Status = "pending"
	StatusMatched  Status = "matched"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// MessageType tags the payload kind of a chat message.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeLocation MessageType = "location"
	MessageTypeSystem   MessageType = "system"
)

// DeletedBody replaces the content of soft-deleted messages for display.
const DeletedBody = "This message was deleted"

// Owner is a human account. Connections and tokens are scoped to owners;
// dogs are the profiles that actually swipe and match.
type Owner struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Dog is a swipeable profile owned by an Owner.
type Dog struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	OwnerID   uint64 `gorm:"index;not null"`
	Name      string `gorm:"size:64;not null"`
	Breed     string `gorm:"size:64"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match is the pairwise relationship between two dogs.
//
// Invariants:
//   - DogAID < DogBID (canonical order), so one unordered pair maps to
//     exactly one row. Enforced by the unique composite index.
//   - DogAID != DogBID (no self-match).
//   - Status is derived from the two action slots (see ledger.ComputeStatus);
//     MatchedAt is written once and never overwritten.
//
// Active/Archived are display flags layered on top of an established match;
// archiving hides the conversation without touching status or the slots.
// MessageCount/LastMessageAt are a best-effort cache for list views, the
// Messages table is the source of truth.
type Match struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	DogAID         uint64 `gorm:"not null;uniqueIndex:idx_match_pair,priority:1;index:idx_dog_a_status,priority:1"`
	DogBID         uint64 `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index:idx_dog_b_status,priority:1"`
	InitiatorDogID uint64 `gorm:"not null"`
	DogAAction     Action `gorm:"size:16;not null;default:'undecided'"`
	DogBAction     Action `gorm:"size:16;not null;default:'undecided'"`
	Status         Status `gorm:"size:16;not null;default:'pending';index:idx_dog_a_status,priority:2;index:idx_dog_b_status,priority:2"`
	MatchedAt      *time.Time
	Active         bool `gorm:"not null;default:true"`
	Archived       bool `gorm:"not null;default:false"`
	ArchivedByDogID *uint64
	MessageCount   int64 `gorm:"not null;default:0"`
	LastMessageAt  *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// HasDog reports whether dogID is one of the pair.
func (m *Match) HasDog(dogID uint64) bool {
	return m.DogAID == dogID || m.DogBID == dogID
}

// ActionOf returns the slot recorded for dogID (undecided if not a participant).
func (m *Match) ActionOf(dogID uint64) Action {
	switch dogID {
	case m.DogAID:
		return m.DogAAction
	case m.DogBID:
		return m.DogBAction
	}
	return ActionUndecided
}

// Message is one unit of conversation scoped to a match. Immutable except
// for the read receipt, the bounded edit window and the soft-delete tombstone.
type Message struct {
	ID          string      `gorm:"primaryKey;size:36"`
	MatchID     uint64      `gorm:"index:idx_message_match_created,priority:1;not null"`
	SenderDogID uint64      `gorm:"not null"`
	Body        string      `gorm:"type:text"`
	Type        MessageType `gorm:"size:16;not null;default:'text'"`
	MediaURL    string      `gorm:"size:512"`
	Latitude    *float64
	Longitude   *float64
	LocationLabel string `gorm:"size:128"`
	Read          bool `gorm:"not null;default:false"`
	ReadAt        *time.Time
	Edited        bool `gorm:"not null;default:false"`
	EditedAt      *time.Time
	Deleted       bool `gorm:"not null;default:false"`
	DeletedByDogID *uint64
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_message_match_created,priority:2"`
}

// DisplayBody returns the body clients should render, applying the
// soft-delete tombstone.
func (m *Message) DisplayBody() string {
	if m.Deleted {
		return DeletedBody
	}
	return m.Body
}
