package domain

import "time"

// Role tags a conversation entry with its author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Version descriptions written by the ledger operations.
const (
	DescriptionRevision   = "changes made"
	DescriptionManualSave = "manual save"
)

// User is the credit-holding identity. Credits never drop below zero.
type User struct {
	ID          string    `json:"id"`
	FirebaseUID string    `json:"firebase_uid"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Credits     int       `json:"credits"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Project is a generated website owned by exactly one user.
// When CurrentVersionID is set, CurrentCode equals that version's code.
type Project struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	InitialPrompt    string    `json:"initial_prompt,omitempty"`
	CurrentCode      *string   `json:"current_code,omitempty"`
	CurrentVersionID *string   `json:"current_version_index,omitempty"`
	IsPublished      bool      `json:"is_published"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PublishedProject is a published project together with its owner's name.
type PublishedProject struct {
	Project
	OwnerName string `json:"owner_name"`
}

// Version is an immutable code snapshot.
type Version struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Seq         int64     `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationEntry is an immutable role-tagged message in a project's log.
type ConversationEntry struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CommitVersionInput describes a version append. When RunID is set the
// revision run is settled as completed in the same transaction.
type CommitVersionInput struct {
	ProjectID   string
	Code        string
	Description string
	RunID       string
}

// CreateProjectInput carries the fields needed to create a project.
type CreateProjectInput struct {
	UserID        string
	Name          string
	InitialPrompt string
}

// RunStatus is the settlement state of a revision run.
type RunStatus string

const (
	RunDebited   RunStatus = "debited"
	RunRefunded  RunStatus = "refunded"
	RunCompleted RunStatus = "completed"
)

// RevisionRun journals one pipeline execution's charge. A run leaves the
// debited state at most once, either refunded or completed.
type RevisionRun struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	ProjectID string     `json:"project_id"`
	Amount    int        `json:"amount"`
	Status    RunStatus  `json:"status"`
	VersionID *string    `json:"version_id,omitempty"`
	Failure   string     `json:"failure,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}
