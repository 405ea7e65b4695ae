package domain

import "time"

const (
	// MaxNameLen is measured in bytes, matching the persisted length prefix.
	MaxNameLen = 50
	MaxAdmins  = 10
	MaxMembers = 50

	// TotalTasks is the grid size shared by every project.
	TotalTasks uint8 = 100
)

// Project is the single persisted record tracking membership, progress and treasury.
// It is storage-agnostic and used across the ledger, service and HTTP layers.
type Project struct {
	Name            string    `json:"name"`
	Creator         Pubkey    `json:"creator"`
	Admins          []Pubkey  `json:"admins"`
	Members         []Pubkey  `json:"members"`
	GithubEnabled   bool      `json:"github_enabled"`
	JiraEnabled     bool      `json:"jira_enabled"`
	CreatedAt       time.Time `json:"created_at"`
	TasksCompleted  uint8     `json:"tasks_completed"`
	TotalTasks      uint8     `json:"total_tasks"`
	TreasuryBalance uint64    `json:"treasury_balance"`
}

// ID is the deterministic identifier the record lives at.
func (p *Project) ID() Pubkey {
	return DeriveProjectID(p.Name, p.Creator)
}

// IsAuthority reports whether id may update progress or withdraw funds:
// the creator or any admin.
func (p *Project) IsAuthority(id Pubkey) bool {
	return p.Creator == id || contains(p.Admins, id)
}

// Clone returns a deep copy so a working copy can be discarded on failure.
func (p *Project) Clone() *Project {
	c := *p
	c.Admins = append([]Pubkey(nil), p.Admins...)
	c.Members = append([]Pubkey(nil), p.Members...)
	return &c
}
