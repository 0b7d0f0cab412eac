// Package audit records the before/after of every mutation. Writes are
// best-effort: a failed audit insert is logged and never rolls back the
// business mutation it describes.
package audit

import (
	"encoding/json"
	"log"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
)

// Entry is the write-side view of an audit record.
type Entry struct {
	ActorID      *uint
	ActorEmail   string
	Action       string
	ResourceKind string
	ResourceID   *uint
	Description  string
	Before       interface{}
	After        interface{}
	Status       string
	IP           string
}

type Service interface {
	// Record persists the entry. It never returns an error; failures are
	// logged so the primary mutation stands.
	Record(e Entry)
	List(filter repositories.AuditFilter, opts repositories.ListOptions) ([]models.AuditEntry, int64, error)
}

type service struct {
	repo repositories.AuditRepository
}

func NewService(repo repositories.AuditRepository) Service {
	if repo == nil {
		panic("audit repo is required")
	}
	return &service{repo: repo}
}

func (s *service) Record(e Entry) {
	if e.Status == "" {
		e.Status = models.AuditSuccess
	}
	entry := &models.AuditEntry{
		ActorID:      e.ActorID,
		ActorEmail:   e.ActorEmail,
		Action:       e.Action,
		ResourceKind: e.ResourceKind,
		ResourceID:   e.ResourceID,
		Description:  e.Description,
		Before:       snapshot(e.Before),
		After:        snapshot(e.After),
		Status:       e.Status,
		IP:           e.IP,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Insert(entry); err != nil {
		log.Printf("audit write failed (action=%s resource=%s): %v", e.Action, e.ResourceKind, err)
	}
}

func (s *service) List(filter repositories.AuditFilter, opts repositories.ListOptions) ([]models.AuditEntry, int64, error) {
	return s.repo.List(filter, opts)
}

func snapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("audit snapshot marshal failed: %v", err)
		return ""
	}
	return string(data)
}
