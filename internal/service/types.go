package service

import (
	"time"

	"StackScout/internal/biz"
	"StackScout/internal/model"
	"StackScout/pkg/search"
)

// StartResearchRequest starts a batch. With Wait set the call blocks until
// the batch is finished and the reply carries the final session.
type StartResearchRequest struct {
	Technologies []string          `json:"technologies"`
	Context      map[string]string `json:"context,omitempty"`
	Wait         bool              `json:"wait,omitempty"`
}

type StartResearchReply struct {
	SessionID string         `json:"session_id"`
	Status    string         `json:"status"`
	Session   *SessionReport `json:"session,omitempty"`
}

type GetResearchRequest struct {
	ID string `json:"id"`
}

// SessionReport is a session snapshot with the fraction of finished technologies.
type SessionReport struct {
	*biz.Session
	Progress float64 `json:"progress"`
}

type DetectRequest struct {
	Technologies []string `json:"technologies"`
}

type DetectReply struct {
	Unknown         []string               `json:"unknown"`
	Classifications []model.Classification `json:"classifications"`
}

type GetTechnologyRequest struct {
	Name  string `json:"name"`
	Limit int    `json:"limit,omitempty"`
}

type TechnologyReply struct {
	Name           string                   `json:"name"`
	Known          bool                     `json:"known"`
	Classification model.Classification     `json:"classification"`
	Profile        *model.TechnologyProfile `json:"profile,omitempty"`
	Similar        []string                 `json:"similar"`
}

// ReviewRequest carries a verdict; Approved is required.
type ReviewRequest struct {
	Name     string `json:"name"`
	Approved *bool  `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

type ReviewReply struct {
	Technology      string `json:"technology"`
	Approved        bool   `json:"approved"`
	VersionsRemoved int    `json:"versions_removed"`
}

type GetArtifactRequest struct {
	Name string `json:"name"`
}

type ArtifactReply struct {
	Technology string            `json:"technology"`
	Version    string            `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	Checksum   string            `json:"checksum"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content"`
}

type ListProvidersRequest struct{}

type ProvidersReply struct {
	Available bool            `json:"available"`
	Providers []search.Health `json:"providers"`
}
