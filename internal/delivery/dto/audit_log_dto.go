package dto

import (
	"time"

	"tutorinminutes-backend/internal/domain/entity"
)

// Request DTOs

type PageQuery struct {
	Page  int `schema:"page" json:"page" validate:"omitempty,gte=1"`
	Limit int `schema:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// Response DTOs

type AuditLogResponse struct {
	ID        int64         `json:"id"`
	User      *UserResponse `json:"user,omitempty"`
	Action    string        `json:"action"`
	Metadata  entity.JSON   `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
