package repo

import (
	"context"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

type TemplateRepository interface {
	// ListActiveByType returns all active templates of one message type.
	ListActiveByType(ctx context.Context, t model.MessageType) ([]model.Template, error)
	Create(ctx context.Context, tpl model.Template) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
