package repo

import (
	"context"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u model.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error

	CreateSession(ctx context.Context, s model.Session) (int64, error)
	GetSessionByToken(ctx context.Context, token string) (model.Session, error)
	CloseSession(ctx context.Context, token string, at time.Time) error
}
