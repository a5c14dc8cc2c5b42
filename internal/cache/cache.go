package cache

import (
	"context"
	"time"
)

// SendCache mirrors message hand-offs to a fast store so dashboards can
// show recent activity without hitting the database.
type SendCache interface {
	StoreSent(ctx context.Context, patientID int64, phone string, sentAt time.Time) error
}
