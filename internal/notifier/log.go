package notifier

import (
	"log/slog"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes newly stored jobs to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs one line per job. It never fails.
func (n *LogNotifier) Notify(jobs []model.Job) error {
	for _, j := range jobs {
		args := []any{
			"company", j.Company,
			"title", j.Title,
			"location", j.Location,
			"score", j.Score,
			"source", j.Source,
			"url", j.URL,
		}
		if j.PostedAt != nil {
			args = append(args, "posted_at", *j.PostedAt)
		}
		n.logger.Info("new job", args...)
	}
	return nil
}
