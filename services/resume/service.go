package resume

import (
	"fmt"
	"time"

	"streamvault/internal/database"
	"streamvault/models"
)

// Near-complete positions are cleared rather than stored so finished items
// restart from the beginning.
const completionThreshold = 0.98

// Service stores and retrieves playback resume positions.
type Service struct {
	repo *database.ResumeRepository
}

func NewService(repo *database.ResumeRepository) *Service {
	return &Service{repo: repo}
}

// Set records the playback position for a stream. Positions at or past the
// completion threshold clear the stored position instead.
func (s *Service) Set(streamID int, kind models.StreamKind, positionSecs, durationSecs float64) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid stream kind %q", kind)
	}
	if positionSecs < 0 || durationSecs < 0 {
		return fmt.Errorf("negative position or duration")
	}

	if durationSecs > 0 && positionSecs/durationSecs >= completionThreshold {
		return s.repo.Delete(streamID, kind)
	}

	return s.repo.Upsert(models.ResumePosition{
		StreamID:     streamID,
		Kind:         kind,
		PositionSecs: positionSecs,
		DurationSecs: durationSecs,
		UpdatedAt:    time.Now().UTC(),
	})
}

// Get returns the stored position, or nil when none exists.
func (s *Service) Get(streamID int, kind models.StreamKind) (*models.ResumePosition, error) {
	return s.repo.Get(streamID, kind)
}

// Clear removes a stored position. Clearing an absent position is a no-op.
func (s *Service) Clear(streamID int, kind models.StreamKind) error {
	return s.repo.Delete(streamID, kind)
}
