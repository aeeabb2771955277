// internal/service/sweeper.go
package service

import (
    "time"

    "github.com/glowdesk/messaging-backend/internal/repository"
)

// Sweeper recovers messages stranded in processing by a crash between claim
// and terminal update. Dispatch only selects pending rows, so without the
// sweep those messages would never move again.
type Sweeper struct {
    Messages repository.MessageRepositoryInterface
    Timeout  time.Duration
}

// ReleaseStale reverts processing rows untouched for longer than Timeout
// back to pending. Attempts stay as incremented by the claim, so the retry
// cap still bounds total sends for a message.
func (s *Sweeper) ReleaseStale(now time.Time) (int, error) {
    timeout := s.Timeout
    if timeout <= 0 {
        timeout = 15 * time.Minute
    }
    return s.Messages.ReleaseStale(now.Add(-timeout))
}
