package app

import (
	"testing"
	"time"

	"github.com/wishchain/wishchain-backend/internal/domain"
)

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(newTestService(newMemRepo()), discardLogger(), "not a cron spec", 30)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected invalid schedule to be rejected")
	}
}

func TestScheduler_DisabledExpiryStillStarts(t *testing.T) {
	s := NewScheduler(newTestService(newMemRepo()), discardLogger(), "not a cron spec", 0)
	if err := s.Start(); err != nil {
		t.Fatalf("expected disabled expiry to skip schedule parsing, got %v", err)
	}
	<-s.Stop().Done()
}

func TestScheduler_ExpireWishesRunsJob(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	wisher := repo.addUser(domain.RoleWisher, "wisher@example.com")
	old := repo.addWish(wisher.ID, "old", domain.WishPending)
	old.CreatedAt = time.Now().AddDate(0, 0, -10)

	s := NewScheduler(svc, discardLogger(), "@hourly", 7)
	s.ExpireWishes()

	if old.Status != domain.WishExpired {
		t.Fatalf("expected old wish to expire, got %s", old.Status)
	}
}
