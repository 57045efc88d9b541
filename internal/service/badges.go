package service

import "context"

type BadgeRepository interface {
	AwardBadge(ctx context.Context, userID int64, badge, category string) (bool, error)
	ListBadges(ctx context.Context, userID int64) ([]string, error)
}

// categoryBadges are the participation badges CheckAndAward hands out the
// first time a user is active in a category.
var categoryBadges = map[string]string{
	"quest": "quest_finisher",
	"game":  "arcade_regular",
	"shop":  "collector",
}

// BadgeService is the storage-backed badge subsystem. Awards are idempotent:
// the uniqueness guard on (user, badge) makes a repeat grant a no-op.
type BadgeService struct {
	repo BadgeRepository
}

func NewBadgeService(repo BadgeRepository) *BadgeService {
	return &BadgeService{repo: repo}
}

func (s *BadgeService) Award(ctx context.Context, userID int64, badge, category string) error {
	_, err := s.repo.AwardBadge(ctx, userID, badge, category)
	return err
}

func (s *BadgeService) CheckAndAward(ctx context.Context, userID int64, category string) error {
	badge, ok := categoryBadges[category]
	if !ok {
		return nil
	}
	_, err := s.repo.AwardBadge(ctx, userID, badge, category)
	return err
}
