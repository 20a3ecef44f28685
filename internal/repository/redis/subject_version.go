package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	red "github.com/redis/go-redis/v9"

	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
)

const defaultSubjectVersionPrefix = "iam:subject_version"

// SubjectVersionStore keeps a monotonically increasing counter per user.
// The counter participates in permission cache keys, so bumping it makes
// every cached decision for the user unreachable on all nodes at once.
type SubjectVersionStore struct {
	client *red.Client
	prefix string
}

// NewSubjectVersionStore constructs the subject version store helper.
func NewSubjectVersionStore(client *red.Client, keyPrefix string) *SubjectVersionStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSubjectVersionPrefix
	}

	return &SubjectVersionStore{client: client, prefix: prefix}
}

// GetSubjectVersion returns the current version for a user. A user that was
// never bumped is at version zero.
func (s *SubjectVersionStore) GetSubjectVersion(ctx context.Context, userID string) (int64, error) {
	key := s.key(userID)
	if key == "" {
		return 0, fmt.Errorf("user id is required")
	}

	version, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get subject version: %w", err)
	}

	return version, nil
}

// BumpSubjectVersion atomically increments and returns the new version.
func (s *SubjectVersionStore) BumpSubjectVersion(ctx context.Context, userID string) (int64, error) {
	key := s.key(userID)
	if key == "" {
		return 0, fmt.Errorf("user id is required")
	}

	version, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr subject version: %w", err)
	}

	return version, nil
}

func (s *SubjectVersionStore) key(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", s.prefix, userID)
}

var _ port.SubjectVersionStore = (*SubjectVersionStore)(nil)
