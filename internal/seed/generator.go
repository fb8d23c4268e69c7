package seed

import (
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"json-user-service/internal/adapter/store/jsonfile"
	domain "json-user-service/internal/domain/user"
)

// DefaultCount is the number of users written when no count is configured.
const DefaultCount = 60

// Generator produces synthetic users. A Generator built with the same
// non-zero seed always yields the same users.
type Generator struct {
	faker *gofakeit.Faker
	log   *zap.Logger
}

// New creates a Generator. A zero seed picks a random one.
func New(seed uint64, log *zap.Logger) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		log:   log,
	}
}

// Users returns count users with ids 1..count.
func (g *Generator) Users(count int) []domain.User {
	users := make([]domain.User, 0, max(count, 0))
	for i := 1; i <= count; i++ {
		users = append(users, domain.User{
			ID:      int64(i),
			Name:    domain.Ptr(g.faker.Name()),
			Email:   domain.Ptr(g.faker.Email()),
			Address: domain.Ptr(g.faker.Street()),
		})
	}
	return users
}

// WriteFile generates count users and replaces the store document at path.
func (g *Generator) WriteFile(path string, count int) error {
	if count < 1 {
		return errors.New("seed count must be at least 1")
	}

	users := g.Users(count)
	if _, err := jsonfile.WriteFile(path, users); err != nil {
		return fmt.Errorf("failed to write seed file: %w", err)
	}

	g.log.Info("seed file written", zap.String("path", path), zap.Int("users", len(users)))
	return nil
}
