package testutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed, for reproducing a failure.
func (g *TestDataGenerator) Seed() int64 {
	return g.seed
}

// GenerateTenantID returns a fresh id that passes tenant id validation.
func (g *TestDataGenerator) GenerateTenantID() string {
	return "guild-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// GeneratePlayerNames returns count distinct player names.
func (g *TestDataGenerator) GeneratePlayerNames(count int) []string {
	return g.unique(count, func() string { return g.faker.FirstName() + " " + g.faker.LastName() })
}

// GenerateAllianceNames returns count distinct alliance names.
func (g *TestDataGenerator) GenerateAllianceNames(count int) []string {
	return g.unique(count, func() string { return g.faker.Color() + " " + g.faker.Animal() })
}

// GenerateEventName returns a plausible event name.
func (g *TestDataGenerator) GenerateEventName(week int) string {
	return fmt.Sprintf("Week %d: %s", week, g.faker.City())
}

func (g *TestDataGenerator) unique(count int, next func() string) []string {
	seen := make(map[string]bool, count)
	out := make([]string, 0, count)
	for len(out) < count {
		name := next()
		if seen[name] {
			name = fmt.Sprintf("%s %d", name, len(out))
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
