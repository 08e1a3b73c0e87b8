// Package storage provides abstractions for the equb ledger.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/equb/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a guarded write loses against a concurrent writer,
	// or when a uniqueness constraint (one active round per group) would be violated.
	ErrConflict = errors.New("concurrent modification")
)

// GroupStore persists group configuration and membership.
type GroupStore interface {
	// CreateGroup persists a new group. ID and CreatedAt are filled in when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// SaveGroup overwrites the group's configuration and round bookkeeping.
	SaveGroup(ctx context.Context, group *models.Group) error

	// AddMember inserts or replaces a membership. Seq is assigned by the store.
	AddMember(ctx context.Context, member *models.GroupMember) error

	// GetMember returns ErrNotFound if memberID does not belong to the group.
	GetMember(ctx context.Context, groupID, memberID string) (*models.GroupMember, error)

	// GetEligibleMembers returns the ACTIVE members in join order.
	GetEligibleMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error)

	// ListAdmins returns the ACTIVE admins of a group.
	ListAdmins(ctx context.Context, groupID string) ([]*models.GroupMember, error)
}

// RoundStore persists rounds.
type RoundStore interface {
	// CreateRound atomically inserts the round, its contributions, and the updated group.
	// Returns ErrConflict if the group already has an active round or the round number is taken.
	CreateRound(ctx context.Context, round *models.Round, contributions []*models.Contribution, group *models.Group) error

	// GetRound returns ErrNotFound if the round does not exist.
	GetRound(ctx context.Context, roundID string) (*models.Round, error)

	// GetActiveRound returns ErrNotFound if the group has no active round.
	GetActiveRound(ctx context.Context, groupID string) (*models.Round, error)

	// SaveRound writes the round only if its stored version still equals round.Version and
	// it is still ACTIVE, then bumps round.Version. When group is non-nil it is saved in the
	// same transaction. Returns ErrConflict otherwise.
	SaveRound(ctx context.Context, round *models.Round, group *models.Group) error

	// ListRounds returns the group's rounds, newest round number first.
	ListRounds(ctx context.Context, groupID string) ([]*models.Round, error)

	// ListActiveRounds returns every active round across all groups.
	ListActiveRounds(ctx context.Context) ([]*models.Round, error)
}

// ContributionStore persists per-member payment obligations.
type ContributionStore interface {
	// GetContribution returns ErrNotFound if the contribution does not exist.
	GetContribution(ctx context.Context, contributionID string) (*models.Contribution, error)

	// ListContributions returns a round's contributions ordered by position.
	ListContributions(ctx context.Context, roundID string) ([]*models.Contribution, error)

	// CountByRoundAndStatus counts a round's contributions in the given status.
	CountByRoundAndStatus(ctx context.Context, roundID string, status models.ContributionStatus) (int, error)

	// ListPending returns a round's PENDING contributions ordered by position.
	ListPending(ctx context.Context, roundID string) ([]*models.Contribution, error)

	// CompleteContribution marks a PENDING contribution COMPLETED.
	// It reports false without error if the contribution was already COMPLETED.
	CompleteContribution(ctx context.Context, contributionID, transactionID string, paidAt time.Time) (bool, error)

	// ApplyPenalty flags a PENDING contribution late and records the penalty.
	// It reports false if the contribution was already flagged or is no longer pending.
	ApplyPenalty(ctx context.Context, contributionID string, amount decimal.Decimal, at time.Time) (bool, error)
}

// Store combines every ledger interface.
// This abstraction allows swapping storage backends without changing the engine.
type Store interface {
	GroupStore
	RoundStore
	ContributionStore

	// Close releases any resources held by the store.
	Close() error
}
