package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

var start = time.Date(2026, time.January, 5, 8, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "equb-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createGroup(t *testing.T, store *SQLiteStore, members ...string) *models.Group {
	t.Helper()
	ctx := context.Background()

	group := &models.Group{
		Name:                "Family Equb",
		EqubAmount:          decimal.RequireFromString("100.50"),
		SelectionMethod:     models.SelectionLottery,
		GracePeriodDays:     7,
		PaymentDeadlineDays: 15,
		PenaltyAmount:       decimal.NewFromInt(10),
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	for i, id := range members {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleAdmin
		}
		err := store.AddMember(ctx, &models.GroupMember{
			GroupID:  group.ID,
			MemberID: id,
			Role:     role,
			Status:   models.MemberActive,
			JoinedAt: start.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("AddMember(%s) failed: %v", id, err)
		}
	}
	return group
}

func newRound(group *models.Group, number int, members ...string) (*models.Round, []*models.Contribution) {
	round := &models.Round{
		GroupID:         group.ID,
		RoundNumber:     number,
		Status:          models.RoundActive,
		ExpectedAmount:  group.EqubAmount.Mul(decimal.NewFromInt(int64(len(members)))),
		TotalAmount:     decimal.Zero,
		MemberCount:     len(members),
		StartDate:       start,
		PaymentDeadline: start.AddDate(0, 0, group.PaymentDeadlineDays),
		GracePeriodDays: group.GracePeriodDays,
		PenaltyAmount:   group.PenaltyAmount,
		CreatedAt:       start,
	}
	contributions := make([]*models.Contribution, len(members))
	for i, m := range members {
		contributions[i] = &models.Contribution{
			GroupID:       group.ID,
			MemberID:      m,
			Position:      i,
			Amount:        group.EqubAmount,
			Status:        models.ContributionPending,
			TransactionID: "tx" + m,
			PenaltyAmount: decimal.Zero,
		}
	}
	return round, contributions
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup round-trips configuration", func(t *testing.T) {
		group := createGroup(t, store)
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}

		retrieved, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !retrieved.EqubAmount.Equal(decimal.RequireFromString("100.50")) {
			t.Errorf("Expected amount 100.50, got %s", retrieved.EqubAmount)
		}
		if retrieved.SelectionMethod != models.SelectionLottery {
			t.Errorf("Expected LOTTERY, got %s", retrieved.SelectionMethod)
		}
		if !retrieved.LastDrawAt.IsZero() {
			t.Errorf("Expected zero LastDrawAt, got %v", retrieved.LastDrawAt)
		}
		if !retrieved.IsEqubConfigured() {
			t.Error("Expected group to be configured for equb")
		}
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveGroup of a missing group returns ErrNotFound", func(t *testing.T) {
		err := store.SaveGroup(ctx, &models.Group{ID: "missing"})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AddMember to a missing group returns ErrNotFound", func(t *testing.T) {
		err := store.AddMember(ctx, &models.GroupMember{
			GroupID: "missing", MemberID: "alice", Role: models.RoleMember, Status: models.MemberActive,
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Joined out of name order on purpose.
	group := createGroup(t, store, "carol", "alice", "bob")

	err := store.AddMember(ctx, &models.GroupMember{
		GroupID: group.ID, MemberID: "dave", Role: models.RoleMember, Status: models.MemberPending,
		JoinedAt: start.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	members, err := store.GetEligibleMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetEligibleMembers failed: %v", err)
	}
	got := make([]string, len(members))
	for i, m := range members {
		got[i] = m.MemberID
	}
	want := []string{"carol", "alice", "bob"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Re-adding keeps the join position but updates the status.
	alice := &models.GroupMember{GroupID: group.ID, MemberID: "alice", Role: models.RoleAdmin, Status: models.MemberInactive}
	before, err := store.GetMember(ctx, group.ID, "alice")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if err := store.AddMember(ctx, alice); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if alice.Seq != before.Seq {
		t.Errorf("Expected seq %d to be kept, got %d", before.Seq, alice.Seq)
	}
	after, err := store.GetMember(ctx, group.ID, "alice")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if after.Status != models.MemberInactive || after.Role != models.RoleAdmin {
		t.Errorf("Expected INACTIVE ADMIN, got %s %s", after.Status, after.Role)
	}
	if !after.JoinedAt.Equal(before.JoinedAt) {
		t.Errorf("Expected JoinedAt %v to be kept, got %v", before.JoinedAt, after.JoinedAt)
	}

	members, err = store.GetEligibleMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetEligibleMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("Expected 2 eligible members, got %d", len(members))
	}

	admins, err := store.ListAdmins(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListAdmins failed: %v", err)
	}
	if len(admins) != 1 || admins[0].MemberID != "carol" {
		t.Errorf("Expected only carol as active admin, got %v", admins)
	}

	_, err = store.GetMember(ctx, group.ID, "mallory")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemberSeqBreaksJoinTies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store)
	other := createGroup(t, store, "solo")

	// Bulk import: everyone shares one joined_at second.
	want := []string{"zed", "amy", "max"}
	for i, id := range want {
		member := &models.GroupMember{
			GroupID: group.ID, MemberID: id, Role: models.RoleMember, Status: models.MemberActive,
			JoinedAt: start,
		}
		if err := store.AddMember(ctx, member); err != nil {
			t.Fatalf("AddMember(%s) failed: %v", id, err)
		}
		if member.Seq != int64(i+1) {
			t.Errorf("Expected seq %d for %s, got %d", i+1, id, member.Seq)
		}
	}

	if _, err := store.db.ExecContext(ctx, "VACUUM"); err != nil {
		t.Fatalf("VACUUM failed: %v", err)
	}

	members, err := store.GetEligibleMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetEligibleMembers failed: %v", err)
	}
	if len(members) != len(want) {
		t.Fatalf("Expected %d members, got %d", len(want), len(members))
	}
	for i, m := range members {
		if m.MemberID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], m.MemberID)
		}
	}

	// Sequences are per group.
	solo, err := store.GetMember(ctx, other.ID, "solo")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if solo.Seq != 1 {
		t.Errorf("Expected seq 1 in a fresh group, got %d", solo.Seq)
	}
}

func TestRounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice", "bob", "carol")

	round, contributions := newRound(group, 1, "alice", "bob", "carol")
	group.CurrentRoundNumber = 1

	t.Run("CreateRound stores round, contributions and group", func(t *testing.T) {
		if err := store.CreateRound(ctx, round, contributions, group); err != nil {
			t.Fatalf("CreateRound failed: %v", err)
		}
		if round.ID == "" {
			t.Error("Expected round ID to be generated")
		}

		stored, err := store.GetActiveRound(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetActiveRound failed: %v", err)
		}
		if stored.ID != round.ID {
			t.Errorf("Expected round %s, got %s", round.ID, stored.ID)
		}
		if !stored.ExpectedAmount.Equal(decimal.RequireFromString("301.50")) {
			t.Errorf("Expected 301.50, got %s", stored.ExpectedAmount)
		}
		if !stored.PaymentDeadline.Equal(start.AddDate(0, 0, 15)) {
			t.Errorf("Expected deadline %v, got %v", start.AddDate(0, 0, 15), stored.PaymentDeadline)
		}
		if !stored.LateAfter().Equal(start.AddDate(0, 0, 22)) {
			t.Errorf("Expected late after %v, got %v", start.AddDate(0, 0, 22), stored.LateAfter())
		}

		list, err := store.ListContributions(ctx, round.ID)
		if err != nil {
			t.Fatalf("ListContributions failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("Expected 3 contributions, got %d", len(list))
		}
		for i, c := range list {
			if c.Position != i {
				t.Errorf("Expected position %d, got %d", i, c.Position)
			}
			if c.RoundID != round.ID {
				t.Errorf("Expected contribution to reference round %s, got %s", round.ID, c.RoundID)
			}
		}

		g, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if g.CurrentRoundNumber != 1 {
			t.Errorf("Expected current round 1, got %d", g.CurrentRoundNumber)
		}
	})

	t.Run("second active round conflicts and rolls back", func(t *testing.T) {
		second, secondContributions := newRound(group, 2, "alice", "bob", "carol")
		g := *group
		g.CurrentRoundNumber = 2

		err := store.CreateRound(ctx, second, secondContributions, &g)
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}

		stored, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if stored.CurrentRoundNumber != 1 {
			t.Errorf("Expected group to stay at round 1, got %d", stored.CurrentRoundNumber)
		}
		if _, err := store.GetRound(ctx, second.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected rejected round to be absent, got %v", err)
		}
	})

	t.Run("SaveRound is guarded by version", func(t *testing.T) {
		first, err := store.GetRound(ctx, round.ID)
		if err != nil {
			t.Fatalf("GetRound failed: %v", err)
		}
		stale := *first

		first.Status = models.RoundCompleted
		first.WinnerID = "bob"
		first.WinnerSelectedAt = start.Add(time.Hour)
		first.TotalAmount = first.ExpectedAmount

		g := *group
		g.CurrentWinnerID = "bob"
		g.LastDrawAt = first.WinnerSelectedAt
		if err := store.SaveRound(ctx, first, &g); err != nil {
			t.Fatalf("SaveRound failed: %v", err)
		}
		if first.Version != 1 {
			t.Errorf("Expected version 1, got %d", first.Version)
		}

		stale.Status = models.RoundCompleted
		stale.WinnerID = "carol"
		if err := store.SaveRound(ctx, &stale, nil); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}

		stored, err := store.GetRound(ctx, round.ID)
		if err != nil {
			t.Fatalf("GetRound failed: %v", err)
		}
		if stored.WinnerID != "bob" || stored.Status != models.RoundCompleted {
			t.Errorf("Expected bob to remain winner, got %s (%s)", stored.WinnerID, stored.Status)
		}

		storedGroup, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if storedGroup.CurrentWinnerID != "bob" {
			t.Errorf("Expected group winner bob, got %s", storedGroup.CurrentWinnerID)
		}

		if _, err := store.GetActiveRound(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected no active round, got %v", err)
		}
	})

	t.Run("ListRounds is newest first", func(t *testing.T) {
		second, secondContributions := newRound(group, 2, "alice", "bob")
		if err := store.CreateRound(ctx, second, secondContributions, nil); err != nil {
			t.Fatalf("CreateRound failed: %v", err)
		}

		rounds, err := store.ListRounds(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListRounds failed: %v", err)
		}
		if len(rounds) != 2 || rounds[0].RoundNumber != 2 || rounds[1].RoundNumber != 1 {
			t.Fatalf("Expected rounds [2 1], got %d rounds", len(rounds))
		}

		active, err := store.ListActiveRounds(ctx)
		if err != nil {
			t.Fatalf("ListActiveRounds failed: %v", err)
		}
		if len(active) != 1 || active[0].ID != second.ID {
			t.Errorf("Expected only round 2 to be active, got %d", len(active))
		}
	})

	t.Run("duplicate round number conflicts", func(t *testing.T) {
		dup, dupContributions := newRound(group, 1, "alice")
		dup.Status = models.RoundCompleted
		if err := store.CreateRound(ctx, dup, dupContributions, nil); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})
}

func TestContributions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice", "bob")

	round, contributions := newRound(group, 1, "alice", "bob")
	if err := store.CreateRound(ctx, round, contributions, nil); err != nil {
		t.Fatalf("CreateRound failed: %v", err)
	}
	alice, bob := contributions[0], contributions[1]

	t.Run("CompleteContribution is idempotent", func(t *testing.T) {
		changed, err := store.CompleteContribution(ctx, alice.ID, "gateway-1", start.Add(time.Hour))
		if err != nil {
			t.Fatalf("CompleteContribution failed: %v", err)
		}
		if !changed {
			t.Error("Expected first completion to change the contribution")
		}

		changed, err = store.CompleteContribution(ctx, alice.ID, "gateway-2", start.Add(2*time.Hour))
		if err != nil {
			t.Fatalf("CompleteContribution failed: %v", err)
		}
		if changed {
			t.Error("Expected repeated completion to be a no-op")
		}

		stored, err := store.GetContribution(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetContribution failed: %v", err)
		}
		if stored.TransactionID != "gateway-1" {
			t.Errorf("Expected transaction gateway-1, got %s", stored.TransactionID)
		}
		if !stored.PaidAt.Equal(start.Add(time.Hour)) {
			t.Errorf("Expected paid at %v, got %v", start.Add(time.Hour), stored.PaidAt)
		}

		paid, err := store.CountByRoundAndStatus(ctx, round.ID, models.ContributionCompleted)
		if err != nil {
			t.Fatalf("CountByRoundAndStatus failed: %v", err)
		}
		if paid != 1 {
			t.Errorf("Expected 1 paid, got %d", paid)
		}
	})

	t.Run("CompleteContribution of a missing contribution", func(t *testing.T) {
		_, err := store.CompleteContribution(ctx, "missing", "", start)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ApplyPenalty flags pending contributions once", func(t *testing.T) {
		at := start.AddDate(0, 0, 23)

		applied, err := store.ApplyPenalty(ctx, bob.ID, decimal.NewFromInt(10), at)
		if err != nil {
			t.Fatalf("ApplyPenalty failed: %v", err)
		}
		if !applied {
			t.Error("Expected penalty to be applied")
		}

		applied, err = store.ApplyPenalty(ctx, bob.ID, decimal.NewFromInt(10), at.Add(time.Hour))
		if err != nil {
			t.Fatalf("ApplyPenalty failed: %v", err)
		}
		if applied {
			t.Error("Expected second penalty to be skipped")
		}

		applied, err = store.ApplyPenalty(ctx, alice.ID, decimal.NewFromInt(10), at)
		if err != nil {
			t.Fatalf("ApplyPenalty failed: %v", err)
		}
		if applied {
			t.Error("Expected paid contribution to be skipped")
		}

		pending, err := store.ListPending(ctx, round.ID)
		if err != nil {
			t.Fatalf("ListPending failed: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("Expected 1 pending contribution, got %d", len(pending))
		}
		if !pending[0].Late || !pending[0].PenaltyAmount.Equal(decimal.NewFromInt(10)) || !pending[0].PenalizedAt.Equal(at) {
			t.Errorf("Unexpected penalty state: late=%v amount=%s at=%v",
				pending[0].Late, pending[0].PenaltyAmount, pending[0].PenalizedAt)
		}

		// A late payer can still settle.
		if _, err := store.CompleteContribution(ctx, bob.ID, "", at.Add(2*time.Hour)); err != nil {
			t.Fatalf("CompleteContribution failed: %v", err)
		}
		stored, err := store.GetContribution(ctx, bob.ID)
		if err != nil {
			t.Fatalf("GetContribution failed: %v", err)
		}
		if stored.TransactionID != "txbob" {
			t.Errorf("Expected original transaction id to be kept, got %s", stored.TransactionID)
		}
	})
}

func TestNotifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, msg := range []string{"first", "second"} {
		if err := store.Notify(ctx, "alice", "g1", msg); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}
	if err := store.Notify(ctx, "bob", "g1", "other"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	notifications, err := store.ListNotifications(ctx, "alice")
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(notifications))
	}
	if notifications[0].Message != "first" || notifications[1].Message != "second" {
		t.Errorf("Expected oldest first, got %q then %q", notifications[0].Message, notifications[1].Message)
	}
}
