package equb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/equb/internal/metrics"
	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/selection"
	"github.com/mmynk/equb/internal/storage/sqlite"
)

var baseTime = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentNotification struct {
	MemberID string
	GroupID  string
	Message  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, memberID, groupID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{MemberID: memberID, GroupID: groupID, Message: message})
	return r.err
}

func (r *recordingNotifier) For(memberID string) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.sent {
		if n.MemberID == memberID {
			out = append(out, n)
		}
	}
	return out
}

// fixedSource always returns the same lottery index.
type fixedSource int

func (f fixedSource) IntN(int) int { return int(f) }

type fixture struct {
	store    *sqlite.SQLiteStore
	manager  *Manager
	notifier *recordingNotifier
	clock    *testClock
	metrics  *metrics.Metrics
	groupID  string
	admin    string
}

type fixtureOptions struct {
	method  models.SelectionMethod
	source  selection.Source
	penalty decimal.Decimal
}

// newFixture creates a group configured for equb whose first member is the admin.
// Members join one minute apart, in the order given.
func newFixture(t *testing.T, opts fixtureOptions, members ...string) *fixture {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "equb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if opts.method == "" {
		opts.method = models.SelectionFixedTurn
	}
	if opts.source == nil {
		opts.source = selection.NewSeededSource(1, 2)
	}

	clock := &testClock{now: baseTime}
	notifier := &recordingNotifier{}
	mt := metrics.New(prometheus.NewRegistry())

	ctx := context.Background()
	group := &models.Group{
		Name:                "Test Equb",
		EqubAmount:          decimal.NewFromInt(100),
		SelectionMethod:     opts.method,
		GracePeriodDays:     DefaultGracePeriodDays,
		PaymentDeadlineDays: DefaultPaymentDeadlineDays,
		PenaltyAmount:       opts.penalty,
	}
	require.NoError(t, store.CreateGroup(ctx, group))

	for i, id := range members {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleAdmin
		}
		require.NoError(t, store.AddMember(ctx, &models.GroupMember{
			GroupID:  group.ID,
			MemberID: id,
			Role:     role,
			Status:   models.MemberActive,
			JoinedAt: baseTime.Add(-time.Duration(len(members)-i) * time.Minute),
		}))
	}

	manager := NewManager(store,
		WithClock(clock.Now),
		WithRandomSource(opts.source),
		WithNotifier(notifier),
		WithMetrics(mt),
	)

	admin := ""
	if len(members) > 0 {
		admin = members[0]
	}

	return &fixture{
		store:    store,
		manager:  manager,
		notifier: notifier,
		clock:    clock,
		metrics:  mt,
		groupID:  group.ID,
		admin:    admin,
	}
}

// pay confirms the contributions of the given members for a round.
func (f *fixture) pay(t *testing.T, round *models.Round, members ...string) {
	t.Helper()
	ctx := context.Background()

	contributions, err := f.store.ListContributions(ctx, round.ID)
	require.NoError(t, err)

	byMember := make(map[string]*models.Contribution, len(contributions))
	for _, c := range contributions {
		byMember[c.MemberID] = c
	}
	for _, m := range members {
		c, ok := byMember[m]
		require.True(t, ok, "member %s has no contribution in round %d", m, round.RoundNumber)
		_, err := f.manager.ConfirmPayment(ctx, c.ID, "tx-"+m)
		require.NoError(t, err)
	}
}

// payAll confirms every contribution of the round.
func (f *fixture) payAll(t *testing.T, round *models.Round) {
	t.Helper()
	contributions, err := f.store.ListContributions(context.Background(), round.ID)
	require.NoError(t, err)
	members := make([]string, len(contributions))
	for i, c := range contributions {
		members[i] = c.MemberID
	}
	f.pay(t, round, members...)
}
