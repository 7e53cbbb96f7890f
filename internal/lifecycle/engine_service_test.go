package lifecycle_test

import (
	"civicgo/backend/internal/lifecycle"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/stats"
	"civicgo/backend/internal/storage"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage drives the engine from tests: snapshots pushed into the
// channel appear to the engine as store change events.
type fakeStorage struct {
	mu        sync.Mutex
	snapshots chan []models.Complaint
	filters   []storage.Filter
	unsubbed  int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{snapshots: make(chan []models.Complaint, 4)}
}

func (f *fakeStorage) SubscribeComplaints(ctx context.Context, filter storage.Filter) (<-chan []models.Complaint, func()) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	return f.snapshots, func() {
		f.mu.Lock()
		f.unsubbed++
		f.mu.Unlock()
	}
}

func (f *fakeStorage) GetComplaint(id string) (*models.Complaint, error) { return nil, nil }
func (f *fakeStorage) QueryComplaints(filter storage.Filter) ([]models.Complaint, error) {
	return nil, nil
}
func (f *fakeStorage) AddComplaint(c *models.Complaint) (string, error) { return "", nil }
func (f *fakeStorage) PatchComplaint(id string, p storage.Patch) error    { return nil }
func (f *fakeStorage) ReplaceUpdates(id string, u models.UpdateLog) error { return nil }
func (f *fakeStorage) DeleteComplaint(id string) error                    { return nil }
func (f *fakeStorage) AddVote(id, userID string) (bool, error)            { return false, nil }
func (f *fakeStorage) LogActivity(entry *models.ActivityEntry) error      { return nil }

func recvEvent(t *testing.T, ch chan models.StreamEvent) models.StreamEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "subscriber channel closed unexpectedly")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return models.StreamEvent{}
	}
}

func startEngine(t *testing.T) (*lifecycle.EngineService, *fakeStorage, context.CancelFunc) {
	t.Helper()
	fake := newFakeStorage()
	engine := lifecycle.NewEngineService(fake)
	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	return engine, fake, cancel
}

// TestSubscribeReceivesCurrentStateImmediately verifies a new subscriber
// gets a snapshot and stats without waiting for a store event.
func TestSubscribeReceivesCurrentStateImmediately(t *testing.T) {
	// Arrange
	engine, _, cancel := startEngine(t)
	defer cancel()

	// Act
	sub, unsubscribe := engine.SubscribeToAll()
	defer unsubscribe()

	// Assert
	first := recvEvent(t, sub.Send)
	assert.Equal(t, "snapshot", first.Type)
	assert.Empty(t, first.Complaints)

	second := recvEvent(t, sub.Send)
	assert.Equal(t, "stats", second.Type)
	require.NotNil(t, second.Stats)
	assert.Equal(t, 0, second.Stats.Total)
}

// TestSnapshotReplacementFansOut verifies every store event replaces the
// projection wholesale and reaches subscribers as a snapshot/stats pair
// derived from the same data.
func TestSnapshotReplacementFansOut(t *testing.T) {
	// Arrange
	engine, fake, cancel := startEngine(t)
	defer cancel()

	sub, unsubscribe := engine.SubscribeToAll()
	defer unsubscribe()
	recvEvent(t, sub.Send) // initial snapshot
	recvEvent(t, sub.Send) // initial stats

	update := []models.Complaint{
		{ID: "c1", Status: models.StatusNew, Category: "Water Leak", Department: models.DeptWaterSanitation, Priority: models.PriorityHigh},
	}

	// Act
	fake.snapshots <- update

	// Assert
	snapshotEvent := recvEvent(t, sub.Send)
	assert.Equal(t, "snapshot", snapshotEvent.Type)
	require.Len(t, snapshotEvent.Complaints, 1)
	assert.Equal(t, "c1", snapshotEvent.Complaints[0].ID)

	statsEvent := recvEvent(t, sub.Send)
	require.NotNil(t, statsEvent.Stats)
	assert.Equal(t, stats.Compute(update), *statsEvent.Stats, "stats must be derived from the snapshot that produced them")
	assert.Equal(t, 1, statsEvent.Stats.Pending)
	assert.Equal(t, 1, statsEvent.Stats.ByDepartment[models.DeptWaterSanitation])
}

// TestCurrentSnapshotIsACopy pins the shared-state rule: consumers must
// never get a mutable handle into the projection.
func TestCurrentSnapshotIsACopy(t *testing.T) {
	// Arrange
	engine, fake, cancel := startEngine(t)
	defer cancel()

	sub, unsubscribe := engine.SubscribeToAll()
	defer unsubscribe()
	recvEvent(t, sub.Send)
	recvEvent(t, sub.Send)

	fake.snapshots <- []models.Complaint{{ID: "c1", Status: models.StatusNew}}
	recvEvent(t, sub.Send)
	recvEvent(t, sub.Send)

	// Act
	first := engine.CurrentSnapshot()
	require.Len(t, first, 1)
	first[0].ID = "tampered"

	// Assert
	second := engine.CurrentSnapshot()
	assert.Equal(t, "c1", second[0].ID, "mutating a returned snapshot must not touch the projection")
}

// TestUnsubscribeClosesChannel verifies the teardown handle releases the
// subscriber and closes its stream.
func TestUnsubscribeClosesChannel(t *testing.T) {
	// Arrange
	engine, _, cancel := startEngine(t)
	defer cancel()

	sub, unsubscribe := engine.SubscribeToAll()
	recvEvent(t, sub.Send)
	recvEvent(t, sub.Send)

	// Act
	unsubscribe()

	// Assert - channel closes once the hub processes the unregister
	select {
	case _, ok := <-sub.Send:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

// TestScopedSubscriptionsAreStoreLevel verifies department and user views
// are independent filtered store subscriptions, not client-side filters of
// the global projection.
func TestScopedSubscriptionsAreStoreLevel(t *testing.T) {
	// Arrange
	engine, fake, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	// Synchronize with the run loop so the engine's own global
	// subscription is registered first.
	sub, unsubscribe := engine.SubscribeToAll()
	defer unsubscribe()
	recvEvent(t, sub.Send)
	recvEvent(t, sub.Send)

	// Act
	_, unsubDept := engine.SubscribeByDepartment(ctx, models.DeptRoadsTransport)
	defer unsubDept()
	_, unsubUser := engine.SubscribeByUser(ctx, "citizen-7")
	defer unsubUser()

	// Assert - first filter is the engine's own global subscription
	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.filters, 3)
	assert.Equal(t, storage.Filter{}, fake.filters[0])
	assert.Equal(t, storage.Filter{Department: models.DeptRoadsTransport}, fake.filters[1])
	assert.Equal(t, storage.Filter{SubmitterID: "citizen-7"}, fake.filters[2])
}

// TestEngineShutdownReleasesStoreSubscription verifies cancelling the run
// context tears down the global subscription and closes subscriber
// channels.
func TestEngineShutdownReleasesStoreSubscription(t *testing.T) {
	// Arrange
	engine, fake, cancel := startEngine(t)
	sub, _ := engine.SubscribeToAll()
	recvEvent(t, sub.Send)
	recvEvent(t, sub.Send)

	// Act
	cancel()

	// Assert
	select {
	case _, ok := <-sub.Send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for shutdown close")
	}

	assert.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.unsubbed == 1
	}, 2*time.Second, 10*time.Millisecond)
}
