package complaint_test

import (
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify/mock implementation of the storage.Storage
// interface, allowing flexible expectation setting in tests.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetComplaint(id string) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStorage) QueryComplaints(f storage.Filter) ([]models.Complaint, error) {
	args := m.Called(f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStorage) AddComplaint(c *models.Complaint) (string, error) {
	args := m.Called(c)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) PatchComplaint(id string, p storage.Patch) error {
	args := m.Called(id, p)
	return args.Error(0)
}

func (m *MockStorage) ReplaceUpdates(id string, updates models.UpdateLog) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockStorage) DeleteComplaint(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) AddVote(id, userID string) (bool, error) {
	args := m.Called(id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SubscribeComplaints(ctx context.Context, f storage.Filter) (<-chan []models.Complaint, func()) {
	args := m.Called(ctx, f)
	return args.Get(0).(<-chan []models.Complaint), args.Get(1).(func())
}

func (m *MockStorage) LogActivity(entry *models.ActivityEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}
