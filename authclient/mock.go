package authclient

import (
	"context"
	"sync"
)

// MockClient is a hand-rolled Client stand-in for fsm/inputfuser/modes
// tests, in the teacher's no-testify table-driven style (nfc/manager_mock.go).
type MockClient struct {
	mu sync.Mutex

	Profile       EquipmentProfile
	ProfileErr    error
	CardDetails   map[int64]CardDetails
	CardDetailsErr error
	RegisterErr   error
	AuthorizeOK   bool
	AuthorizeErr  error
	FirstNames   map[int64]string
	FirstNameErr error

	StartedCalls      []uint32
	ShutdownCalls     []uint32
	AccessAttempts    []AccessAttemptCall
	AccessCompletions []int64
	RecordedIPs       []string
}

// AccessAttemptCall records one LogAccessAttempt invocation for test
// assertions.
type AccessAttemptCall struct {
	CardID      int64
	EquipmentID uint32
	Successful  bool
}

// NewMockClient returns a MockClient with an empty CardDetails table.
func NewMockClient() *MockClient {
	return &MockClient{CardDetails: make(map[int64]CardDetails)}
}

func (m *MockClient) EnsureRegistered(ctx context.Context, mac string) error {
	return m.RegisterErr
}

func (m *MockClient) GetProfile(ctx context.Context, mac string) (EquipmentProfile, error) {
	if m.ProfileErr != nil {
		return EquipmentProfile{}, m.ProfileErr
	}
	return m.Profile, nil
}

func (m *MockClient) GetCardDetails(ctx context.Context, cardID int64, equipmentTypeID uint32) (CardDetails, error) {
	if m.CardDetailsErr != nil {
		return CardDetails{}, m.CardDetailsErr
	}
	d, ok := m.CardDetails[cardID]
	if !ok {
		return CardDetails{CardType: CardInvalid}, nil
	}
	return d, nil
}

func (m *MockClient) LogStarted(ctx context.Context, equipmentID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartedCalls = append(m.StartedCalls, equipmentID)
}

func (m *MockClient) LogShutdown(ctx context.Context, equipmentID uint32, cardID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShutdownCalls = append(m.ShutdownCalls, equipmentID)
}

func (m *MockClient) LogAccessAttempt(ctx context.Context, cardID int64, equipmentID uint32, successful bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccessAttempts = append(m.AccessAttempts, AccessAttemptCall{cardID, equipmentID, successful})
}

func (m *MockClient) LogAccessCompletion(ctx context.Context, cardID int64, equipmentID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccessCompletions = append(m.AccessCompletions, cardID)
}

func (m *MockClient) RecordIP(ctx context.Context, equipmentID uint32, ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordedIPs = append(m.RecordedIPs, ip)
}

func (m *MockClient) AddUserAuthorization(ctx context.Context, cardID int64, equipmentTypeID uint32) (bool, error) {
	return m.AuthorizeOK, m.AuthorizeErr
}

func (m *MockClient) GetUserFirstName(ctx context.Context, cardID int64) (string, error) {
	if m.FirstNameErr != nil {
		return "", m.FirstNameErr
	}
	return m.FirstNames[cardID], nil
}

var _ Client = (*MockClient)(nil)
