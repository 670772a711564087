package testing

import (
	"context"
	"sync"

	"github.com/aristath/donorsync/internal/clients/donortools"
)

// SaveCall records one SaveDonation invocation on MockDonorTools
type SaveCall struct {
	Donation  donortools.OutgoingDonation
	PersonaID string
}

// MockDonorTools is a mock implementation of the DonorTools client for testing
type MockDonorTools struct {
	mu           sync.Mutex
	importResult *donortools.ImportResult
	importErr    error
	saveResult   *donortools.SaveResult
	saveErr      error
	importCalls  int
	saveCalls    []SaveCall
}

// NewMockDonorTools creates a mock that imports nothing and saves as persona 777, donation 888
func NewMockDonorTools() *MockDonorTools {
	return &MockDonorTools{
		importResult: &donortools.ImportResult{},
		saveResult:   &donortools.SaveResult{PersonaID: "777", DonationID: "888"},
	}
}

// SetImportResult sets the result returned by ImportDonations
func (m *MockDonorTools) SetImportResult(result *donortools.ImportResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importResult = result
	m.importErr = err
}

// SetSaveResult sets the result returned by SaveDonation
func (m *MockDonorTools) SetSaveResult(result *donortools.SaveResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveResult = result
	m.saveErr = err
}

// ImportDonations returns the configured import result
func (m *MockDonorTools) ImportDonations(ctx context.Context, cfg donortools.Config) (*donortools.ImportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importCalls++
	return m.importResult, m.importErr
}

// SaveDonation records the call and returns the configured save result
func (m *MockDonorTools) SaveDonation(ctx context.Context, cfg donortools.Config, donation donortools.OutgoingDonation, personaID string) (*donortools.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls = append(m.saveCalls, SaveCall{Donation: donation, PersonaID: personaID})
	return m.saveResult, m.saveErr
}

// ImportCalls returns how many times ImportDonations was called
func (m *MockDonorTools) ImportCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.importCalls
}

// SaveCalls returns the recorded SaveDonation calls
func (m *MockDonorTools) SaveCalls() []SaveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SaveCall, len(m.saveCalls))
	copy(out, m.saveCalls)
	return out
}
