package donations

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aristath/donorsync/internal/clients/donortools"
	testingpkg "github.com/aristath/donorsync/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service   *Service
	client    *testingpkg.MockDonorTools
	donations *Repository
	donors    *DonorRepository
}

func newServiceFixture(t *testing.T, rememberPersonas bool) *serviceFixture {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "donations")
	t.Cleanup(cleanup)

	client := testingpkg.NewMockDonorTools()
	donations := NewRepository(db.Conn(), zerolog.Nop())
	donors := NewDonorRepository(db.Conn(), zerolog.Nop())

	return &serviceFixture{
		service:   NewService(client, donations, donors, rememberPersonas, zerolog.Nop()),
		client:    client,
		donations: donations,
		donors:    donors,
	}
}

var testCfg = donortools.Config{Endpoint: "https://api.test", FundID: 13860, SourceID: 24165}

func TestImport_StoresNewDonationsOnce(t *testing.T) {
	f := newServiceFixture(t, true)
	f.client.SetImportResult(&donortools.ImportResult{
		Donations: testingpkg.NewRemoteDonationFixtures(),
		Diagnostics: []donortools.Diagnostic{
			{Kind: donortools.DiagnosticMissingPersona, DonationID: "D2", Message: "no persona"},
		},
	}, nil)

	summary, err := f.service.Import(context.Background(), testCfg)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.Skipped)
	require.Len(t, summary.Diagnostics, 1)

	summary, err = f.service.Import(context.Background(), testCfg)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 2, summary.Skipped)

	count, err := f.donations.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	d1, err := f.donations.GetByRemoteID("D1")
	require.NoError(t, err)
	require.NotNil(t, d1)
	assert.Equal(t, OriginOffline, d1.Origin)
	assert.Equal(t, int64(5000), d1.AmountCents)
	assert.Equal(t, "50", d1.Amount.String())
	assert.Equal(t, int64(1273622400), d1.CreatedTime)
	assert.Equal(t, "Jane", d1.FirstName)
	assert.Equal(t, "ON", d1.Region)

	d2, err := f.donations.GetByRemoteID("D2")
	require.NoError(t, err)
	require.NotNil(t, d2)
	assert.Empty(t, d2.PersonaID)
	assert.Empty(t, d2.Email)

	personaID, err := f.donors.GetPersonaID("jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "D1", personaID)
}

func TestImport_ConcurrentRunsStoreEachDonationOnce(t *testing.T) {
	f := newServiceFixture(t, true)
	f.client.SetImportResult(&donortools.ImportResult{Donations: testingpkg.NewRemoteDonationFixtures()}, nil)

	const runs = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		imported int
		skipped  int
		errs     []error
	)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := f.service.Import(context.Background(), testCfg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			imported += summary.Imported
			skipped += summary.Skipped
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 2*runs-2, skipped)

	count, err := f.donations.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImport_ClientErrorWritesNothing(t *testing.T) {
	f := newServiceFixture(t, true)
	f.client.SetImportResult(nil, &donortools.MalformedResponseError{Resource: donortools.DonationsResource, Err: errors.New("eof")})

	_, err := f.service.Import(context.Background(), testCfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, donortools.ErrMalformedResponse)

	count, err := f.donations.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImport_EmptyDiagnosticsIsNotNil(t *testing.T) {
	f := newServiceFixture(t, true)

	summary, err := f.service.Import(context.Background(), testCfg)
	require.NoError(t, err)
	assert.NotNil(t, summary.Diagnostics)
	assert.Zero(t, summary.Imported)
}

func TestListRemote_DoesNotStore(t *testing.T) {
	f := newServiceFixture(t, true)
	f.client.SetImportResult(&donortools.ImportResult{Donations: testingpkg.NewRemoteDonationFixtures()}, nil)

	result, err := f.service.ListRemote(context.Background(), testCfg)
	require.NoError(t, err)
	assert.Len(t, result.Donations, 2)

	count, err := f.donations.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSave_RecordsOnlineDonationAndRemembersPersona(t *testing.T) {
	f := newServiceFixture(t, true)
	donation := testingpkg.NewOutgoingDonationFixture()

	result, err := f.service.Save(context.Background(), testCfg, donation, "")
	require.NoError(t, err)
	assert.Equal(t, "777", result.PersonaID)
	assert.Equal(t, "888", result.DonationID)

	calls := f.client.SaveCalls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].PersonaID, "first save creates a persona")

	stored, err := f.donations.GetByRemoteID("888")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, OriginOnline, stored.Origin)
	assert.Equal(t, int64(1234), stored.AmountCents)
	assert.Equal(t, "777", stored.PersonaID)

	// Second save from the same donor reuses the persona
	_, err = f.service.Save(context.Background(), testCfg, donation, "")
	require.NoError(t, err)
	calls = f.client.SaveCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "777", calls[1].PersonaID)

	// The mock reuses donation id 888, so the local insert is rejected but the save still succeeds
	count, err := f.donations.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSave_WithoutRememberingPersonas(t *testing.T) {
	f := newServiceFixture(t, false)
	require.NoError(t, f.donors.Remember("jane@example.com", "555"))

	_, err := f.service.Save(context.Background(), testCfg, testingpkg.NewOutgoingDonationFixture(), "")
	require.NoError(t, err)

	calls := f.client.SaveCalls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].PersonaID)
}

func TestSave_PartialSaveRemembersPersona(t *testing.T) {
	f := newServiceFixture(t, true)
	f.client.SetSaveResult(nil, &donortools.PartialSaveError{PersonaID: "901", Err: errors.New("status 500")})

	_, err := f.service.Save(context.Background(), testCfg, testingpkg.NewOutgoingDonationFixture(), "")
	var partial *donortools.PartialSaveError
	require.True(t, errors.As(err, &partial))

	personaID, err := f.donors.GetPersonaID("JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "901", personaID)

	count, err := f.donations.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSave_ExplicitPersonaWins(t *testing.T) {
	f := newServiceFixture(t, true)
	require.NoError(t, f.donors.Remember("jane@example.com", "555"))

	_, err := f.service.Save(context.Background(), testCfg, testingpkg.NewOutgoingDonationFixture(), "321")
	require.NoError(t, err)

	calls := f.client.SaveCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "321", calls[0].PersonaID)
}
