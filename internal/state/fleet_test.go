package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-fleet/internal/cloud"
	"github.com/ukydev/moto-fleet/internal/db"
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/validators"
)

var testNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

func sequentialIDs() func(prefix string) string {
	var mu sync.Mutex
	n := 0
	return func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func testOptions() Options {
	return Options{
		WeeklyTarget: 650,
		NewID:        sequentialIDs(),
		Now:          func() time.Time { return testNow },
	}
}

func openTestFleet(t *testing.T, store db.KeyValueStore, opts Options) *Fleet {
	t.Helper()
	client := cloud.NewClient(store, "main", cloud.WithDelays(0, 0))
	f, err := Open(context.Background(), models.FleetInfo{ID: "main", Name: "Main Fleet"}, client, opts)
	require.NoError(t, err)
	return f
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, fleetID string, batch []models.Notification) error {
	args := m.Called(ctx, fleetID, batch)
	return args.Error(0)
}

func TestOpen_EmptyStoreStartsEmpty(t *testing.T) {
	f := openTestFleet(t, db.NewMemoryStore(0), testOptions())
	snap := f.Snapshot()
	assert.NotNil(t, snap.Bikes)
	assert.Empty(t, snap.Bikes)
	assert.Empty(t, snap.Notifications)
}

func TestOpen_LoadsPersistedCollections(t *testing.T) {
	store := db.NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "mf_v2_main_bikes", `[{"id":"bike-1","make":"Honda","licenseNumber":"CA 1","status":"active"}]`))
	require.NoError(t, store.Set(ctx, "drivers", `[{"id":"drv-1","name":"Sipho","idNumber":"1"}]`))

	f := openTestFleet(t, store, testOptions())
	require.Len(t, f.Bikes(), 1)
	require.Len(t, f.Drivers(), 1)
	assert.Equal(t, "Sipho", f.Drivers()[0].Name)
}

func TestAddBike_PersistsAndAssignsID(t *testing.T) {
	store := db.NewMemoryStore(0)
	f := openTestFleet(t, store, testOptions())

	b, err := f.AddBike(context.Background(), models.Bike{Make: "Honda", LicenseNumber: "CA 123", Status: models.BikeActive})
	require.NoError(t, err)
	assert.Equal(t, "bike-1", b.ID)

	reopened := openTestFleet(t, store, testOptions())
	got, ok := reopened.Bike("bike-1")
	require.True(t, ok)
	assert.Equal(t, "CA 123", got.LicenseNumber)
}

func TestAddBike_ValidationFails(t *testing.T) {
	f := openTestFleet(t, db.NewMemoryStore(0), testOptions())
	_, err := f.AddBike(context.Background(), models.Bike{Make: "Honda"})
	var verrs validators.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
	assert.Empty(t, f.Bikes())
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := openTestFleet(t, db.NewMemoryStore(0), testOptions())
	d, err := f.AddDriver(ctx, models.Driver{Name: "Thabo", IDNumber: "8001015009087"})
	require.NoError(t, err)
	assert.Equal(t, models.DateOf(testNow), d.JoinedAt)

	d.Phone = "082 123 4567"
	require.NoError(t, f.UpdateDriver(ctx, d))
	got, _ := f.Driver(d.ID)
	assert.Equal(t, "082 123 4567", got.Phone)

	require.NoError(t, f.DeleteDriver(ctx, d.ID))
	_, ok := f.Driver(d.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, f.DeleteDriver(ctx, d.ID), ErrNotFound)
	assert.ErrorIs(t, f.UpdateDriver(ctx, d), ErrNotFound)
}

func TestDeleteDriver_NoCascade(t *testing.T) {
	ctx := context.Background()
	f := openTestFleet(t, db.NewMemoryStore(0), testOptions())
	d, err := f.AddDriver(ctx, models.Driver{Name: "Thabo", IDNumber: "1"})
	require.NoError(t, err)
	_, err = f.AddPayment(ctx, models.Payment{DriverID: d.ID, Amount: 650, Type: models.PaymentRental})
	require.NoError(t, err)

	require.NoError(t, f.DeleteDriver(ctx, d.ID))
	require.Len(t, f.Payments(), 1)
	assert.Equal(t, d.ID, f.Payments()[0].DriverID)
}

func TestAddPayment_Defaults(t *testing.T) {
	f := openTestFleet(t, db.NewMemoryStore(0), testOptions())
	p, err := f.AddPayment(context.Background(), models.Payment{DriverID: "drv-1", Amount: 650, Type: models.PaymentRental})
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2024, time.March, 10), p.Date)
	assert.Equal(t, 2, p.WeekNumber)

	p, err = f.AddPayment(context.Background(), models.Payment{
		DriverID: "drv-1", Amount: 650, Type: models.PaymentRental,
		Date: models.NewDate(2024, time.March, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, p.WeekNumber)
}

func TestMutation_QuotaLeavesStateUnchanged(t *testing.T) {
	store := db.NewMemoryStore(200)
	f := openTestFleet(t, store, testOptions())

	_, err := f.AddWorkshop(context.Background(), models.Workshop{Name: "Big Workshop", Address: string(make([]byte, 300))})
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrQuotaExceeded)
	assert.Empty(t, f.Workshops())
}

func TestSetStatuses(t *testing.T) {
	ctx := context.Background()
	f := openTestFleet(t, db.NewMemoryStore(0), testOptions())

	fine, err := f.AddFine(ctx, models.TrafficFine{BikeID: "bike-1", Amount: 500, Status: models.FineUnpaid})
	require.NoError(t, err)
	fine, err = f.SetFineStatus(ctx, fine.ID, models.FinePaid)
	require.NoError(t, err)
	assert.Equal(t, models.FinePaid, fine.Status)
	// Any transition is allowed, including back to unpaid.
	_, err = f.SetFineStatus(ctx, fine.ID, models.FineUnpaid)
	require.NoError(t, err)
	_, err = f.SetFineStatus(ctx, fine.ID, "lost")
	assert.Error(t, err)
	_, err = f.SetFineStatus(ctx, "fine-404", models.FinePaid)
	assert.ErrorIs(t, err, ErrNotFound)

	acc, err := f.AddAccident(ctx, models.AccidentReport{BikeID: "bike-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AccidentReported, acc.Status)
	acc, err = f.SetAccidentStatus(ctx, acc.ID, models.AccidentClosed)
	require.NoError(t, err)
	assert.Equal(t, models.AccidentClosed, acc.Status)
}

func TestApply_ReplacesEverything(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore(0)
	f := openTestFleet(t, store, testOptions())
	_, err := f.AddBike(ctx, models.Bike{Make: "Honda", LicenseNumber: "A", Status: models.BikeIdle})
	require.NoError(t, err)

	err = f.Apply(ctx, func(p models.Payload) (models.Payload, error) {
		return models.Payload{Drivers: []models.Driver{{ID: "drv-9", Name: "Imported", IDNumber: "9"}}}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, f.Bikes())
	assert.Len(t, f.Drivers(), 1)

	raw, found, err := store.Get(ctx, "mf_v2_main_bikes")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "[]", raw)
}

func TestApply_ErrorKeepsState(t *testing.T) {
	f := openTestFleet(t, db.NewMemoryStore(0), testOptions())
	err := f.Apply(context.Background(), func(p models.Payload) (models.Payload, error) {
		return p, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

// failingStore rejects writes to one key.
type failingStore struct {
	db.KeyValueStore
	key string
}

func (s failingStore) Set(ctx context.Context, key, value string) error {
	if key == s.key {
		return db.ErrQuotaExceeded
	}
	return s.KeyValueStore.Set(ctx, key, value)
}

func TestApply_PartialWriteIsRestored(t *testing.T) {
	ctx := context.Background()
	mem := db.NewMemoryStore(0)
	f := openTestFleet(t, mem, testOptions())
	_, err := f.AddDriver(ctx, models.Driver{Name: "Thabo", IDNumber: "1"})
	require.NoError(t, err)
	_, err = f.AddBike(ctx, models.Bike{Make: "Honda", LicenseNumber: "A", Status: models.BikeIdle})
	require.NoError(t, err)
	drivers, _, err := mem.Get(ctx, "mf_v2_main_drivers")
	require.NoError(t, err)

	client := cloud.NewClient(failingStore{KeyValueStore: mem, key: "mf_v2_main_bikes"}, "main", cloud.WithDelays(0, 0))
	broken, err := Open(ctx, models.FleetInfo{ID: "main", Name: "Main Fleet"}, client, testOptions())
	require.NoError(t, err)

	err = broken.Apply(ctx, func(p models.Payload) (models.Payload, error) {
		return models.Payload{Drivers: []models.Driver{{ID: "drv-9", Name: "Imported", IDNumber: "9"}}}, nil
	})
	assert.ErrorIs(t, err, db.ErrQuotaExceeded)
	require.Len(t, broken.Drivers(), 1)
	assert.Equal(t, "Thabo", broken.Drivers()[0].Name)
	assert.Len(t, broken.Bikes(), 1)

	for _, key := range models.CollectionKeys {
		raw, _, err := mem.Get(ctx, "mf_v2_main_"+key)
		require.NoError(t, err)
		assert.NotContains(t, raw, "drv-9", key)
	}
	restored, _, err := mem.Get(ctx, "mf_v2_main_drivers")
	require.NoError(t, err)
	assert.JSONEq(t, drivers, restored)

	reopened := openTestFleet(t, mem, testOptions())
	assert.Len(t, reopened.Bikes(), 1)
	require.Len(t, reopened.Drivers(), 1)
	assert.Equal(t, "Thabo", reopened.Drivers()[0].Name)
}

func TestRunAutomation(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockNotifier)
	opts := testOptions()
	opts.Notifier = notifier
	f := openTestFleet(t, db.NewMemoryStore(0), opts)

	paid, err := f.AddDriver(ctx, models.Driver{Name: "Paid", IDNumber: "1"})
	require.NoError(t, err)
	_, err = f.AddDriver(ctx, models.Driver{Name: "Owing", IDNumber: "2"})
	require.NoError(t, err)
	_, err = f.AddPayment(ctx, models.Payment{DriverID: paid.ID, Amount: 700, Type: models.PaymentRental})
	require.NoError(t, err)

	notifier.On("Publish", mock.Anything, "main", mock.MatchedBy(func(batch []models.Notification) bool {
		return len(batch) == 1 && batch[0].DriverName == "Owing"
	})).Return(errors.New("broker down")).Once()

	fresh, err := f.RunAutomation(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 650.0, fresh[0].AmountDue)
	assert.Equal(t, fresh, f.Notifications())
	notifier.AssertExpectations(t)
}

func TestRunAutomation_CapsNotifications(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	opts.NotificationLimit = 5
	f := openTestFleet(t, db.NewMemoryStore(0), opts)
	for i := 0; i < 3; i++ {
		_, err := f.AddDriver(ctx, models.Driver{Name: fmt.Sprintf("D%d", i), IDNumber: "x"})
		require.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		_, err := f.RunAutomation(ctx)
		require.NoError(t, err)
	}
	assert.Len(t, f.Notifications(), 5)

	require.NoError(t, f.ClearNotifications(ctx))
	assert.Empty(t, f.Notifications())
}

func TestVerifyDriver(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	opts.VerifyDelay = time.Millisecond
	f := openTestFleet(t, db.NewMemoryStore(0), opts)
	d, err := f.AddDriver(ctx, models.Driver{Name: "Lerato", IDNumber: "1"})
	require.NoError(t, err)

	d, err = f.VerifyDriver(ctx, d.ID, models.CheckEnatis)
	require.NoError(t, err)
	assert.True(t, d.EnatisVerified)
	assert.False(t, d.ContactVerified)

	d, err = f.VerifyDriver(ctx, d.ID, models.CheckContact)
	require.NoError(t, err)
	assert.True(t, d.ContactVerified)

	_, err = f.VerifyDriver(ctx, d.ID, "credit")
	assert.Error(t, err)
	_, err = f.VerifyDriver(ctx, "drv-404", models.CheckEnatis)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyDriver_Cancelled(t *testing.T) {
	opts := testOptions()
	opts.VerifyDelay = time.Hour
	f := openTestFleet(t, db.NewMemoryStore(0), opts)
	d, err := f.AddDriver(context.Background(), models.Driver{Name: "Lerato", IDNumber: "1"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.VerifyDriver(ctx, d.ID, models.CheckEnatis)
	assert.ErrorIs(t, err, context.Canceled)
	got, _ := f.Driver(d.ID)
	assert.False(t, got.EnatisVerified)
}

func TestDeleteLastRecord_LegacyDataStaysGone(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore(0)
	require.NoError(t, store.Set(ctx, "bikes", `[{"id":"bike-old","make":"Honda","licenseNumber":"CA 9","status":"active"}]`))

	f := openTestFleet(t, store, testOptions())
	require.Len(t, f.Bikes(), 1)
	require.NoError(t, f.DeleteBike(ctx, "bike-old"))

	reopened := openTestFleet(t, store, testOptions())
	assert.Empty(t, reopened.Bikes())
}
