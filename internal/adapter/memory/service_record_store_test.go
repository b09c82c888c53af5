package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/servicebay/internal/domain"
)

func strPtr(s string) *string { return &s }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newRecord(plate string, date time.Time) *domain.ServiceRecord {
	return domain.NewServiceRecord(plate, date, nil)
}

func TestServiceRecordStore_CreateWritesInsertHistory(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()
	store.RegisterServiceType("st-1", "เปลี่ยนน้ำมันเครื่อง")
	store.RegisterProduct("p-1", "Engine oil")

	record := newRecord("1กก2345", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	record.UpdatedBy = strPtr("staff1")
	record.Services = []domain.ServiceTypeRef{{ID: "st-1"}}
	record.Products = []domain.ProductLine{{ProductID: "p-1", Quantity: 4, PriceAtTime: 250}}

	require.NoError(t, store.Create(ctx, record))
	assert.Equal(t, "เปลี่ยนน้ำมันเครื่อง", record.Services[0].Name)
	assert.Equal(t, "Engine oil", record.Products[0].ProductName)
	assert.False(t, record.CreatedAt.IsZero())

	stored, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "เปลี่ยนน้ำมันเครื่อง", stored.Services[0].Name)
	assert.Equal(t, "Engine oil", stored.Products[0].ProductName)
	assert.Equal(t, 1000.0, stored.Total())

	history, err := store.History(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.AuditActionInsert, history[0].Action)
	assert.Equal(t, []string{domain.AllFields}, history[0].ChangedFields)
	assert.Equal(t, "staff1", history[0].ChangedBy)
	assert.Nil(t, history[0].OldData)
	assert.NotNil(t, history[0].NewData)
}

func TestServiceRecordStore_CreateRejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()

	record := newRecord("A", time.Now())
	record.Services = []domain.ServiceTypeRef{{ID: "missing"}}

	err := store.Create(ctx, record)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	_, err = store.FindByID(ctx, record.ID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestServiceRecordStore_UpdateActive(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()
	record := newRecord("1กก2345", time.Now())
	require.NoError(t, store.Create(ctx, record))

	updated, err := store.UpdateActive(ctx, record.ID, domain.ServiceRecordUpdate{
		LicensePlate: strPtr("1กก9999"),
	}, "staff1", strPtr("correct misread plate"), time.Now())
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "1กก9999", updated.LicensePlate)
	assert.Equal(t, "staff1", *updated.UpdatedBy)
	assert.Equal(t, "correct misread plate", *updated.ChangeReason)

	history, err := store.History(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	latest := history[0]
	assert.Equal(t, domain.AuditActionUpdate, latest.Action)
	assert.Equal(t, []string{domain.FieldLicensePlate}, latest.ChangedFields)
	assert.Equal(t, "1กก2345", latest.OldData[domain.FieldLicensePlate])
	assert.Equal(t, "1กก9999", latest.NewData[domain.FieldLicensePlate])
}

func TestServiceRecordStore_UpdateWithoutReasonKeepsPreviousReason(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()
	record := newRecord("1กก2345", time.Now())
	require.NoError(t, store.Create(ctx, record))

	ok, err := store.SoftDelete(ctx, record.ID, "staff1", strPtr("duplicate"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.Restore(ctx, record.ID, "staff1", strPtr("restored by mistake"))
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := store.UpdateActive(ctx, record.ID, domain.ServiceRecordUpdate{Notes: strPtr("oil")}, "staff2", nil, time.Now())
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.NotNil(t, updated.ChangeReason)
	assert.Equal(t, "restored by mistake", *updated.ChangeReason)
	assert.Equal(t, "staff2", *updated.UpdatedBy)

	history, err := store.History(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditActionUpdate, history[0].Action)
	assert.Nil(t, history[0].ChangeReason)
}

func TestServiceRecordStore_UpdateWithoutChangesStillAppends(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()
	record := newRecord("SAME", time.Now())
	require.NoError(t, store.Create(ctx, record))

	_, err := store.UpdateActive(ctx, record.ID, domain.ServiceRecordUpdate{LicensePlate: strPtr("SAME")}, "staff1", nil, time.Now())
	require.NoError(t, err)

	history, err := store.History(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotNil(t, history[0].ChangedFields)
	assert.Empty(t, history[0].ChangedFields)
}

func TestServiceRecordStore_UpdateMissingOrDeleted(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()

	updated, err := store.UpdateActive(ctx, "missing", domain.ServiceRecordUpdate{Notes: strPtr("x")}, "staff1", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, updated)

	record := newRecord("A", time.Now())
	require.NoError(t, store.Create(ctx, record))
	ok, err := store.SoftDelete(ctx, record.ID, "staff1", nil)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err = store.UpdateActive(ctx, record.ID, domain.ServiceRecordUpdate{Notes: strPtr("x")}, "staff1", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, updated)

	stored, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Notes)
}

func TestServiceRecordStore_SoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore(WithClock(fixedClock(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))))
	record := newRecord("A", time.Now())
	require.NoError(t, store.Create(ctx, record))

	ok, err := store.Restore(ctx, record.ID, "staff1", nil)
	require.NoError(t, err)
	assert.False(t, ok, "restore of an active record must be refused")

	ok, err = store.SoftDelete(ctx, record.ID, "staff1", strPtr("duplicate entry"))
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)
	firstDeletedAt := *deleted.DeletedAt
	assert.Equal(t, "staff1", *deleted.DeletedBy)
	assert.True(t, deleted.IsConsistent())

	ok, err = store.SoftDelete(ctx, record.ID, "staff1", strPtr("again"))
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, firstDeletedAt.Equal(*again.DeletedAt))
	assert.Equal(t, "duplicate entry", *again.ChangeReason)

	ok, err = store.Restore(ctx, record.ID, "staff2", strPtr("restored by mistake"))
	require.NoError(t, err)
	assert.True(t, ok)

	restored, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Nil(t, restored.DeletedBy)
	assert.Equal(t, "staff2", *restored.UpdatedBy)

	history, err := store.History(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.AuditActionRestore, history[0].Action)
	assert.Equal(t, domain.AuditActionDelete, history[1].Action)
	assert.Nil(t, history[1].NewData)
	assert.Equal(t, domain.AuditActionInsert, history[2].Action)

	// the fixed clock still yields a strict order
	assert.True(t, history[0].ChangedAt.After(history[1].ChangedAt))
	assert.True(t, history[1].ChangedAt.After(history[2].ChangedAt))
}

func TestServiceRecordStore_HistoryOfUnknownRecordIsEmpty(t *testing.T) {
	history, err := NewServiceRecordStore().History(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestServiceRecordStore_Listings(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()

	jan := newRecord("1กก2345", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	feb := newRecord("2ขข6789", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	mar := newRecord("3คค1111", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	for _, r := range []*domain.ServiceRecord{jan, feb, mar} {
		require.NoError(t, store.Create(ctx, r))
	}

	_, err := store.SoftDelete(ctx, feb.ID, "staff1", nil)
	require.NoError(t, err)
	_, err = store.SoftDelete(ctx, jan.ID, "staff1", nil)
	require.NoError(t, err)

	active, err := store.ListActive(ctx, domain.ServiceRecordFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, mar.ID, active[0].ID)

	deleted, err := store.ListDeleted(ctx, 0)
	require.NoError(t, err)
	require.Len(t, deleted, 2)
	assert.Equal(t, jan.ID, deleted[0].ID, "most recently deleted first")
	assert.Equal(t, feb.ID, deleted[1].ID)

	limited, err := store.ListDeleted(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = store.Restore(ctx, jan.ID, "staff1", nil)
	require.NoError(t, err)
	active, err = store.ListActive(ctx, domain.ServiceRecordFilter{LicensePlate: "กก"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, jan.ID, active[0].ID)
}

func TestServiceRecordStore_ConcurrentDeleteHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()
	record := newRecord("A", time.Now())
	require.NoError(t, store.Create(ctx, record))

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SoftDelete(ctx, record.ID, "staff", nil)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	history, err := store.History(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestServiceRecordStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewServiceRecordStore().SoftDelete(ctx, "id", "staff", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceRecordStore_SeedCatalog(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()
	store.RegisterProduct("p-1", "ผ้าเบรก")

	store.SeedCatalog([]string{"ล้างรถ", "เปลี่ยนน้ำมันเครื่อง"}, []string{"ผ้าเบรก", "แบตเตอรี่"})
	store.SeedCatalog([]string{"ล้างรถ"}, nil)

	types, err := store.ListServiceTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "ล้างรถ", types[0].Name)
	assert.Equal(t, "เปลี่ยนน้ำมันเครื่อง", types[1].Name)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, domain.Product{ID: "p-1", Name: "ผ้าเบรก"}, products[0])
	assert.Equal(t, "แบตเตอรี่", products[1].Name)

	record := newRecord("1กก2345", time.Now())
	record.Services = []domain.ServiceTypeRef{{ID: types[1].ID}}
	record.Products = []domain.ProductLine{{ProductID: products[1].ID, Quantity: 1, PriceAtTime: 2500}}
	require.NoError(t, store.Create(ctx, record))
	assert.Equal(t, "เปลี่ยนน้ำมันเครื่อง", record.Services[0].Name)
	assert.Equal(t, "แบตเตอรี่", record.Products[0].ProductName)
}

func TestServiceRecordStore_EmptyCatalog(t *testing.T) {
	ctx := context.Background()
	store := NewServiceRecordStore()

	types, err := store.ListServiceTypes(ctx)
	require.NoError(t, err)
	assert.NotNil(t, types)
	assert.Empty(t, types)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}
