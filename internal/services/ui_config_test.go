package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stackmed/formconfig/backend/internal/cache"
	"github.com/stackmed/formconfig/backend/internal/config"
	"github.com/stackmed/formconfig/backend/internal/models"
	"github.com/stackmed/formconfig/backend/pkg/response"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory sqlite database with the same gorm
// settings the server uses (error translation included).
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.UIConfig{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *UIConfigService {
	t.Helper()
	return NewUIConfigService(newTestDB(t), cache.NewManager(&config.CacheConfig{Enabled: false}))
}

// newCachedService wires the service to a real Redis protocol server so the
// cache side of the coherency protocol is observable.
func newCachedService(t *testing.T) (*UIConfigService, *cache.Manager, *gorm.DB) {
	t.Helper()

	mr := miniredis.RunT(t)
	m := cache.NewManager(&config.CacheConfig{Enabled: true, Addr: mr.Addr(), TTL: 60})
	t.Cleanup(func() { m.Close() })

	db := newTestDB(t)
	return NewUIConfigService(db, m), m, db
}

func registrationRequest(tenantID string) *CreateUIConfigRequest {
	minLen := 2
	required := true
	return &CreateUIConfigRequest{
		TenantID:    tenantID,
		Type:        models.ConfigTypeRegistration,
		Description: "patient registration form",
		Fields: models.FieldList{
			{ID: "1", Type: models.FieldTypeText, Name: "first_name",
				Validation: &models.FieldValidation{Required: &required, MinLength: &minLen}},
		},
	}
}

func assertAppError(t *testing.T, err error, status int) {
	t.Helper()
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an AppError, got %T: %v", err, err)
	}
	if appErr.HTTPStatus != status {
		t.Fatalf("expected HTTP status %d, got %d (%s)", status, appErr.HTTPStatus, appErr.Message)
	}
}

func TestUIConfigService_CreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, registrationRequest("acme"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("created config should have a store-assigned id")
	}

	got, err := svc.Get(ctx, "acme", models.ConfigTypeRegistration)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Description != "patient registration form" {
		t.Errorf("Description = %q, expected the created value", got.Description)
	}
	if len(got.Fields) != 1 || got.Fields[0].Name != "first_name" {
		t.Errorf("fields should survive the store round trip, got %v", got.Fields)
	}
}

func TestUIConfigService_GetNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "nobody", models.ConfigTypeBilling)
	assertAppError(t, err, 404)
}

func TestUIConfigService_CreateDuplicateConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, registrationRequest("acme")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := svc.Create(ctx, registrationRequest("acme"))
	assertAppError(t, err, 409)

	// same type under a different tenant is a distinct key
	if _, err := svc.Create(ctx, registrationRequest("globex")); err != nil {
		t.Errorf("different tenant should not conflict: %v", err)
	}
}

func TestUIConfigService_CreateRaceLoserGetsConflict(t *testing.T) {
	db := newTestDB(t)
	svc := NewUIConfigService(db, cache.NewManager(&config.CacheConfig{Enabled: false}))

	// Slip a competing insert in after the duplicate pre-check but before the
	// service's own insert, so the unique index decides the race.
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("inject_competing_insert", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		competing := models.UIConfig{
			TenantID:   "acme",
			ConfigType: models.ConfigTypeRegistration,
			Fields:     models.FieldList{},
		}
		if err := db.Create(&competing).Error; err != nil {
			t.Errorf("competing insert failed: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	_, err = svc.Create(context.Background(), registrationRequest("acme"))
	assertAppError(t, err, 409)
}

func TestUIConfigService_UpdatePartialMerge(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, registrationRequest("acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// description only: fields stay untouched
	desc := "updated description"
	updated, err := svc.Update(ctx, "acme", models.ConfigTypeRegistration, &UpdateUIConfigRequest{Description: &desc})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Description != "updated description" {
		t.Errorf("Description = %q, expected the new value", updated.Description)
	}
	if len(updated.Fields) != 1 || updated.Fields[0].Name != "first_name" {
		t.Errorf("unset fields must leave the stored value unchanged, got %v", updated.Fields)
	}

	// fields only: description stays untouched
	newFields := models.FieldList{
		{ID: "2", Type: models.FieldTypeCheckbox, Name: "consent"},
	}
	updated, err = svc.Update(ctx, "acme", models.ConfigTypeRegistration, &UpdateUIConfigRequest{Fields: &newFields})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Description != "updated description" {
		t.Errorf("unset description must stay unchanged, got %q", updated.Description)
	}
	if len(updated.Fields) != 1 || updated.Fields[0].Name != "consent" {
		t.Errorf("fields should be replaced, got %v", updated.Fields)
	}
}

func TestUIConfigService_UpdateNotFound(t *testing.T) {
	svc := newTestService(t)

	desc := "anything"
	_, err := svc.Update(context.Background(), "nobody", models.ConfigTypeRegistration, &UpdateUIConfigRequest{Description: &desc})
	assertAppError(t, err, 404)
}

func TestUIConfigService_DeleteThenGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, registrationRequest("acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(ctx, "acme", models.ConfigTypeRegistration); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := svc.Get(ctx, "acme", models.ConfigTypeRegistration)
	assertAppError(t, err, 404)

	// deleting again is not found
	err = svc.Delete(ctx, "acme", models.ConfigTypeRegistration)
	assertAppError(t, err, 404)
}

func TestUIConfigService_ListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, registrationRequest("acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, &CreateUIConfigRequest{TenantID: "acme", Type: models.ConfigTypeBilling}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, registrationRequest("globex")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	all, err := svc.List(ctx, &UIConfigListRequest{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("absent filters should match all, got %d configs", len(all))
	}

	acme, err := svc.List(ctx, &UIConfigListRequest{TenantID: "acme"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(acme) != 2 {
		t.Fatalf("tenant filter should match 2 configs, got %d", len(acme))
	}
	for _, cfg := range acme {
		if cfg.TenantID != "acme" {
			t.Errorf("unexpected tenant %q in filtered list", cfg.TenantID)
		}
	}

	billing, err := svc.List(ctx, &UIConfigListRequest{TenantID: "acme", Type: string(models.ConfigTypeBilling)})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(billing) != 1 || billing[0].ConfigType != models.ConfigTypeBilling {
		t.Errorf("filters are conjunctive, got %v", billing)
	}
}

func TestUIConfigService_CacheCoherency(t *testing.T) {
	svc, m, db := newCachedService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, registrationRequest("acme"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// create populates the cache: an immediate lookup hits
	cached, hit := m.Lookup(ctx, "acme", models.ConfigTypeRegistration)
	if !hit {
		t.Fatal("lookup right after create should hit the cache")
	}
	if cached.Description != created.Description || len(cached.Fields) != 1 {
		t.Errorf("cached snapshot should match the written document, got %+v", cached)
	}

	// the hit is served without a store round trip: remove the row behind
	// the store's back and Get still answers from the cache
	if err := db.Exec("DELETE FROM ui_configs").Error; err != nil {
		t.Fatalf("failed to remove row: %v", err)
	}
	got, err := svc.Get(ctx, "acme", models.ConfigTypeRegistration)
	if err != nil {
		t.Fatalf("Get should be served from cache: %v", err)
	}
	if got.Description != created.Description {
		t.Errorf("cache-served document mismatch: %q", got.Description)
	}
}

func TestUIConfigService_UpdateRefreshesCache(t *testing.T) {
	svc, m, _ := newCachedService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, registrationRequest("acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	desc := "second revision"
	if _, err := svc.Update(ctx, "acme", models.ConfigTypeRegistration, &UpdateUIConfigRequest{Description: &desc}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cached, hit := m.Lookup(ctx, "acme", models.ConfigTypeRegistration)
	if !hit {
		t.Fatal("lookup right after update should hit the cache")
	}
	if cached.Description != "second revision" {
		t.Errorf("cache should hold the post-update snapshot, got %q", cached.Description)
	}
}

func TestUIConfigService_DeleteInvalidatesCache(t *testing.T) {
	svc, m, _ := newCachedService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, registrationRequest("acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := svc.Delete(ctx, "acme", models.ConfigTypeRegistration); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, hit := m.Lookup(ctx, "acme", models.ConfigTypeRegistration); hit {
		t.Error("lookup right after delete should miss")
	}
}

func TestUIConfigService_FlushCache(t *testing.T) {
	svc, m, _ := newCachedService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, registrationRequest("acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, registrationRequest("globex")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	svc.FlushCache(ctx)

	if _, hit := m.Lookup(ctx, "acme", models.ConfigTypeRegistration); hit {
		t.Error("flush should clear every tenant's entries")
	}
	if _, hit := m.Lookup(ctx, "globex", models.ConfigTypeRegistration); hit {
		t.Error("flush should clear every tenant's entries")
	}

	// the store is untouched: the next read repopulates
	if _, err := svc.Get(ctx, "acme", models.ConfigTypeRegistration); err != nil {
		t.Errorf("configs must survive a cache flush: %v", err)
	}
	if _, hit := m.Lookup(ctx, "acme", models.ConfigTypeRegistration); !hit {
		t.Error("a read after the flush should repopulate the cache")
	}
}

func TestCheckFieldPatterns_Valid(t *testing.T) {
	fields := models.FieldList{
		{ID: "1", Type: models.FieldTypeText, Name: "age",
			Validation: &models.FieldValidation{Pattern: "[0-9]+"}},
		{ID: "2", Type: models.FieldTypeText, Name: "free_text"}, // no pattern
	}

	if err := checkFieldPatterns(fields); err != nil {
		t.Errorf("valid patterns should pass, got %v", err)
	}
}

func TestCheckFieldPatterns_Invalid(t *testing.T) {
	fields := models.FieldList{
		{ID: "7", Type: models.FieldTypeText, Name: "broken",
			Validation: &models.FieldValidation{Pattern: "[0-9"}},
	}

	err := checkFieldPatterns(fields)
	if err == nil {
		t.Fatal("an uncompilable pattern must be rejected at write time")
	}
	assertAppError(t, err, 400)
}

func TestUIConfigService_CreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), &CreateUIConfigRequest{
		TenantID: "acme",
		Type:     models.ConfigType("payroll"),
	})
	assertAppError(t, err, 400)
}
