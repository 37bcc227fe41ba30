package main

import (
	"testing"

	"github.com/skiffbot/skiff/internal/keys"
	"github.com/skiffbot/skiff/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testKeyStore(t *testing.T) *keys.Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.StreamKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := keys.NewStore(gdb)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestResolveRTMPNamedKey(t *testing.T) {
	store := testKeyStore(t)
	if err := store.Add("living", "abcd-1234"); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := resolveRTMP("rtmp://live.test/app/", store, "living")
	if err != nil {
		t.Fatalf("resolveRTMP: %v", err)
	}
	if got != "rtmp://live.test/app/abcd-1234" {
		t.Errorf("rtmp = %q", got)
	}
}

func TestResolveRTMPDefaultKey(t *testing.T) {
	store := testKeyStore(t)
	if err := store.Add("first", "k1"); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := resolveRTMP("rtmp://live.test/app", store, "")
	if err != nil {
		t.Fatalf("resolveRTMP: %v", err)
	}
	if got != "rtmp://live.test/app/k1" {
		t.Errorf("rtmp = %q", got)
	}
}

func TestResolveRTMPBareBase(t *testing.T) {
	store := testKeyStore(t)

	got, err := resolveRTMP("rtmp://live.test/app", store, "")
	if err != nil {
		t.Fatalf("resolveRTMP: %v", err)
	}
	if got != "rtmp://live.test/app" {
		t.Errorf("rtmp = %q", got)
	}
}

func TestResolveRTMPErrors(t *testing.T) {
	store := testKeyStore(t)

	if _, err := resolveRTMP("", store, ""); err == nil {
		t.Error("expected error for empty base")
	}
	if _, err := resolveRTMP("rtmp://live.test/app", store, "missing"); err == nil {
		t.Error("expected error for unknown key name")
	}
}
