package service

import (
	"testing"
	"time"

	"github.com/arturkryukov/pindrop/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	record := &model.FileRecord{
		PIN:      "1234",
		Filename: "test.txt",
		Size:     1024,
	}

	// Cache miss
	_, ok := cache.Get("1234")
	if ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	// Set + cache hit
	cache.Set("1234", record)
	got, ok := cache.Get("1234")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.PIN != "1234" {
		t.Errorf("PIN = %q, ожидался %q", got.PIN, "1234")
	}
	if got.Filename != "test.txt" {
		t.Errorf("Filename = %q, ожидался %q", got.Filename, "test.txt")
	}
}

// TestCacheService_Delete проверяет удаление из кэша (инвалидация).
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set("0042", &model.FileRecord{PIN: "0042"})

	if _, ok := cache.Get("0042"); !ok {
		t.Fatal("ожидался cache hit перед удалением")
	}

	cache.Delete("0042")

	if _, ok := cache.Get("0042"); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	// Короткий TTL = 50ms для теста
	cache := NewCacheService(100, 50*time.Millisecond)

	cache.Set("9999", &model.FileRecord{PIN: "9999"})

	if _, ok := cache.Get("9999"); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("9999"); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Purge проверяет полную очистку кэша.
func TestCacheService_Purge(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set("1111", &model.FileRecord{PIN: "1111"})
	cache.Set("2222", &model.FileRecord{PIN: "2222"})

	cache.Purge()

	if _, ok := cache.Get("1111"); ok {
		t.Error("ожидался cache miss после Purge")
	}
	if _, ok := cache.Get("2222"); ok {
		t.Error("ожидался cache miss после Purge")
	}
}
