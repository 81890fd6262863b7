package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute, 1024)

	record := &model.FileRecord{
		UniqueName:   "test-1.txt",
		OriginalName: "test.txt",
		ContentType:  "text/plain",
		Payload:      []byte("payload"),
	}

	if _, ok := cache.Get("test-1.txt"); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	if !cache.Set(record) {
		t.Fatal("Set() отказался кэшировать маленькую запись")
	}
	got, ok := cache.Get("test-1.txt")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.OriginalName != "test.txt" {
		t.Errorf("OriginalName = %q, ожидался %q", got.OriginalName, "test.txt")
	}
}

// TestCacheService_MaxPayload проверяет, что крупные записи не кэшируются.
func TestCacheService_MaxPayload(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute, 4)

	if cache.Set(&model.FileRecord{UniqueName: "big-1.bin", Payload: []byte("12345")}) {
		t.Error("Set() должен отклонить payload больше лимита")
	}
	if _, ok := cache.Get("big-1.bin"); ok {
		t.Error("крупная запись не должна попадать в кэш")
	}
	if !cache.Set(&model.FileRecord{UniqueName: "small-1.bin", Payload: []byte("1234")}) {
		t.Error("Set() должен принять payload, равный лимиту")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	cache := NewCacheService(100, 50*time.Millisecond, 1024)

	cache.Set(&model.FileRecord{UniqueName: "ttl-1"})
	if _, ok := cache.Get("ttl-1"); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("ttl-1"); ok {
		t.Error("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_LRUEviction проверяет вытеснение при переполнении.
func TestCacheService_LRUEviction(t *testing.T) {
	cache := NewCacheService(3, 5*time.Minute, 1024)

	for i := 1; i <= 4; i++ {
		cache.Set(&model.FileRecord{UniqueName: fmt.Sprintf("f-%d", i)})
	}

	if cache.Len() != 3 {
		t.Errorf("Len() = %d, ожидается 3", cache.Len())
	}
	if _, ok := cache.Get("f-1"); ok {
		t.Error("самая старая запись должна быть вытеснена")
	}
	if _, ok := cache.Get("f-4"); !ok {
		t.Error("последняя запись должна остаться в кэше")
	}
}
