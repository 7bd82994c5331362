package pin

import (
	"errors"
	"testing"

	"github.com/arturkryukov/pindrop/internal/domain/model"
)

// TestValid проверяет валидацию формы PIN.
func TestValid(t *testing.T) {
	tests := []struct {
		name string
		pin  string
		want bool
	}{
		{"обычный PIN", "1234", true},
		{"ведущие нули", "0042", true},
		{"все нули", "0000", true},
		{"максимальный", "9999", true},
		{"слишком короткий", "12", false},
		{"слишком длинный", "99999", false},
		{"буква внутри", "12a4", false},
		{"пустая строка", "", false},
		{"пробелы", " 123", false},
		{"не-ASCII цифры", "１２３４", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.pin); got != tt.want {
				t.Errorf("Valid(%q) = %v, ожидалось %v", tt.pin, got, tt.want)
			}
		})
	}
}

// TestFormat проверяет канонический вид PIN с ведущими нулями.
func TestFormat(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0000"},
		{7, "0007"},
		{42, "0042"},
		{9999, "9999"},
	}

	for _, tt := range tests {
		if got := Format(tt.n); got != tt.want {
			t.Errorf("Format(%d) = %q, ожидалось %q", tt.n, got, tt.want)
		}
	}
}

// TestAllocate_EmptyTable проверяет выделение PIN в пустой таблице.
func TestAllocate_EmptyTable(t *testing.T) {
	existing := map[string]*model.FileRecord{}

	code, err := Allocate(existing)
	if err != nil {
		t.Fatalf("ошибка выделения PIN: %v", err)
	}
	if !Valid(code) {
		t.Errorf("выделен PIN неверной формы: %q", code)
	}
}

// TestAllocate_SkipsOccupied проверяет, что занятые PIN не выдаются.
func TestAllocate_SkipsOccupied(t *testing.T) {
	existing := map[string]*model.FileRecord{}
	for i := 0; i < 100; i++ {
		existing[Format(i)] = &model.FileRecord{}
	}

	for attempt := 0; attempt < 50; attempt++ {
		code, err := Allocate(existing)
		if err != nil {
			t.Fatalf("ошибка выделения PIN: %v", err)
		}
		if _, occupied := existing[code]; occupied {
			t.Fatalf("выделен занятый PIN %q", code)
		}
	}
}

// TestAllocate_LastFreeSlot проверяет выделение при единственном
// свободном PIN: детерминированный обход обязан его найти.
func TestAllocate_LastFreeSlot(t *testing.T) {
	const free = "7321"

	existing := make(map[string]*model.FileRecord, Space-1)
	for i := 0; i < Space; i++ {
		code := Format(i)
		if code == free {
			continue
		}
		existing[code] = &model.FileRecord{}
	}

	code, err := Allocate(existing)
	if err != nil {
		t.Fatalf("ошибка выделения последнего PIN: %v", err)
	}
	if code != free {
		t.Errorf("ожидался единственный свободный PIN %q, получен %q", free, code)
	}
}

// TestAllocate_SpaceExhausted проверяет исход при полностью занятом
// пространстве PIN.
func TestAllocate_SpaceExhausted(t *testing.T) {
	existing := make(map[string]*model.FileRecord, Space)
	for i := 0; i < Space; i++ {
		existing[Format(i)] = &model.FileRecord{}
	}

	_, err := Allocate(existing)
	if !errors.Is(err, ErrSpaceExhausted) {
		t.Fatalf("ожидалась ErrSpaceExhausted, получено: %v", err)
	}
}

// TestAllocate_Uniqueness проверяет, что последовательные выделения
// с пополнением таблицы не дают дубликатов.
func TestAllocate_Uniqueness(t *testing.T) {
	existing := map[string]*model.FileRecord{}

	for i := 0; i < 500; i++ {
		code, err := Allocate(existing)
		if err != nil {
			t.Fatalf("ошибка выделения PIN на шаге %d: %v", i, err)
		}
		if _, dup := existing[code]; dup {
			t.Fatalf("дубликат PIN %q на шаге %d", code, i)
		}
		existing[code] = &model.FileRecord{}
	}
}
