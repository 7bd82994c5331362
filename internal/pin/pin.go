// Пакет pin — генерация и валидация 4-значных PIN-кодов.
// PIN — единственный механизм доступа к файлу, поэтому кандидаты
// берутся равномерно из всего пространства "0000"–"9999"
// (math/rand/v2, без последовательных счётчиков).
package pin

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/arturkryukov/pindrop/internal/domain/model"
)

// Space — размер пространства PIN: 10000 значений "0000"–"9999".
const Space = 10000

// maxDraws — число случайных попыток до перехода на детерминированный
// обход. Ограничивает цикл явно, вместо бесконечного retry.
const maxDraws = 64

// ErrSpaceExhausted — все 10000 PIN заняты живыми записями.
// Фатальная для регистрации ситуация: попытка прерывается с понятной
// диагностикой, а не зацикливается.
var ErrSpaceExhausted = errors.New("пространство PIN исчерпано: заняты все 10000 значений")

// Valid проверяет форму PIN: ровно 4 ASCII-цифры.
// Ведущие нули допустимы.
func Valid(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Format приводит число 0..9999 к каноническому виду PIN с ведущими нулями.
func Format(n int) string {
	return fmt.Sprintf("%04d", n)
}

// Allocate выделяет PIN, отсутствующий в таблице existing.
// Вызывать только внутри критической секции snapshot.Store.Update:
// выделение и последующее сохранение таблицы должны происходить под
// одним захватом lock, иначе две конкурентные загрузки могут получить
// одинаковый PIN.
//
// Сначала — ограниченное число случайных попыток; если таблица
// настолько плотная, что случайные кандидаты постоянно заняты,
// выполняется детерминированный обход от случайного смещения.
// Обход гарантированно находит свободный PIN, так как исчерпание
// проверено заранее.
func Allocate(existing map[string]*model.FileRecord) (string, error) {
	if len(existing) >= Space {
		return "", ErrSpaceExhausted
	}

	for i := 0; i < maxDraws; i++ {
		candidate := Format(rand.Intn(Space))
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}

	// Плотная таблица: обходим пространство от случайного смещения
	start := rand.Intn(Space)
	for i := 0; i < Space; i++ {
		candidate := Format((start + i) % Space)
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}

	return "", ErrSpaceExhausted
}
