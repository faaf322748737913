// Пакет hold — распределённое KV-хранилище эксклюзивных удержаний слотов
// с TTL. Единственный примитив взаимной блокировки в движке: никакие
// внутрипроцессные мьютексы экземпляров сервиса корректность не дают.
package hold

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("hold not found")

// Store — минимальный контракт хранилища hold'ов.
// Все операции атомарны на стороне хранилища: check-then-act двумя
// вызовами здесь запрещён по построению.
type Store interface {
	// SetIfAbsent атомарно создаёт запись, если ключа нет.
	// false — ключ уже занят (неистёкший hold).
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get возвращает значение или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// DeleteIfValueEquals атомарно удаляет запись, только если её значение
	// равно expected. false — ключа нет или hold принадлежит другому.
	DeleteIfValueEquals(ctx context.Context, key, expected string) (bool, error)
}
