// Пакет ranking — чистое детерминированное ранжирование окон каталога.
// Никаких побочных эффектов: вход не мутируется, выход — новый срез.
package ranking

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zapisly/booking-core/internal/model"
)

// Weights — веса композитной оценки. Это политика, не закон:
// значения приходят из конфигурации, дефолты — ниже.
type Weights struct {
	// Цена: дешевле — выше.
	Price float64
	// Рейтинг центра: выше — выше.
	Rating float64
	// Близость по времени: раньше начало — выше.
	Proximity float64
}

// DefaultWeights — задокументированные дефолты: цена чуть важнее
// рейтинга, рейтинг чуть важнее близости.
func DefaultWeights() Weights {
	return Weights{Price: 0.4, Rating: 0.35, Proximity: 0.25}
}

// Rank упорядочивает окна по убыванию композитной оценки.
//
// Из выдачи исключаются окна в статусах booked/expired и окна, начавшиеся
// не позже now. Сломанные входные данные (отрицательная цена, рейтинг вне
// 0–5) зажимаются, а не отбрасываются: апстрим-каталогу не доверяем, но
// деградируем мягко.
//
// Равные оценки упорядочиваются по возрастанию StartsAt, затем по ID —
// полная детерминированность нужна тестам и пагинации.
//
// Выдача не усекается: top-N берёт вызывающий.
func Rank(slots []model.Slot, centers []model.Center, w Weights, now time.Time) []model.Slot {
	ratings := make(map[uuid.UUID]float64, len(centers))
	for _, c := range centers {
		ratings[c.ID] = clamp(c.Rating, 0, 5)
	}

	candidates := make([]model.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Status == model.SlotStatusBooked || s.Status == model.SlotStatusExpired {
			continue
		}
		if !s.StartsAt.After(now) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return candidates
	}

	// Нормировка цены и близости — по диапазону кандидатов,
	// рейтинга — по фиксированной шкале 0–5.
	minPrice, maxPrice := candidates[0].Price, candidates[0].Price
	minStart, maxStart := candidates[0].StartsAt, candidates[0].StartsAt
	for _, s := range candidates[1:] {
		p := s.Price
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
		if s.StartsAt.Before(minStart) {
			minStart = s.StartsAt
		}
		if s.StartsAt.After(maxStart) {
			maxStart = s.StartsAt
		}
	}

	scores := make(map[uuid.UUID]float64, len(candidates))
	for _, s := range candidates {
		price := s.Price
		if price < 0 {
			price = 0
		}

		priceScore := 1.0
		if maxPrice > minPrice {
			priceScore = float64(maxPrice-price) / float64(maxPrice-minPrice)
			priceScore = clamp(priceScore, 0, 1)
		}

		ratingScore := ratings[s.CenterID] / 5

		proximityScore := 1.0
		if span := maxStart.Sub(minStart); span > 0 {
			proximityScore = float64(maxStart.Sub(s.StartsAt)) / float64(span)
		}

		scores[s.ID] = w.Price*priceScore + w.Rating*ratingScore + w.Proximity*proximityScore
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if scores[a.ID] != scores[b.ID] {
			return scores[a.ID] > scores[b.ID]
		}
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.Before(b.StartsAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return candidates
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
