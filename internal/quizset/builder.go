// Package quizset assembles quota-balanced quiz sets from the question pool.
package quizset

import (
	"knowledge-quiz-service/internal/domain"
	"knowledge-quiz-service/internal/scoring"
)

// Rand is the random source used for shuffles and area picks. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Builder samples quiz sets. A Builder is not safe for concurrent use because the
// random source usually is not.
type Builder struct {
	rnd    Rand
	size   int
	quotas domain.Quotas
}

// Option configures a Builder.
type Option func(*Builder)

// WithSize overrides the target quiz size.
func WithSize(n int) Option {
	return func(b *Builder) { b.size = n }
}

// WithQuotas overrides the quota tables.
func WithQuotas(q domain.Quotas) Option {
	return func(b *Builder) { b.quotas = q.Clone() }
}

// New returns a Builder drawing randomness from rnd.
func New(rnd Rand, opts ...Option) *Builder {
	b := &Builder{
		rnd:    rnd,
		size:   domain.QuizSize,
		quotas: domain.DefaultQuotas(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type bucketKey struct {
	area       domain.Area
	difficulty domain.Difficulty
	qtype      domain.QuestionType
}

// build holds the mutable state of a single Build call.
type build struct {
	buckets  map[bucketKey][]domain.Question
	used     map[string]struct{}
	picked   []domain.Question
	typeLeft map[domain.QuestionType]int
}

// Build samples up to the target size of question clones from pool, honoring the
// quotas as closely as the pool allows. It never fails: an unsatisfiable quota falls
// back to any unused question and a short pool yields a short set.
func (b *Builder) Build(pool []domain.Question) domain.QuizSet {
	quotas := b.quotas.Clone()
	st := &build{
		buckets:  make(map[bucketKey][]domain.Question),
		used:     make(map[string]struct{}),
		typeLeft: quotas.Type,
	}

	canon := make([]domain.Question, 0, len(pool))
	order := make([]bucketKey, 0)
	for _, q := range pool {
		q.Area = domain.ParseArea(string(q.Area))
		q.Difficulty = domain.ParseDifficulty(string(q.Difficulty))
		if t, ok := domain.ParseQuestionType(string(q.Type)); ok {
			q.Type = t
		}
		canon = append(canon, q)

		k := bucketKey{area: q.Area, difficulty: q.Difficulty, qtype: q.Type}
		if _, ok := st.buckets[k]; !ok {
			order = append(order, k)
		}
		st.buckets[k] = append(st.buckets[k], q)
	}
	for _, k := range order {
		shuffle(b.rnd, st.buckets[k])
	}

	for _, diff := range domain.DifficultyPriority {
		for quotas.Difficulty[diff] > 0 {
			needy := needyAreas(quotas.Area)
			if len(needy) == 0 {
				break
			}
			area := needy[b.rnd.Intn(len(needy))]
			if !st.pickOne(area, diff) {
				found := false
				for _, a := range needy {
					if a == area {
						continue
					}
					if st.pickOne(a, diff) {
						area = a
						found = true
						break
					}
				}
				if !found {
					break
				}
			}
			quotas.Difficulty[diff]--
			quotas.Area[area]--
		}
	}

	if len(st.picked) < b.size {
		remaining := make([]domain.Question, 0, len(canon))
		for _, q := range canon {
			if _, ok := st.used[q.ID]; !ok {
				remaining = append(remaining, q)
			}
		}
		shuffle(b.rnd, remaining)
		for len(st.picked) < b.size && len(remaining) > 0 {
			q := remaining[len(remaining)-1]
			remaining = remaining[:len(remaining)-1]
			st.take(q)
		}
	}

	shuffle(b.rnd, st.picked)
	if len(st.picked) > b.size {
		st.picked = st.picked[:b.size]
	}
	return domain.QuizSet{
		Questions:    st.picked,
		MaxRawPoints: scoring.MaxRawPoints(len(st.picked)),
	}
}

// pickOne pops an unused question from the (area, diff) buckets. Types that still
// have quota are tried first, the more under-quota one leading; then any type.
func (st *build) pickOne(area domain.Area, diff domain.Difficulty) bool {
	for _, t := range st.typePreference() {
		if st.typeLeft[t] <= 0 {
			continue
		}
		if st.pop(bucketKey{area: area, difficulty: diff, qtype: t}) {
			st.typeLeft[t]--
			return true
		}
	}
	for _, t := range domain.QuestionTypes {
		if st.pop(bucketKey{area: area, difficulty: diff, qtype: t}) {
			if st.typeLeft[t] > 0 {
				st.typeLeft[t]--
			}
			return true
		}
	}
	return false
}

func (st *build) typePreference() []domain.QuestionType {
	mc, tf := domain.TypeMultipleChoice, domain.TypeTrueFalse
	if st.typeLeft[mc] >= st.typeLeft[tf] {
		return []domain.QuestionType{mc, tf}
	}
	return []domain.QuestionType{tf, mc}
}

func (st *build) pop(k bucketKey) bool {
	bucket := st.buckets[k]
	for len(bucket) > 0 {
		q := bucket[len(bucket)-1]
		bucket = bucket[:len(bucket)-1]
		if st.take(q) {
			st.buckets[k] = bucket
			return true
		}
	}
	st.buckets[k] = bucket
	return false
}

func (st *build) take(q domain.Question) bool {
	if _, ok := st.used[q.ID]; ok {
		return false
	}
	st.used[q.ID] = struct{}{}
	st.picked = append(st.picked, q.Clone())
	return true
}

// needyAreas lists areas with remaining quota in a fixed order so seeded runs repeat.
func needyAreas(left map[domain.Area]int) []domain.Area {
	out := make([]domain.Area, 0, len(domain.Areas)+1)
	for _, a := range domain.Areas {
		if left[a] > 0 {
			out = append(out, a)
		}
	}
	if left[domain.AreaUnknown] > 0 {
		out = append(out, domain.AreaUnknown)
	}
	return out
}

// shuffle is a Fisher-Yates permutation driven by rnd.
func shuffle[T any](rnd Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Shuffle returns a shuffled copy of s.
func Shuffle[T any](rnd Rand, s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	shuffle(rnd, out)
	return out
}
