package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/ports"
)

type memStore struct {
	mu        sync.Mutex
	records   map[string]domain.Record
	briefings map[string][2]string
	insertErr error
	inserts   int
}

var (
	_ ports.ResultStore      = (*memStore)(nil)
	_ ports.RecordMaintainer = (*memStore)(nil)
)

func newMemStore(records ...domain.Record) *memStore {
	s := &memStore{records: map[string]domain.Record{}, briefings: map[string][2]string{}}
	for _, r := range records {
		s.records[r.PostID] = r
	}
	return s
}

func (s *memStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok, nil
}

func (s *memStore) Insert(_ context.Context, r domain.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, ok := s.records[r.PostID]; ok {
		return false, nil
	}
	s.inserts++
	s.records[r.PostID] = r
	return true, nil
}

func (s *memStore) Get(_ context.Context, id string) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	return r, nil
}

func (s *memStore) List(_ context.Context, f domain.RecordFilter) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Record
	for _, r := range s.records {
		if matches(r, f) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostID < out[j].PostID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(r domain.Record, f domain.RecordFilter) bool {
	if len(f.Platforms) > 0 && !containsPlatform(f.Platforms, r.Platform()) {
		return false
	}
	if len(f.Verdicts) > 0 {
		ok := false
		for _, v := range f.Verdicts {
			ok = ok || v == r.EffectiveVerdict()
		}
		if !ok {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(r.OriginalText), strings.ToLower(f.Search)) {
		return false
	}
	if f.ExcludeNoise && r.Verdict == domain.VerdictNoise {
		return false
	}
	if len(f.SummaryMarkers) > 0 && !containsAny(r.Summary, f.SummaryMarkers) {
		return false
	}
	if f.MissingURL && r.URL != "" {
		return false
	}
	if f.MissingImage && r.ImagePath != "" {
		return false
	}
	return true
}

func containsPlatform(list []domain.Platform, p domain.Platform) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}

func (s *memStore) SetManualVerdict(_ context.Context, id string, v *domain.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	r.ManualVerdict = v
	s.records[id] = r
	return nil
}

func (s *memStore) UpdateClassification(_ context.Context, id string, v domain.Verdict, summary string, clearManual bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	r.Verdict = v
	r.Summary = summary
	if clearManual {
		r.ManualVerdict = nil
	}
	s.records[id] = r
	return nil
}

func (s *memStore) GetCachedBriefing(_ context.Context, key, hash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.briefings[key]
	if !ok {
		return "", false, nil
	}
	return b[0], b[1] == hash, nil
}

func (s *memStore) SaveBriefing(_ context.Context, key, content, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.briefings[key] = [2]string{content, hash}
	return nil
}

func (s *memStore) ClearManualVerdicts(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.records {
		if r.ManualVerdict != nil {
			r.ManualVerdict = nil
			s.records[id] = r
			n++
		}
	}
	return n, nil
}

func (s *memStore) SetURL(_ context.Context, id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[id]
	r.URL = url
	s.records[id] = r
	return nil
}

func (s *memStore) SetImagePath(_ context.Context, id, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[id]
	r.ImagePath = path
	s.records[id] = r
	return nil
}

func (s *memStore) record(id string) domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

type fakeClassifier struct {
	mu       sync.Mutex
	results  map[string]domain.ClassificationResult
	fallback domain.ClassificationResult
	analyzed []string
	items    []string
	context  string
	question string
}

func (c *fakeClassifier) Analyze(_ context.Context, text, _ string) domain.ClassificationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyzed = append(c.analyzed, text)
	if r, ok := c.results[text]; ok {
		return r
	}
	return c.fallback
}

func (c *fakeClassifier) Summarize(_ context.Context, items []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	return "summary of " + strconv.Itoa(len(items))
}

func (c *fakeClassifier) AnswerQuestion(_ context.Context, contextText, question string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = contextText
	c.question = question
	return "answer"
}

type fakeSource struct {
	platforms []domain.Platform
	posts     map[domain.Platform][]domain.HarvestedPost
	errs      map[domain.Platform]error
	limits    []int
}

func (s *fakeSource) Platforms() []domain.Platform { return s.platforms }

func (s *fakeSource) Harvest(_ context.Context, p domain.Platform, limit int) ([]domain.HarvestedPost, error) {
	s.limits = append(s.limits, limit)
	if err := s.errs[p]; err != nil {
		return nil, err
	}
	return s.posts[p], nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (n *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	n.messages = append(n.messages, digest)
	return n.err
}

type fakeLease struct {
	held     bool
	released int
}

func (l *fakeLease) Acquire(context.Context, time.Duration) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() {
		l.held = false
		l.released++
	}, true, nil
}

func noSleep(context.Context, time.Duration) {}
