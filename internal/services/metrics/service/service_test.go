package service

import (
	"context"
	"testing"
	"time"

	"codefrog/internal/modkit/repokit"
	"codefrog/internal/services/metrics/domain"
)

type fakeRepo struct {
	seed    float64
	changes []domain.ChangeDelta
	issues  []domain.IssueSpan
	pulls   []domain.PullSpan
	metrics []domain.Metric

	written map[string]map[string]float64 // date -> values
	files   map[string]int64              // "path@date" -> complexity
	cleared bool

	fileSeed   int64
	fileTrend  []domain.TrendPoint
	fileCounts []domain.TrendPoint
}

func (f *fakeRepo) LastComplexityBefore(context.Context, int64, time.Time) (float64, error) {
	return f.seed, nil
}

func (f *fakeRepo) ChangesBetween(_ context.Context, _ int64, start, end time.Time) ([]domain.ChangeDelta, error) {
	var out []domain.ChangeDelta
	for _, ch := range f.changes {
		if !ch.Timestamp.Before(start) && !ch.Timestamp.After(end) {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeRepo) ChangesByFile(context.Context, int64) ([]domain.ChangeDelta, error) {
	return f.changes, nil
}

func (f *fakeRepo) IssueSpans(context.Context, int64) ([]domain.IssueSpan, error) {
	return f.issues, nil
}

func (f *fakeRepo) MergedPulls(context.Context, int64) ([]domain.PullSpan, error) {
	return f.pulls, nil
}

func (f *fakeRepo) MergeMetricValues(_ context.Context, _ int64, day time.Time, values map[string]float64) error {
	if f.written == nil {
		f.written = map[string]map[string]float64{}
	}
	key := day.Format("2006-01-02")
	if f.written[key] == nil {
		f.written[key] = map[string]float64{}
	}
	for k, v := range values {
		f.written[key][k] = v
	}
	return nil
}

func (f *fakeRepo) MetricsBetween(_ context.Context, _ int64, start, end time.Time) ([]domain.Metric, error) {
	var out []domain.Metric
	for _, m := range f.metrics {
		if !m.Date.Before(start) && !m.Date.After(end) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteFileComplexities(context.Context, int64) error {
	f.cleared = true
	return nil
}

func (f *fakeRepo) UpsertFileComplexity(_ context.Context, _ int64, path string, day time.Time, c int64) error {
	if f.files == nil {
		f.files = map[string]int64{}
	}
	f.files[path+"@"+day.Format("2006-01-02")] = c
	return nil
}

func (f *fakeRepo) FileComplexityBefore(context.Context, int64, string, time.Time) (int64, error) {
	return f.fileSeed, nil
}

func (f *fakeRepo) FileComplexitiesBetween(_ context.Context, _ int64, _ string, start, end time.Time) ([]domain.TrendPoint, error) {
	return pointsWithin(f.fileTrend, start, end), nil
}

func (f *fakeRepo) FileChangeCounts(_ context.Context, _ int64, _ string, start, end time.Time) ([]domain.TrendPoint, error) {
	return pointsWithin(f.fileCounts, start, end), nil
}

func pointsWithin(points []domain.TrendPoint, start, end time.Time) []domain.TrendPoint {
	var out []domain.TrendPoint
	for _, p := range points {
		if !p.Date.Before(start) && !p.Date.After(end) {
			out = append(out, p)
		}
	}
	return out
}

// fakeTx satisfies repokit.TxRunner without a database
type fakeTx struct{ repokit.Queryer }

func (f fakeTx) Tx(_ context.Context, fn func(repokit.Queryer) error) error { return fn(f.Queryer) }

func newTestService(f *fakeRepo, now time.Time) *Service {
	binder := repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return f })
	svc := New(fakeTx{}, binder)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAggregateCodeSeedsFromPriorMetric(t *testing.T) {
	d := day(2024, 6, 2)
	f := &fakeRepo{
		seed: 100,
		changes: []domain.ChangeDelta{
			{Timestamp: d.Add(9 * time.Hour), CommitHash: "c1", FilePath: "a.py", Added: 10, Removed: 4},
		},
	}
	start := day(2024, 6, 1)

	n, err := newTestService(f, day(2024, 6, 3)).AggregateCode(context.Background(), 1, &start)
	if err != nil {
		t.Fatalf("AggregateCode: %v", err)
	}
	if n == 0 {
		t.Fatal("no days written")
	}
	if got := f.written["2024-06-02"][domain.FieldComplexity]; got != 106 {
		t.Errorf("complexity = %v, want seed 100 + 10 - 4", got)
	}
	// window start before first change forward-fills the carried seed
	if got := f.written["2024-06-01"][domain.FieldComplexity]; got != 100 {
		t.Errorf("pre-change day = %v, want carried seed 100", got)
	}
}

func TestAggregateCodeEmpty(t *testing.T) {
	f := &fakeRepo{}
	n, err := newTestService(f, day(2024, 6, 3)).AggregateCode(context.Background(), 1, nil)
	if err != nil || n != 0 {
		t.Fatalf("want no-op, got %d, %v", n, err)
	}
}

func TestAggregateIssuesWrites(t *testing.T) {
	opened := day(2024, 1, 1)
	closed := day(2024, 1, 3)
	f := &fakeRepo{issues: []domain.IssueSpan{{OpenedAt: opened, ClosedAt: &closed}}}

	n, err := newTestService(f, day(2024, 1, 5)).AggregateIssues(context.Background(), 1)
	if err != nil {
		t.Fatalf("AggregateIssues: %v", err)
	}
	if n != 5 {
		t.Fatalf("want 5 days written, got %d", n)
	}
	if got := f.written["2024-01-03"][domain.FieldIssuesClosed]; got != 1 {
		t.Errorf("issues_closed on close day = %v", got)
	}
}

func TestAggregateFileComplexityRebuilds(t *testing.T) {
	d := day(2024, 2, 1)
	f := &fakeRepo{changes: []domain.ChangeDelta{
		{Timestamp: d.Add(time.Hour), FilePath: "a.py", Added: 5},
	}}

	n, err := newTestService(f, d).AggregateFileComplexity(context.Background(), 1)
	if err != nil {
		t.Fatalf("AggregateFileComplexity: %v", err)
	}
	if !f.cleared {
		t.Error("existing trend rows were not cleared")
	}
	if n != 1 || f.files["a.py@2024-02-01"] != 5 {
		t.Errorf("rows = %d, files = %v", n, f.files)
	}
}

func TestSeriesResamples(t *testing.T) {
	f := &fakeRepo{metrics: []domain.Metric{
		{Date: day(2024, 1, 1), Values: map[string]float64{domain.FieldComplexity: 3}},
		{Date: day(2024, 1, 3), Values: map[string]float64{domain.FieldComplexity: 7}},
	}}

	out, err := newTestService(f, day(2024, 1, 3)).Series(context.Background(), 1, day(2024, 1, 1), day(2024, 1, 3))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("want 3 daily points, got %d", len(out))
	}
	if out[1].Values[domain.FieldComplexity] != 3 {
		t.Errorf("gap not forward-filled: %v", out[1].Values)
	}
}
