package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/cluster"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/logging"
	"github.com/plantrec/plantrec/internal/normalize"
	"github.com/plantrec/plantrec/internal/query"
	"github.com/plantrec/plantrec/internal/scale"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func identities(n int) []dataset.Identity {
	ids := make([]dataset.Identity, n)
	for i := range ids {
		ids[i] = dataset.Identity{ID: fmt.Sprint(i), Name: fmt.Sprintf("Species %d", i)}
	}
	return ids
}

func TestSelect(t *testing.T) {
	labels := []int{0, 1, 0, 0, 2, 0}
	ids := identities(len(labels))
	query := 5

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"fewer than population", 2, 2},
		{"exactly population", 3, 3},
		{"more than population", 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(labels, query, ids, tt.n, seeded(1))
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}

			seen := make(map[string]bool)
			for _, id := range got {
				if id.ID == ids[query].ID {
					t.Error("query row returned")
				}
				if seen[id.ID] {
					t.Errorf("duplicate %s", id.ID)
				}
				seen[id.ID] = true
				if id.ID != "0" && id.ID != "2" && id.ID != "3" {
					t.Errorf("%s is not in the query's cluster", id.ID)
				}
			}
		})
	}
}

func TestSelect_Reproducible(t *testing.T) {
	labels := make([]int, 50)
	ids := identities(50)

	a, err := Select(labels, 49, ids, 5, seeded(9))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	b, err := Select(labels, 49, ids, 5, seeded(9))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed, different samples:\n%v\n%v", a, b)
	}
}

func TestSelect_Errors(t *testing.T) {
	ids := identities(3)

	if _, err := Select([]int{0, 1, 2}, 2, ids, 5, seeded(1)); !errors.Is(err, ErrEmptyCluster) {
		t.Errorf("lonely query: err = %v, want ErrEmptyCluster", err)
	}
	if _, err := Select([]int{0, 0, 0}, 2, ids, 0, seeded(1)); !errors.Is(err, catalog.ErrInvalidFieldValue) {
		t.Errorf("n = 0: err = %v, want ErrInvalidFieldValue", err)
	}
	if _, err := Select([]int{0, 0, 0}, 3, ids, 1, seeded(1)); err == nil {
		t.Error("out of range query index should fail")
	}
	if _, err := Select([]int{0, 0}, 1, ids, 1, seeded(1)); err == nil {
		t.Error("misaligned identities should fail")
	}
}

// groupedTable builds 100 species in five groups of identical rows. Group 0
// matches the preferences used by the pipeline tests.
func groupedTable() *dataset.Table {
	cat := catalog.Plants()
	groups := []map[string]string{
		{catalog.FieldDrought: "High", catalog.FieldShade: "Tolerant"},
		{catalog.FieldDrought: "Low", catalog.FieldShade: "Intolerant", catalog.FieldLifespan: "Short"},
		{catalog.FieldDrought: "Medium", catalog.FieldShade: "Intermediate", "Growth_Habit": "Tree"},
		{catalog.FieldLifespan: "Long", catalog.FieldFlowerColor: "Red", catalog.FieldPHMinimum: "5"},
		{catalog.FieldMoistureUse: "High", catalog.FieldToxicity: "Severe", "Growth_Habit": "Shrub"},
	}

	t := &dataset.Table{Columns: cat.Names()}
	for i := 0; i < 100; i++ {
		rec := make(dataset.Record, len(t.Columns))
		for _, c := range t.Columns {
			rec[c] = ""
		}
		for k, v := range groups[i%len(groups)] {
			rec[k] = v
		}
		rec[catalog.FieldID] = fmt.Sprint(1000 + i)
		rec[catalog.FieldName] = fmt.Sprintf("Plantae species %d", i)
		t.Records = append(t.Records, rec)
	}
	return t
}

func testPipeline(t *testing.T, base *dataset.Table, mutate func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 42
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPipeline(catalog.Plants(), base, cfg, logging.Nop())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func droughtShadePrefs() query.Preferences {
	return query.Preferences{DroughtTolerance: "High", ShadeTolerance: "Tolerant", Count: 5}
}

func TestPipeline_Run(t *testing.T) {
	for _, policy := range []string{scale.PolicyJoint, scale.PolicyBase} {
		t.Run(policy, func(t *testing.T) {
			p := testPipeline(t, groupedTable(), func(c *Config) { c.ScalingPolicy = policy })

			res, err := p.Run(context.Background(), droughtShadePrefs())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			if len(res.Recommendations) != 5 {
				t.Fatalf("got %d recommendations, want 5", len(res.Recommendations))
			}
			seen := make(map[string]bool)
			for _, r := range res.Recommendations {
				if r.ID == query.PlaceholderID {
					t.Error("placeholder id returned")
				}
				if seen[r.ID] {
					t.Errorf("duplicate id %s", r.ID)
				}
				seen[r.ID] = true
			}
			if res.ClusterSize < 20 {
				t.Errorf("ClusterSize = %d, want the 20 matching species at least", res.ClusterSize)
			}
			if res.Seed != 42 {
				t.Errorf("Seed = %d, want 42", res.Seed)
			}
		})
	}
}

func TestQueryOnlyLevelIgnoredUnderBaseScaling(t *testing.T) {
	// No base species is yellow, so Flower_Color_Yellow is set only on the
	// query row and is constant over the rows the base scaler is fitted on.
	prefs := droughtShadePrefs()
	prefs.FlowerColor = "Yellow"
	const column = catalog.FieldFlowerColor + "_Yellow"

	in, err := query.Inject(groupedTable(), prefs, catalog.Plants(), DefaultConfig().Placeholder)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	m, err := normalize.Normalize(in.Features, catalog.Plants())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	col := -1
	for j, c := range m.Columns {
		if c == column {
			col = j
		}
	}
	if col < 0 {
		t.Fatalf("no %s column in %v", column, m.Columns)
	}

	tests := []struct {
		policy     string
		scale      func() (*mat.Dense, *scale.Scaler, error)
		wantZeroed bool
	}{
		{scale.PolicyJoint, func() (*mat.Dense, *scale.Scaler, error) { return scale.Standardize(m.Data) }, false},
		{scale.PolicyBase, func() (*mat.Dense, *scale.Scaler, error) { return scale.StandardizeExcluding(m.Data, in.QueryIndex) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			scaled, scaler, err := tt.scale()
			if err != nil {
				t.Fatalf("scale: %v", err)
			}
			degenerate := false
			for _, j := range scaler.Degenerate {
				if j == col {
					degenerate = true
				}
			}
			if degenerate != tt.wantZeroed {
				t.Errorf("%s degenerate = %v, want %v", column, degenerate, tt.wantZeroed)
			}
			if q := scaled.At(in.QueryIndex, col); (q == 0) != tt.wantZeroed {
				t.Errorf("query %s scaled to %v, zeroed want %v", column, q, tt.wantZeroed)
			}
		})
	}
}

func TestPipeline_Reproducible(t *testing.T) {
	p := testPipeline(t, groupedTable(), nil)

	a, err := p.Run(context.Background(), droughtShadePrefs())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := p.Run(context.Background(), droughtShadePrefs())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(a.Recommendations, b.Recommendations) {
		t.Errorf("same seed, different results:\n%v\n%v", a.Recommendations, b.Recommendations)
	}
}

func TestPipeline_DoesNotMutateBase(t *testing.T) {
	base := groupedTable()
	before := base.Clone()
	p := testPipeline(t, base, nil)

	if _, err := p.Run(context.Background(), droughtShadePrefs()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(base, before) {
		t.Error("base table changed during a run")
	}
}

func TestPipeline_KeepsOwnCopyOfBase(t *testing.T) {
	base := groupedTable()
	p := testPipeline(t, base, nil)

	for _, rec := range base.Records {
		rec[catalog.FieldShade] = "Sunny"
	}
	if _, err := p.Run(context.Background(), droughtShadePrefs()); err != nil {
		t.Fatalf("Run after caller changed base: %v", err)
	}
}

func TestPipeline_ConcurrentRuns(t *testing.T) {
	p := testPipeline(t, groupedTable(), nil)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Run(context.Background(), droughtShadePrefs()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Run: %v", err)
	}
}

func TestPipeline_Errors(t *testing.T) {
	nan := math.NaN()
	small := groupedTable()
	small.Records = small.Records[:3]

	nanCell := groupedTable()
	nanCell.Records[3][catalog.FieldPHMinimum] = "NaN"

	tests := []struct {
		name   string
		base   *dataset.Table
		ctx    func() context.Context
		mutate func(*Config)
		prefs  query.Preferences
		want   error
	}{
		{
			name:  "three rows, five clusters",
			base:  small,
			prefs: droughtShadePrefs(),
			want:  cluster.ErrInsufficientData,
		},
		{
			name:  "invalid preference",
			base:  groupedTable(),
			prefs: query.Preferences{ShadeTolerance: "Sunny", Count: 5},
			want:  catalog.ErrInvalidFieldValue,
		},
		{
			name: "canceled",
			base: groupedTable(),
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			prefs: droughtShadePrefs(),
			want:  context.Canceled,
		},
		{
			name:   "timeout",
			base:   groupedTable(),
			mutate: func(c *Config) { c.Timeout = time.Nanosecond },
			prefs:  droughtShadePrefs(),
			want:   context.DeadlineExceeded,
		},
		{
			name:  "NaN in dataset",
			base:  nanCell,
			prefs: droughtShadePrefs(),
			want:  catalog.ErrInvalidFieldValue,
		},
		{
			name:  "NaN preference",
			base:  groupedTable(),
			prefs: query.Preferences{TemperatureMinimumF: &nan, Count: 5},
			want:  catalog.ErrInvalidFieldValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}
			p := testPipeline(t, tt.base, tt.mutate)
			_, err := p.Run(ctx, tt.prefs)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if UserMessage(err) == "" {
				t.Error("no user message for error")
			}
		})
	}
}

func TestNewPipeline_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScalingPolicy = "global"
	if _, err := NewPipeline(catalog.Plants(), groupedTable(), cfg, logging.Nop()); err == nil {
		t.Error("unknown scaling policy should fail")
	}

	short, err := groupedTable().Select(catalog.Plants().Names()[1:])
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := NewPipeline(catalog.Plants(), short, DefaultConfig(), logging.Nop()); !errors.Is(err, catalog.ErrSchemaMismatch) {
		t.Errorf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		contains string
		outcome  string
	}{
		{ErrEmptyCluster, "No matches", "no_matches"},
		{fmt.Errorf("wrap: %w", cluster.ErrInsufficientData), "Not enough", "insufficient_data"},
		{fmt.Errorf("%w: bad", catalog.ErrInvalidFieldValue), "Invalid preference", "invalid_input"},
		{catalog.ErrSchemaMismatch, "does not match", "error"},
		{normalize.ErrNoRows, "does not match", "error"},
		{context.DeadlineExceeded, "too long", "error"},
		{errors.New("boom"), "went wrong", "error"},
	}

	for _, tt := range tests {
		if got := UserMessage(tt.err); !strings.Contains(got, tt.contains) {
			t.Errorf("UserMessage(%v) = %q, want containing %q", tt.err, got, tt.contains)
		}
		if got := Outcome(tt.err); got != tt.outcome {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.outcome)
		}
	}

	if UserMessage(nil) != "" || Outcome(nil) != "ok" {
		t.Error("nil error should have empty message and ok outcome")
	}
}
