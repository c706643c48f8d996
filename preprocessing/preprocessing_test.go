package preprocessing

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

func mustTable(t *testing.T, csv string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(strings.NewReader(csv), "test.csv")
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	return tbl
}

const withMissing = `age,score,city
25,1,Tokyo
,3,Osaka
40,,Osaka
31,4,
`

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"Mean", Mean, false},
		{"median", Median, false},
		{"MODE", Mode, false},
		{"Drop", Drop, false},
		{"3", Drop, false},
		{"0", Mean, false},
		{"Interpolate", 0, true},
		{"7", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				var unsupported *errors.UnsupportedError
				if !errors.As(err, &unsupported) {
					t.Errorf("expected UnsupportedError, got %T", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHandleMissing(t *testing.T) {
	tbl := mustTable(t, withMissing)

	t.Run("mean", func(t *testing.T) {
		out, err := HandleMissing(tbl, Mean)
		if err != nil {
			t.Fatal(err)
		}
		age, _ := out.Column("age")
		if want := (25.0 + 40 + 31) / 3; math.Abs(age[1].Float()-want) > 1e-12 {
			t.Errorf("mean fill = %v, want %v", age[1].Float(), want)
		}
		score, _ := out.Column("score")
		if got := score[2].Float(); math.Abs(got-8.0/3) > 1e-12 {
			t.Errorf("mean fill = %v, want %v", got, 8.0/3)
		}
		// カテゴリ列は平均で補完されない
		if !out.IsMissing("city", 3) {
			t.Error("categorical column should be left untouched by Mean")
		}
		if out.NRows() != tbl.NRows() {
			t.Errorf("row count changed: %d -> %d", tbl.NRows(), out.NRows())
		}
	})

	t.Run("median averages the middle pair", func(t *testing.T) {
		out, err := HandleMissing(mustTable(t, "x,tag\n1,a\n2,b\n,c\n10,d\n4,e\n"), Median)
		if err != nil {
			t.Fatal(err)
		}
		x, _ := out.Column("x")
		if got := x[2].Float(); got != 3 {
			t.Errorf("median fill = %v, want 3", got)
		}
	})

	t.Run("mode picks the smallest on ties", func(t *testing.T) {
		out, err := HandleMissing(mustTable(t, "x,c\n5,b\n2,a\n,\n5,b\n2,a\n"), Mode)
		if err != nil {
			t.Fatal(err)
		}
		row := out.Row(2)
		if row[0].Float() != 2 {
			t.Errorf("numeric mode = %v, want 2", row[0].Float())
		}
		if row[1].Str != "a" {
			t.Errorf("categorical mode = %q, want a", row[1].Str)
		}
	})

	t.Run("mode fills categorical columns", func(t *testing.T) {
		out, err := HandleMissing(tbl, Mode)
		if err != nil {
			t.Fatal(err)
		}
		if out.MissingCount() != 0 {
			t.Errorf("MissingCount() = %d, want 0", out.MissingCount())
		}
		city, _ := out.Column("city")
		if city[3].Str != "Osaka" {
			t.Errorf("city mode = %q, want Osaka", city[3].Str)
		}
	})

	t.Run("drop", func(t *testing.T) {
		out, err := HandleMissing(tbl, Drop)
		if err != nil {
			t.Fatal(err)
		}
		if out.NRows() != 1 {
			t.Errorf("NRows() = %d, want 1", out.NRows())
		}
		if diff := cmp.Diff(tbl.Columns(), out.Columns()); diff != "" {
			t.Errorf("Drop changed columns (-want +got):\n%s", diff)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := HandleMissing(tbl, Strategy(9))
		var unsupported *errors.UnsupportedError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedError, got %v", err)
		}
	})
}

func TestHandleMissingNoOp(t *testing.T) {
	clean := mustTable(t, "a,b,c\n1,2,x\n3,4,y\n")
	for _, s := range Strategies() {
		t.Run(s.String(), func(t *testing.T) {
			out, err := HandleMissing(clean, s)
			if err != nil {
				t.Fatal(err)
			}
			if !out.Equal(clean) {
				t.Errorf("%v on a complete table should be a no-op", s)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	tbl := mustTable(t, "age,monthly income,city\n25,100,Tokyo\n35,200,Osaka\n40,300,Tokyo\n")

	tests := []struct {
		name      string
		condition string
		wantAges  []float64
	}{
		{"simple", "age > 30", []float64{35, 40}},
		{"and keyword", "age > 30 and city == 'Tokyo'", []float64{40}},
		{"or operator", "age < 30 || age >= 40", []float64{25, 40}},
		{"not", "not (city == 'Tokyo')", []float64{35}},
		{"backticks", "`monthly income` >= 200", []float64{35, 40}},
		{"none", "age > 100", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Slice(tbl, tt.condition)
			if err != nil {
				t.Fatalf("Slice(%q) error = %v", tt.condition, err)
			}
			age, _ := out.Column("age")
			var got []float64
			for _, v := range age {
				got = append(got, v.Float())
			}
			if diff := cmp.Diff(tt.wantAges, got); diff != "" {
				t.Errorf("Slice(%q) ages mismatch (-want +got):\n%s", tt.condition, diff)
			}
		})
	}
}

func TestSliceErrors(t *testing.T) {
	tbl := mustTable(t, "age,city\n25,Tokyo\n")

	for _, cond := range []string{"price > 3", "age >", "age + 1", "`salary` > 1"} {
		t.Run(cond, func(t *testing.T) {
			_, err := Slice(tbl, cond)
			var exprErr *errors.ExpressionError
			if !errors.As(err, &exprErr) {
				t.Fatalf("Slice(%q) expected ExpressionError, got %v", cond, err)
			}
			if errors.CategoryOf(err) != errors.CategoryValidation {
				t.Errorf("category = %v, want validation", errors.CategoryOf(err))
			}
		})
	}
}

func makeNumericCSV(n int) string {
	var b strings.Builder
	b.WriteString("id,x,y\n")
	for i := 0; i < n; i++ {
		b.WriteString(strings.Join([]string{strconv.Itoa(i), strconv.Itoa(i * 2), strconv.Itoa(i % 2)}, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func TestTrainTestSplit(t *testing.T) {
	tbl := mustTable(t, makeNumericCSV(10))

	s, err := TrainTestSplit(tbl, "y", 0.25, DefaultSplitSeed)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.XTest.NRows(); got != 3 {
		t.Errorf("test rows = %d, want ceil(10*0.25) = 3", got)
	}
	if got := s.XTrain.NRows(); got != 7 {
		t.Errorf("train rows = %d, want 7", got)
	}
	if s.XTrain.HasColumn("y") || s.XTest.HasColumn("y") {
		t.Error("target column must not be part of the features")
	}
	if len(s.YTrain) != 7 || len(s.YTest) != 3 {
		t.Errorf("target lengths = (%d, %d), want (7, 3)", len(s.YTrain), len(s.YTest))
	}

	// 訓練行とテスト行は元の行の分割になる
	all := append(append([]int(nil), s.TrainIndex...), s.TestIndex...)
	sort.Ints(all)
	for i, r := range all {
		if r != i {
			t.Fatalf("train ∪ test is not a partition of the original rows: %v", all)
		}
	}

	// 行と目的変数の対応が保たれる
	ids, _ := s.XTest.Column("id")
	for i, r := range s.TestIndex {
		if int(ids[i].Float()) != r {
			t.Errorf("XTest row %d has id %v, want %d", i, ids[i].Float(), r)
		}
		if s.YTest[i].Float() != float64(r%2) {
			t.Errorf("YTest[%d] = %v, want %d", i, s.YTest[i].Float(), r%2)
		}
	}
}

func TestTrainTestSplitReproducible(t *testing.T) {
	tbl := mustTable(t, makeNumericCSV(50))

	a, err := TrainTestSplit(tbl, "y", 0.2, DefaultSplitSeed)
	if err != nil {
		t.Fatal(err)
	}
	b, err := TrainTestSplit(tbl, "y", 0.2, DefaultSplitSeed)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.TestIndex, b.TestIndex); diff != "" {
		t.Errorf("same seed produced different splits (-a +b):\n%s", diff)
	}
	if !a.XTrain.Equal(b.XTrain) {
		t.Error("same seed produced different training tables")
	}
}

func TestTrainTestSplitErrors(t *testing.T) {
	tbl := mustTable(t, makeNumericCSV(5))

	_, err := TrainTestSplit(tbl, "price", 0.2, DefaultSplitSeed)
	var colErr *errors.ColumnNotFoundError
	if !errors.As(err, &colErr) {
		t.Fatalf("expected ColumnNotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "column not found") {
		t.Errorf("unexpected message: %v", err)
	}

	for _, size := range []float64{0, 1, -0.1, 1.5} {
		if _, err := TrainTestSplit(tbl, "y", size, DefaultSplitSeed); err == nil {
			t.Errorf("test_size=%v should fail", size)
		}
	}
}
