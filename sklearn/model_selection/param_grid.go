package model_selection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// ParamGrid はパラメータ名から候補値の列への写像のリスト。
// 各要素が独立した部分グリッドで、候補は部分グリッドごとの直積の連結になる。
type ParamGrid []map[string][]interface{}

// ParseParamGrid はグリッドのテキスト表現を解析する。
//
// JSON（YAML のサブセット）と YAML の両方を受け付ける:
//
//	{"n_estimators": [10, 50], "max_depth": [3, null]}
//	[{"max_depth": [3]}, {"min_samples_leaf": [1, 2]}]
//
// スカラー値は要素1つの列として扱う。空文字列の場合は nil を返す。
func ParseParamGrid(text string) (ParamGrid, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var raw interface{}
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, errors.NewParseError("parameter grid", text, err)
	}

	switch v := raw.(type) {
	case map[string]interface{}:
		sub, err := subGrid(text, v)
		if err != nil {
			return nil, err
		}
		return ParamGrid{sub}, nil
	case []interface{}:
		if len(v) == 0 {
			return nil, errors.NewParseError("parameter grid", text, errors.New("empty list of grids"))
		}
		grid := make(ParamGrid, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.NewParseError("parameter grid", text,
					errors.Newf("element %d must be a mapping, got %T", i, item))
			}
			sub, err := subGrid(text, m)
			if err != nil {
				return nil, err
			}
			grid = append(grid, sub)
		}
		return grid, nil
	default:
		return nil, errors.NewParseError("parameter grid", text,
			errors.Newf("expected a mapping of parameter names to lists, got %T", raw))
	}
}

func subGrid(text string, m map[string]interface{}) (map[string][]interface{}, error) {
	sub := make(map[string][]interface{}, len(m))
	for name, value := range m {
		values, ok := value.([]interface{})
		if !ok {
			values = []interface{}{value}
		}
		if len(values) == 0 {
			return nil, errors.NewValidationError(name,
				fmt.Sprintf("Parameter grid for parameter '%s' needs to be a non-empty sequence", name), text)
		}
		sub[name] = values
	}
	return sub, nil
}

// Candidates は全てのパラメータの組み合わせを返す。
// 部分グリッド内ではパラメータ名の昇順に並べ、最後の名前が最も速く変化する。
func (g ParamGrid) Candidates() []map[string]interface{} {
	var out []map[string]interface{}
	for _, sub := range g {
		names := lo.Keys(sub)
		slices.Sort(names)

		combos := []map[string]interface{}{{}}
		for _, name := range names {
			next := make([]map[string]interface{}, 0, len(combos)*len(sub[name]))
			for _, combo := range combos {
				for _, v := range sub[name] {
					c := make(map[string]interface{}, len(combo)+1)
					for k, cv := range combo {
						c[k] = cv
					}
					c[name] = v
					next = append(next, c)
				}
			}
			combos = next
		}
		out = append(out, combos...)
	}
	return out
}

// Len は候補の総数を返す
func (g ParamGrid) Len() int {
	total := 0
	for _, sub := range g {
		n := 1
		for _, values := range sub {
			n *= len(values)
		}
		total += n
	}
	return total
}

// FormatParams はパラメータをキーの昇順で {k: v, ...} 形式に整形する
func FormatParams(params map[string]interface{}) string {
	keys := lo.Keys(params)
	slices.Sort(keys)
	parts := lo.Map(keys, func(k string, _ int) string {
		v := params[k]
		if v == nil {
			return fmt.Sprintf("'%s': None", k)
		}
		if s, ok := v.(string); ok {
			return fmt.Sprintf("'%s': '%s'", k, s)
		}
		return fmt.Sprintf("'%s': %v", k, v)
	})
	return "{" + strings.Join(parts, ", ") + "}"
}
