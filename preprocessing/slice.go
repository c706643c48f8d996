package preprocessing

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

var backtickName = regexp.MustCompile("`([^`]*)`")

// Slice は条件式を満たす行だけを残したテーブルを返す
//
// 条件式は列名を変数とする真偽値の式（例: "age > 30 and city == 'Tokyo'"）。
// 識別子として書けない列名はバッククォートで囲む（例: "`monthly income` > 1000"）。
// 数値列の欠損値は NaN、カテゴリ列の欠損値は空文字列として評価される。
//
// 構文エラー、未知の列名、真偽値以外を返す式は ExpressionError になる。
func Slice(t *dataset.Table, condition string) (*dataset.Table, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return t.Clone(), nil
	}

	source, aliases := rewriteBackticks(condition)
	columns := t.Columns()
	kinds := make([]dataset.Kind, len(columns))
	env := make(map[string]any, len(columns)+len(aliases))
	for j, c := range columns {
		kinds[j], _ = t.Kind(c)
		env[c] = zeroOf(kinds[j])
	}
	type aliasColumn struct {
		kind   dataset.Kind
		values []dataset.Value
	}
	aliasColumns := make(map[string]aliasColumn, len(aliases))
	for alias, column := range aliases {
		values, err := t.Column(column)
		if err != nil {
			return nil, errors.NewExpressionError(condition, err)
		}
		kind, _ := t.Kind(column)
		aliasColumns[alias] = aliasColumn{kind: kind, values: values}
		env[alias] = zeroOf(kind)
	}

	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, errors.NewExpressionError(condition, err)
	}
	if program.Node().Type().Kind() != reflect.Bool {
		return nil, errors.NewExpressionError(condition, errors.New("condition must evaluate to bool"))
	}

	keep := make([]int, 0, t.NRows())
	for i := 0; i < t.NRows(); i++ {
		row := t.Row(i)
		for j, c := range columns {
			env[c] = cellOf(kinds[j], row[j])
		}
		for alias, ac := range aliasColumns {
			env[alias] = cellOf(ac.kind, ac.values[i])
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return nil, errors.NewExpressionError(condition, err)
		}
		if result.(bool) {
			keep = append(keep, i)
		}
	}

	log.GetLoggerWithName("preprocessing").Debug("Rows sliced",
		log.ConditionKey, condition,
		log.SamplesKey, len(keep),
	)
	return t.SelectRows(keep), nil
}

// rewriteBackticks は `列名` を内部変数名に置き換え、変数名から列名への対応を返す
func rewriteBackticks(condition string) (string, map[string]string) {
	aliases := make(map[string]string)
	byColumn := make(map[string]string)
	source := backtickName.ReplaceAllStringFunc(condition, func(m string) string {
		column := m[1 : len(m)-1]
		if alias, ok := byColumn[column]; ok {
			return alias
		}
		alias := "__col" + strconv.Itoa(len(aliases))
		aliases[alias] = column
		byColumn[column] = alias
		return alias
	})
	return source, aliases
}

func zeroOf(kind dataset.Kind) any {
	if kind == dataset.Numeric {
		return float64(0)
	}
	return ""
}

func cellOf(kind dataset.Kind, v dataset.Value) any {
	if kind == dataset.Numeric {
		return v.Float()
	}
	return v.Str
}
