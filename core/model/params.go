package model

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// ハイパーパラメータは設定ファイルやグリッド文字列から来るため、
// int/int64/float64/string の揺れを吸収して変換する。

// ParamInt converts a hyperparameter value to int. Integral floats are accepted.
func ParamInt(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(name, "must be an integer", value)
}

// ParamString converts a hyperparameter value to string.
func ParamString(name string, value interface{}) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", errors.NewValidationError(name, "must be a string", value)
}

// ParamBool converts a hyperparameter value to bool.
func ParamBool(name string, value interface{}) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, errors.NewValidationError(name, "must be a boolean", value)
}

// InvalidParamError reports a parameter name the estimator does not know.
func InvalidParamError(estimator, name string, valid map[string]interface{}) error {
	keys := make([]string, 0, len(valid))
	for k := range valid {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return errors.NewValidationError(name,
		fmt.Sprintf("invalid parameter for estimator %s. Valid parameters are: [%s]", estimator, strings.Join(keys, ", ")),
		name)
}
