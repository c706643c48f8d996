package preprocessing

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Strategy は欠損値の処理方法を表す列挙型
type Strategy int

const (
	// Mean は数値列の欠損値を列平均で補完する
	Mean Strategy = iota
	// Median は数値列の欠損値を列中央値で補完する
	Median
	// Mode は全列の欠損値を最頻値で補完する
	Mode
	// Drop は欠損値を含む行を削除する
	Drop
)

var strategyNames = [...]string{"Mean", "Median", "Mode", "Drop"}

// Strategies は全ての欠損値戦略を宣言順に返す
func Strategies() []Strategy {
	return []Strategy{Mean, Median, Mode, Drop}
}

func (s Strategy) String() string {
	if s.Valid() {
		return strategyNames[s]
	}
	return "Strategy(" + strconv.Itoa(int(s)) + ")"
}

// Valid は s が定義済みの戦略かどうかを返す
func (s Strategy) Valid() bool {
	return s >= Mean && s <= Drop
}

// ParseStrategy は戦略名（大文字小文字を区別しない）または序数 "0"〜"3" を Strategy に変換する
func ParseStrategy(name string) (Strategy, error) {
	name = strings.TrimSpace(name)
	for i, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return Strategy(i), nil
		}
	}
	if i, err := strconv.Atoi(name); err == nil && Strategy(i).Valid() {
		return Strategy(i), nil
	}
	return 0, unsupportedStrategy(name)
}

func unsupportedStrategy(value interface{}) error {
	return errors.NewUnsupportedError("strategy", value, strategyNames[:]...)
}
