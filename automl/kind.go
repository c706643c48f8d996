// Package automl は CSV の読み込みから評価までの AutoML パイプラインを提供する。
//
// ModelKind で推定器（ランダムフォレスト分類器・回帰器）と評価指標が決まり、
// Pipeline.Run が保存・読み込み・補完・抽出・分割・学習・評価を順に実行する。
package automl

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// ModelKind は推定器の種類と評価指標を選ぶ列挙型
type ModelKind int

const (
	// Classification はランダムフォレスト分類器と正解率
	Classification ModelKind = iota
	// Regression はランダムフォレスト回帰器と RMSE
	Regression
)

var kindNames = [...]string{"Classification", "Regression"}

// ModelKinds は全ての ModelKind を宣言順に返す
func ModelKinds() []ModelKind {
	return []ModelKind{Classification, Regression}
}

func (k ModelKind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return "ModelKind(" + strconv.Itoa(int(k)) + ")"
}

// Valid は k が定義済みの種類かどうかを返す
func (k ModelKind) Valid() bool {
	return k == Classification || k == Regression
}

// ParseModelKind は種類名（大文字小文字を区別しない）または序数 "0"/"1" を ModelKind に変換する
func ParseModelKind(name string) (ModelKind, error) {
	name = strings.TrimSpace(name)
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return ModelKind(i), nil
		}
	}
	if i, err := strconv.Atoi(name); err == nil && ModelKind(i).Valid() {
		return ModelKind(i), nil
	}
	return 0, unsupportedKind(name)
}

func unsupportedKind(value interface{}) error {
	return errors.NewUnsupportedError("model type", value, kindNames[:]...)
}
