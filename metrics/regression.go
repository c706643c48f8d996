package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// RegressionSummary は回帰評価で報告する指標のまとめ
type RegressionSummary struct {
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64 // yTrue に分散がない場合は NaN
}

// checkPair は長さの一致と非空を検証し、長さを返す
func checkPair(op string, yTrue, yPred mat.Vector) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	mse := sum / float64(n)
	// NaN/Inf を含む予測は指標として扱えない
	if err := errors.CheckScalar("MSE", mse); err != nil {
		return 0, err
	}
	return mse, nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred mat.Vector) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する。yTrue が定数の場合はエラー
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	t := mat.Col(nil, 0, yTrue)
	if stat.Variance(t, nil) == 0 || n == 1 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return stat.RSquaredFrom(mat.Col(nil, 0, yPred), t, nil), nil
}

// MAPE は平均絶対パーセンテージ誤差（%）を計算する。yTrue が 0 の行は除外する
func MAPE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	valid := 0
	for i := 0; i < n; i++ {
		if v := yTrue.AtVec(i); v != 0 {
			sum += math.Abs(v-yPred.AtVec(i)) / math.Abs(v)
			valid++
		}
	}
	if valid == 0 {
		return 0, errors.Newf("MAPE: all yTrue values are zero")
	}
	return sum / float64(valid) * 100, nil
}

// ExplainedVarianceScore は説明分散スコア 1 - Var(yTrue - yPred) / Var(yTrue) を計算する
func ExplainedVarianceScore(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	t := mat.Col(nil, 0, yTrue)
	diff := make([]float64, n)
	for i := range diff {
		diff[i] = t[i] - yPred.AtVec(i)
	}
	_, varTrue := stat.PopMeanVariance(t, nil)
	if varTrue == 0 {
		return 0, errors.Newf("ExplainedVarianceScore: no variance in yTrue")
	}
	_, varDiff := stat.PopMeanVariance(diff, nil)
	return 1 - varDiff/varTrue, nil
}

// Column は (n, 1) の行列を列ベクトルに変換する
func Column(op string, m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}

// MSEMatrix は (n, 1) の行列同士の MSE を計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("MSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return MSE(t, p)
}

// RMSEMatrix は (n, 1) の行列同士の RMSE を計算する
func RMSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("RMSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return RMSE(t, p)
}

func columns(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	t, err := Column(op, yTrue)
	if err != nil {
		return nil, nil, err
	}
	p, err := Column(op, yPred)
	if err != nil {
		return nil, nil, err
	}
	if t.Len() != p.Len() {
		return nil, nil, errors.NewDimensionError(op, t.Len(), p.Len(), 0)
	}
	return t, p, nil
}

// Summarize は MSE・RMSE・MAE・R² をまとめて計算する
func Summarize(yTrue, yPred mat.Vector) (RegressionSummary, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return RegressionSummary{}, err
	}
	mae, _ := MAE(yTrue, yPred)
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		r2 = math.NaN()
	}
	return RegressionSummary{MSE: mse, RMSE: math.Sqrt(mse), MAE: mae, R2: r2}, nil
}
