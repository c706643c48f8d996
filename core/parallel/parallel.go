// Package parallel は独立したタスクをワーカーに分配して実行する。
package parallel

import (
	"runtime"
	"sync"
)

// Workers は n_jobs 相当の指定を実際のワーカー数に変換する。
// 0 以下（None, -1 など）は利用可能な CPU コア数、それ以外は items を上限とする。
func Workers(nJobs, items int) int {
	n := nJobs
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, items))
}

// ForEach は 0..items-1 の各番号で fn を呼ぶ。番号は workers 個の連続した範囲に
// 分割され、範囲ごとに 1 つの goroutine が順に処理する。
//
// 戻り値は最小の番号で発生したエラーで、並列度に関係なく同じ結果になる。
func ForEach(items, workers int, fn func(i int) error) error {
	if items <= 0 {
		return nil
	}
	workers = max(1, min(workers, items))
	errs := make([]error, items)

	if workers == 1 {
		for i := 0; i < items; i++ {
			errs[i] = fn(i)
		}
		return first(errs)
	}

	chunkSize := (items + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := min(start+chunkSize, items)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				errs[i] = fn(i)
			}
		}(start, end)
	}
	wg.Wait()
	return first(errs)
}

func first(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
