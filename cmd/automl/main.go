// Command automl は CSV ファイルからランダムフォレストを学習・評価する CLI。
//
//	automl run --file data.csv --target label --model Classification
//	automl serve --port 7860
//	automl version
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
