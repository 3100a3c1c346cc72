// Command sortviz 启动排序动画服务，或在命令行直接生成单次动画 Run.
package main

import (
	"fmt"
	"os"
)

// 构建时通过 -ldflags "-X main.version=..." 注入.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
