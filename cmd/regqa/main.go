// Package main is the entry point for the regulation QA service.
package main

import (
	// 容器内让 GOMAXPROCS 跟随 CPU 配额
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/regqa/cmd/regqa/app"
)

func main() {
	app.NewApp().Run()
}
